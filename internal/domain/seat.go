package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// SeatID identifies a seat by its 1-indexed position in the hall.
type SeatID struct {
	Row int
	Col int
}

func (s SeatID) String() string {
	return fmt.Sprintf("%d-%d", s.Row, s.Col)
}

// ParseSeatID parses the "row-col" form used as the field key in session
// documents, e.g. "3-5".
func ParseSeatID(value string) (SeatID, error) {
	row, col, ok := strings.Cut(value, "-")
	if !ok {
		return SeatID{}, fmt.Errorf("invalid seat identifier: %q", value)
	}

	rowNum, err := strconv.Atoi(row)
	if err != nil {
		return SeatID{}, fmt.Errorf("invalid seat row in %q: %w", value, err)
	}

	colNum, err := strconv.Atoi(col)
	if err != nil {
		return SeatID{}, fmt.Errorf("invalid seat column in %q: %w", value, err)
	}

	if rowNum < 1 || colNum < 1 {
		return SeatID{}, fmt.Errorf("seat position must be positive: %q", value)
	}

	return SeatID{Row: rowNum, Col: colNum}, nil
}

// MarshalText allows SeatID to be used as a JSON object key.
func (s SeatID) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SeatID) UnmarshalText(text []byte) error {
	id, err := ParseSeatID(string(text))
	if err != nil {
		return err
	}

	*s = id

	return nil
}
