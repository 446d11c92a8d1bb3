package app

import (
	"errors"
	"net/http"

	"github.com/ekaracan/cinehall/internal/domain"
	"github.com/ekaracan/cinehall/internal/hall"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type SessionSummary struct {
	Id             string            `json:"id"`
	MovieTitle     string            `json:"movieTitle"`
	Genres         []string          `json:"genres"`
	PosterUrl      string            `json:"posterUrl"`
	Date           string            `json:"date"`
	Time           string            `json:"time"`
	AvailableSeats int               `json:"availableSeats"`
	TotalSeats     int               `json:"totalSeats"`
	PriceRange     domain.PriceRange `json:"priceRange"`
}

type SessionListResponse struct {
	Sessions []SessionSummary `json:"sessions"`
}

type Seat struct {
	Row      int             `json:"row"`
	Column   int             `json:"column"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Status   string          `json:"status"`
}

type SeatRow struct {
	Row   int    `json:"row"`
	Seats []Seat `json:"seats"`
}

type SessionDetailResponse struct {
	SessionSummary
	Description string    `json:"description"`
	SeatRows    []SeatRow `json:"seatRows"`
}

func (app *Application) listSessionsHandler(w http.ResponseWriter, r *http.Request) {
	sessions, err := app.store.ListAll(r.Context())
	if err != nil {
		app.storeUnavailableResponse(w, r, err)
		return
	}

	resp := SessionListResponse{Sessions: make([]SessionSummary, 0, len(sessions))}
	for i := range sessions {
		resp.Sessions = append(resp.Sessions, toSessionSummary(&sessions[i]))
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := app.store.Get(r.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, domain.ErrStoreUnavailable):
			app.storeUnavailableResponse(w, r, err)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	resp := SessionDetailResponse{
		SessionSummary: toSessionSummary(session),
		Description:    session.Description,
		SeatRows:       toSeatRows(app.layout, session),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toSessionSummary(session *domain.Session) SessionSummary {
	return SessionSummary{
		Id:             session.ID,
		MovieTitle:     session.MovieTitle,
		Genres:         session.Genres,
		PosterUrl:      session.PosterURL,
		Date:           session.Date,
		Time:           session.Time,
		AvailableSeats: session.AvailableSeats,
		TotalSeats:     session.TotalSeats,
		PriceRange:     session.PriceRange,
	}
}

func toSeatRows(layout hall.Layout, session *domain.Session) []SeatRow {
	rows := make([]SeatRow, 0, layout.Rows)

	for row := 1; row <= layout.Rows; row++ {
		seatRow := SeatRow{Row: row, Seats: make([]Seat, 0, layout.SeatsPerRow)}

		for col := 1; col <= layout.SeatsPerRow; col++ {
			seat := domain.SeatID{Row: row, Col: col}

			seatRow.Seats = append(seatRow.Seats, Seat{
				Row:      row,
				Column:   col,
				Category: string(layout.Category(seat)),
				Price:    layout.Price(seat),
				Status:   string(session.SeatStatusAt(seat)),
			})
		}

		rows = append(rows, seatRow)
	}

	return rows
}
