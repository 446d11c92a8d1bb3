package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/ekaracan/cinehall/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Session documents live in one Redis hash each: a "meta" field with the
// immutable screening data, an "available" counter field, and one sparse
// "seat:<row>-<col>" field per held or sold seat. Guarded patches run as Lua
// scripts so every patch is atomic within its document, which is the only
// serialization point the booking core relies on.
const (
	sessionKeyPrefix = "session:"
	sessionIndexKey  = "sessions"
	changesChannel   = "sessions:changes"

	metaField      = "meta"
	availableField = "available"
	seatFieldPfx   = "seat:"
)

// applySeatPatchScript validates every entry's guard against the current
// document state and applies all writes only when every guard passes, then
// publishes the change. Guard semantics mirror domain.PatchGuard.
var applySeatPatchScript = redis.NewScript(`
	-- KEYS[1] = session hash key
	-- ARGV[1] = JSON array of patch entries
	-- ARGV[2] = pub/sub channel
	-- ARGV[3] = session id

	if redis.call("EXISTS", KEYS[1]) == 0 then
		return {err = "session not found"}
	end

	local entries = cjson.decode(ARGV[1])
	local time = redis.call("TIME")
	local now = time[1] * 1000 + math.floor(time[2] / 1000)

	local conflicts = {}
	local apply = {}

	for i, entry in ipairs(entries) do
		local current = redis.call("HGET", KEYS[1], entry.field)
		local record = nil
		if current then
			record = cjson.decode(current)
		end
		apply[i] = true

		if entry.guard == "absent" then
			if record then
				table.insert(conflicts, entry.seat)
			end
		elseif entry.guard == "held-by" then
			if not record or record.status ~= "held" or record.reservationId ~= entry.reservation then
				return {err = "reservation mismatch:" .. entry.seat}
			end
			if entry.maxAgeMs > 0 and now - record.createdAt > entry.maxAgeMs then
				return {err = "reservation expired:" .. entry.seat}
			end
		elseif entry.guard == "release-if-held-by" then
			if not record or record.status ~= "held" or record.reservationId ~= entry.reservation then
				apply[i] = false
			end
		end
	end

	if #conflicts > 0 then
		return {err = "seats unavailable:" .. table.concat(conflicts, ",")}
	end

	for i, entry in ipairs(entries) do
		if apply[i] then
			if entry.record == cjson.null then
				redis.call("HDEL", KEYS[1], entry.field)
			else
				redis.call("HSET", KEYS[1], entry.field, entry.record)
			end
		end
	end

	redis.call("PUBLISH", ARGV[2], ARGV[3])

	return "OK"
`)

// clearSoldSeatsScript removes every sold seat field of one session and bumps
// the available counter by the number removed, in one atomic step.
var clearSoldSeatsScript = redis.NewScript(`
	-- KEYS[1] = session hash key
	-- ARGV[1] = pub/sub channel
	-- ARGV[2] = session id

	local cursor = "0"
	local sold = {}

	repeat
		local result = redis.call("HSCAN", KEYS[1], cursor, "MATCH", "seat:*", "COUNT", 100)
		cursor = result[1]
		local fields = result[2]

		for i = 1, #fields, 2 do
			local record = cjson.decode(fields[i + 1])
			if record.status == "sold" then
				table.insert(sold, fields[i])
			end
		end
	until cursor == "0"

	if #sold == 0 then
		return 0
	end

	redis.call("HDEL", KEYS[1], unpack(sold))
	redis.call("HINCRBY", KEYS[1], "available", #sold)
	redis.call("PUBLISH", ARGV[1], ARGV[2])

	return #sold
`)

// Redis implements domain.SessionStore on a Redis backend.
type Redis struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// sessionMeta is the immutable part of a session document, stored as one
// JSON field of the hash.
type sessionMeta struct {
	MovieTitle  string            `json:"movieTitle"`
	Genres      []string          `json:"genres"`
	PosterURL   string            `json:"posterUrl"`
	Description string            `json:"description"`
	Date        string            `json:"date"`
	Time        string            `json:"time"`
	TotalSeats  int               `json:"totalSeats"`
	PriceRange  domain.PriceRange `json:"priceRange"`
}

func (s *Redis) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	fields, err := s.client.HGetAll(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return nil, storeError("get session", err)
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrRecordNotFound)
	}

	return decodeSession(sessionID, fields)
}

func (s *Redis) ListAll(ctx context.Context) ([]domain.Session, error) {
	ids, err := s.client.SMembers(ctx, sessionIndexKey).Result()
	if err != nil {
		return nil, storeError("list sessions", err)
	}

	slices.Sort(ids)

	sessions := make([]domain.Session, 0, len(ids))
	for _, id := range ids {
		session, err := s.Get(ctx, id)
		if err != nil {
			// A dangling index entry is not fatal to the listing.
			if errors.Is(err, domain.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}

		sessions = append(sessions, *session)
	}

	return sessions, nil
}

func (s *Redis) Create(ctx context.Context, session *domain.Session) error {
	meta, err := json.Marshal(sessionMeta{
		MovieTitle:  session.MovieTitle,
		Genres:      session.Genres,
		PosterURL:   session.PosterURL,
		Description: session.Description,
		Date:        session.Date,
		Time:        session.Time,
		TotalSeats:  session.TotalSeats,
		PriceRange:  session.PriceRange,
	})
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, sessionKey(session.ID), metaField, meta, availableField, session.AvailableSeats)
	pipe.SAdd(ctx, sessionIndexKey, session.ID)
	pipe.Publish(ctx, changesChannel, session.ID)

	_, err = pipe.Exec(ctx)
	if err != nil {
		return storeError("create session", err)
	}

	return nil
}

// patchEntry is the wire form one SeatPatchEntry takes inside the Lua
// script's JSON argument. Record carries a pre-marshalled SeatRecord, or
// null for a tombstone.
type patchEntry struct {
	Seat        string  `json:"seat"`
	Field       string  `json:"field"`
	Guard       string  `json:"guard"`
	Reservation string  `json:"reservation,omitempty"`
	MaxAgeMs    int64   `json:"maxAgeMs"`
	Record      *string `json:"record"`
}

func (s *Redis) ApplySeatPatch(ctx context.Context, sessionID string, patch domain.SeatPatch) error {
	entries := make([]patchEntry, 0, len(patch))

	for seat, entry := range patch {
		wire := patchEntry{
			Seat:        seat.String(),
			Field:       seatField(seat),
			Guard:       string(entry.Guard),
			Reservation: entry.Reservation,
			MaxAgeMs:    entry.MaxAge.Milliseconds(),
		}

		if entry.Record != nil {
			record, err := json.Marshal(entry.Record)
			if err != nil {
				return err
			}
			// Double-encoded: the script stores the record verbatim as the
			// hash field value and only decodes it for guard checks.
			encoded := string(record)
			wire.Record = &encoded
		}

		entries = append(entries, wire)
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	err = applySeatPatchScript.Run(ctx, s.client,
		[]string{sessionKey(sessionID)}, payload, changesChannel, sessionID).Err()
	if err != nil {
		return patchError(sessionID, err)
	}

	return nil
}

func (s *Redis) SetAvailableCount(ctx context.Context, sessionID string, count int) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, sessionKey(sessionID), availableField, count)
	pipe.Publish(ctx, changesChannel, sessionID)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return storeError("set available count", err)
	}

	return nil
}

func (s *Redis) ClearSoldSeats(ctx context.Context, sessionID string) (int, error) {
	cleared, err := clearSoldSeatsScript.Run(ctx, s.client,
		[]string{sessionKey(sessionID)}, changesChannel, sessionID).Int()
	if err != nil {
		return 0, storeError("clear sold seats", err)
	}

	return cleared, nil
}

func (s *Redis) Subscribe(ctx context.Context) (domain.Subscription, error) {
	pubsub := s.client.Subscribe(ctx, changesChannel)

	// Force the subscription onto the wire before returning, so no change
	// published after Subscribe returns can be missed.
	_, err := pubsub.Receive(ctx)
	if err != nil {
		pubsub.Close()
		return nil, storeError("subscribe", err)
	}

	out := make(chan string, 32)

	go func() {
		defer close(out)

		for msg := range pubsub.Channel() {
			select {
			case out <- msg.Payload:
			default:
			}
		}
	}()

	return &redisSubscription{pubsub: pubsub, out: out}, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	out    chan string
}

func (s *redisSubscription) Updates() <-chan string {
	return s.out
}

func (s *redisSubscription) Close() error {
	return s.pubsub.Close()
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

func seatField(seat domain.SeatID) string {
	return seatFieldPfx + seat.String()
}

func decodeSession(sessionID string, fields map[string]string) (*domain.Session, error) {
	raw, ok := fields[metaField]
	if !ok {
		return nil, fmt.Errorf("session %s has no meta field", sessionID)
	}

	var meta sessionMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("decoding session %s meta: %w", sessionID, err)
	}

	session := &domain.Session{
		ID:          sessionID,
		MovieTitle:  meta.MovieTitle,
		Genres:      meta.Genres,
		PosterURL:   meta.PosterURL,
		Description: meta.Description,
		Date:        meta.Date,
		Time:        meta.Time,
		TotalSeats:  meta.TotalSeats,
		PriceRange:  meta.PriceRange,
		Seats:       make(map[domain.SeatID]domain.SeatRecord),
	}

	if raw, ok := fields[availableField]; ok {
		available, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding session %s available count: %w", sessionID, err)
		}
		session.AvailableSeats = available
	}

	for field, value := range fields {
		if !strings.HasPrefix(field, seatFieldPfx) {
			continue
		}

		seat, err := domain.ParseSeatID(strings.TrimPrefix(field, seatFieldPfx))
		if err != nil {
			return nil, fmt.Errorf("decoding session %s seat field %q: %w", sessionID, field, err)
		}

		var record domain.SeatRecord
		if err := json.Unmarshal([]byte(value), &record); err != nil {
			return nil, fmt.Errorf("decoding session %s seat %s: %w", sessionID, seat, err)
		}

		session.Seats[seat] = record
	}

	return session, nil
}

// patchError translates the script's error replies into the domain taxonomy.
func patchError(sessionID string, err error) error {
	switch {
	case redis.HasErrorPrefix(err, "seats unavailable"):
		return &domain.SeatUnavailableError{Seats: parseConflictSeats(err.Error())}

	case redis.HasErrorPrefix(err, "reservation mismatch"):
		return fmt.Errorf("session %s: %w", sessionID, domain.ErrReservationMismatch)

	case redis.HasErrorPrefix(err, "reservation expired"):
		return fmt.Errorf("session %s: %w", sessionID, domain.ErrReservationExpired)

	case redis.HasErrorPrefix(err, "session not found"):
		return fmt.Errorf("session %s: %w", sessionID, domain.ErrRecordNotFound)

	default:
		return storeError("apply seat patch", err)
	}
}

func parseConflictSeats(message string) []domain.SeatID {
	_, list, ok := strings.Cut(message, ":")
	if !ok {
		return nil
	}

	var seats []domain.SeatID
	for _, part := range strings.Split(list, ",") {
		seat, err := domain.ParseSeatID(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		seats = append(seats, seat)
	}

	return seats
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, op, err)
}
