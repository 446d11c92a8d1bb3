package app

import (
	"errors"
	"net/http"

	"github.com/ekaracan/cinehall/internal/booking"
	"github.com/ekaracan/cinehall/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type ToggleSeatRequest struct {
	Row    int `json:"row" validate:"required,min=1,max=10"`
	Column int `json:"column" validate:"required,min=1,max=10"`
}

type SelectedSeat struct {
	Row      int             `json:"row"`
	Column   int             `json:"column"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
}

type BookingEvent struct {
	Kind   string   `json:"kind"`
	Seats  []string `json:"seats,omitempty"`
	Reason string   `json:"reason,omitempty"`
}

type BookingStateResponse struct {
	Phase           string          `json:"phase"`
	SelectedSeats   []SelectedSeat  `json:"selectedSeats"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	HoldSecondsLeft int             `json:"holdSecondsLeft"`
	ReservationId   string          `json:"reservationId,omitempty"`
	Events          []BookingEvent  `json:"events,omitempty"`
}

type HoldResponse struct {
	ReservationId string          `json:"reservationId"`
	Seats         []string        `json:"seats"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	HoldSeconds   int             `json:"holdSeconds"`
}

func (app *Application) getBookingStateHandler(w http.ResponseWriter, r *http.Request) {
	coordinator, err := app.coordinatorFor(r, chi.URLParam(r, "sessionID"))
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	resp := app.toBookingState(coordinator)

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) leaveSessionHandler(w http.ResponseWriter, r *http.Request) {
	app.releaseCoordinator(app.sessionManager.Token(r.Context()))

	w.WriteHeader(http.StatusNoContent)
}

func (app *Application) toggleSeatHandler(w http.ResponseWriter, r *http.Request) {
	var input ToggleSeatRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	coordinator, err := app.coordinatorFor(r, chi.URLParam(r, "sessionID"))
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	_, err = coordinator.ToggleSeat(domain.SeatID{Row: input.Row, Col: input.Column})
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	resp := app.toBookingState(coordinator)

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) placeHoldHandler(w http.ResponseWriter, r *http.Request) {
	coordinator, err := app.coordinatorFor(r, chi.URLParam(r, "sessionID"))
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	reservation, err := coordinator.PlaceHold(r.Context())
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	seats := make([]string, len(reservation.Seats))
	for i, seat := range reservation.Seats {
		seats[i] = seat.String()
	}

	resp := HoldResponse{
		ReservationId: reservation.ID,
		Seats:         seats,
		TotalPrice:    app.layout.TotalPrice(reservation.Seats),
		HoldSeconds:   int(booking.HoldWindow.Seconds()),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) confirmPurchaseHandler(w http.ResponseWriter, r *http.Request) {
	coordinator, err := app.coordinatorFor(r, chi.URLParam(r, "sessionID"))
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	err = coordinator.ConfirmPurchase(r.Context())
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	resp := app.toBookingState(coordinator)

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) cancelHoldHandler(w http.ResponseWriter, r *http.Request) {
	coordinator, err := app.coordinatorFor(r, chi.URLParam(r, "sessionID"))
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	err = coordinator.Cancel(r.Context())
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (app *Application) toBookingState(coordinator *booking.Coordinator) BookingStateResponse {
	selected := coordinator.SelectedSeats()

	seats := make([]SelectedSeat, 0, len(selected))
	for _, seat := range selected {
		seats = append(seats, SelectedSeat{
			Row:      seat.Row,
			Column:   seat.Col,
			Category: string(app.layout.Category(seat)),
			Price:    app.layout.Price(seat),
		})
	}

	resp := BookingStateResponse{
		Phase:           string(coordinator.Phase()),
		SelectedSeats:   seats,
		TotalPrice:      coordinator.TotalPrice(),
		HoldSecondsLeft: int(coordinator.HoldRemaining().Seconds()),
	}

	if reservationID, ok := coordinator.ActiveReservation(); ok {
		resp.ReservationId = reservationID
	}

	for _, event := range coordinator.DrainEvents() {
		bookingEvent := BookingEvent{Kind: string(event.Kind), Reason: event.Reason}
		for _, seat := range event.Seats {
			bookingEvent.Seats = append(bookingEvent.Seats, seat.String())
		}

		resp.Events = append(resp.Events, bookingEvent)
	}

	return resp
}

// bookingErrorResponse maps the booking error taxonomy onto HTTP statuses.
// Conflicts and expiries are recoverable for the client; mismatches point at
// an integrity problem and are logged loudly.
func (app *Application) bookingErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, booking.ErrWrongPhase),
		errors.Is(err, domain.ErrSeatUnavailable):
		app.editConflictResponse(w, r, err)

	case errors.Is(err, booking.ErrEmptySelection):
		app.badRequestResponse(w, r, err)

	case errors.Is(err, domain.ErrReservationExpired):
		app.goneResponse(w, r, err)

	case errors.Is(err, domain.ErrReservationMismatch):
		app.logError(r, err)
		app.editConflictResponse(w, r, err)

	case errors.Is(err, domain.ErrRecordNotFound):
		app.notFoundResponse(w, r)

	case errors.Is(err, domain.ErrStoreUnavailable):
		app.storeUnavailableResponse(w, r, err)

	default:
		app.serverErrorResponse(w, r, err)
	}
}
