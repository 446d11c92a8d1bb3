package app

import (
	"net/http"
)

type ResetSoldSeatsResponse struct {
	ClearedSeats      int            `json:"clearedSeats"`
	ClearedBySession  map[string]int `json:"clearedBySession"`
	SessionsInspected int            `json:"sessionsInspected"`
}

// resetSoldSeatsHandler is the administrative reset: for every session it
// removes the sold seat entries and restores the available count, one atomic
// step per session document. Not part of the booking flow.
func (app *Application) resetSoldSeatsHandler(w http.ResponseWriter, r *http.Request) {
	sessions, err := app.store.ListAll(r.Context())
	if err != nil {
		app.storeUnavailableResponse(w, r, err)
		return
	}

	resp := ResetSoldSeatsResponse{ClearedBySession: make(map[string]int)}

	for i := range sessions {
		cleared, err := app.store.ClearSoldSeats(r.Context(), sessions[i].ID)
		if err != nil {
			app.storeUnavailableResponse(w, r, err)
			return
		}

		resp.SessionsInspected++

		if cleared > 0 {
			resp.ClearedSeats += cleared
			resp.ClearedBySession[sessions[i].ID] = cleared
		}
	}

	app.logger.Info("reset sold seats", "sessions", resp.SessionsInspected, "cleared", resp.ClearedSeats)

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
