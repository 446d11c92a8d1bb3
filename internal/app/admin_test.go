package app

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetSoldSeats(t *testing.T) {
	app := newTestApplication(t)
	seedTestSession(t, app, "session_0_0")
	seedTestSession(t, app, "session_0_1")

	server := newTestServer(t, app)
	client := newTestClient(t, server)

	// Buy two seats in the first session.
	for _, seat := range []ToggleSeatRequest{{Row: 1, Column: 1}, {Row: 1, Column: 2}} {
		status, _ := client.post("/sessions/session_0_0/seats/toggle", seat)
		require.Equal(t, http.StatusOK, status)
	}
	status, _ := client.post("/sessions/session_0_0/hold", nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = client.post("/sessions/session_0_0/purchase", nil)
	require.Equal(t, http.StatusOK, status)

	status, body := client.post("/admin/sessions/reset-sold", nil)
	require.Equal(t, http.StatusOK, status)

	var resp ResetSoldSeatsResponse
	client.decode(body, &resp)

	assert.Equal(t, 2, resp.ClearedSeats)
	assert.Equal(t, 2, resp.SessionsInspected)
	assert.Equal(t, map[string]int{"session_0_0": 2}, resp.ClearedBySession)

	status, body = client.get("/sessions/session_0_0")
	require.Equal(t, http.StatusOK, status)

	var detail SessionDetailResponse
	client.decode(body, &detail)
	assert.Equal(t, 100, detail.AvailableSeats)
	assert.Equal(t, "free", detail.SeatRows[0].Seats[0].Status)
	assert.Equal(t, "free", detail.SeatRows[0].Seats[1].Status)
}

func TestResetSoldSeatsNothingSold(t *testing.T) {
	app := newTestApplication(t)
	seedTestSession(t, app, "session_0_0")

	client := newTestClient(t, newTestServer(t, app))

	status, body := client.post("/admin/sessions/reset-sold", nil)
	require.Equal(t, http.StatusOK, status)

	var resp ResetSoldSeatsResponse
	client.decode(body, &resp)

	assert.Equal(t, 0, resp.ClearedSeats)
	assert.Equal(t, 1, resp.SessionsInspected)
	assert.Empty(t, resp.ClearedBySession)
}
