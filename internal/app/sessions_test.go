package app

import (
	"net/http"
	"testing"

	"github.com/ekaracan/cinehall/internal/domain"
	"github.com/ekaracan/cinehall/internal/mocks"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHealthcheck(t *testing.T) {
	app := newTestApplication(t)
	client := newTestClient(t, newTestServer(t, app))

	status, body := client.get("/health")
	require.Equal(t, http.StatusOK, status)

	var resp map[string]string
	client.decode(body, &resp)

	assert.Equal(t, "available", resp["status"])
	assert.Equal(t, "test", resp["environment"])
}

func TestListSessions(t *testing.T) {
	app := newTestApplication(t)
	seedTestSession(t, app, "session_0_0")
	seedTestSession(t, app, "session_0_1")

	client := newTestClient(t, newTestServer(t, app))

	status, body := client.get("/sessions")
	require.Equal(t, http.StatusOK, status)

	var resp SessionListResponse
	client.decode(body, &resp)

	summary := func(id string) SessionSummary {
		return SessionSummary{
			Id:             id,
			MovieTitle:     "Interstellar",
			Genres:         []string{"Sci-Fi", "Drama"},
			Date:           "2026-09-01",
			Time:           "20:30",
			AvailableSeats: 100,
			TotalSeats:     100,
			PriceRange:     app.layout.PriceRange(),
		}
	}

	want := SessionListResponse{
		Sessions: []SessionSummary{summary("session_0_0"), summary("session_0_1")},
	}

	if diff := cmp.Diff(want, resp, decimalComparer); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestGetSession(t *testing.T) {
	app := newTestApplication(t)
	seedTestSession(t, app, "session_0_0")

	client := newTestClient(t, newTestServer(t, app))

	status, body := client.get("/sessions/session_0_0")
	require.Equal(t, http.StatusOK, status)

	var resp SessionDetailResponse
	client.decode(body, &resp)

	assert.Equal(t, "session_0_0", resp.Id)
	require.Len(t, resp.SeatRows, 10)

	firstRow := resp.SeatRows[0]
	require.Len(t, firstRow.Seats, 10)
	assert.Equal(t, "economy", firstRow.Seats[0].Category)
	assert.Equal(t, "free", firstRow.Seats[0].Status)

	center := resp.SeatRows[4].Seats[4] // row 5, column 5
	assert.Equal(t, "premium", center.Category)
}

func TestGetSessionNotFound(t *testing.T) {
	app := newTestApplication(t)

	client := newTestClient(t, newTestServer(t, app))

	status, _ := client.get("/sessions/nope")

	assert.Equal(t, http.StatusNotFound, status)
}

func TestListSessionsStoreDown(t *testing.T) {
	app := newTestApplication(t)

	mockStore := new(mocks.MockSessionStore)
	mockStore.On("ListAll", mock.Anything).Return(nil, domain.ErrStoreUnavailable)
	app.store = mockStore

	client := newTestClient(t, newTestServer(t, app))

	status, body := client.get("/sessions")
	require.Equal(t, http.StatusServiceUnavailable, status)

	var resp ErrorResponse
	client.decode(body, &resp)
	assert.Equal(t, ErrStoreDown, resp.Message)

	mockStore.AssertExpectations(t)
}

func TestGetSessionStoreDown(t *testing.T) {
	app := newTestApplication(t)

	mockStore := new(mocks.MockSessionStore)
	mockStore.On("Get", mock.Anything, "session_0_0").Return(nil, domain.ErrStoreUnavailable)
	app.store = mockStore

	client := newTestClient(t, newTestServer(t, app))

	status, _ := client.get("/sessions/session_0_0")

	assert.Equal(t, http.StatusServiceUnavailable, status)
	mockStore.AssertExpectations(t)
}
