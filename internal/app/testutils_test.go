package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/ekaracan/cinehall/internal/domain"
	"github.com/ekaracan/cinehall/internal/store"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// decimalComparer lets cmp.Diff compare decimal amounts by value.
var decimalComparer = cmp.Comparer(func(a, b decimal.Decimal) bool {
	return a.Equal(b)
})

func newTestApplication(t *testing.T) *Application {
	t.Helper()

	cfg := Config{Env: "test", Store: "memory"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	app, err := New(cfg, logger)
	require.NoError(t, err)

	t.Cleanup(app.Close)

	return app
}

// seedTestSession puts one screening with a full house of free seats into the
// application's store.
func seedTestSession(t *testing.T, app *Application, id string) {
	t.Helper()

	mem, ok := app.store.(*store.Memory)
	require.True(t, ok, "test application must use the memory store")

	err := mem.Create(context.Background(), &domain.Session{
		ID:             id,
		MovieTitle:     "Interstellar",
		Genres:         []string{"Sci-Fi", "Drama"},
		Date:           "2026-09-01",
		Time:           "20:30",
		TotalSeats:     app.layout.TotalSeats(),
		AvailableSeats: app.layout.TotalSeats(),
		PriceRange:     app.layout.PriceRange(),
		Seats:          make(map[domain.SeatID]domain.SeatRecord),
	})
	require.NoError(t, err)
}

// testClient is an HTTP client with its own cookie jar, so each one acts as a
// distinct visitor with its own server-side session.
type testClient struct {
	t      *testing.T
	server *httptest.Server
	client *http.Client
}

func newTestServer(t *testing.T, app *Application) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(app.Routes())
	t.Cleanup(server.Close)

	return server
}

func newTestClient(t *testing.T, server *httptest.Server) *testClient {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testClient{
		t:      t,
		server: server,
		client: &http.Client{Jar: jar},
	}
}

func (tc *testClient) do(method, path string, body any) (int, []byte) {
	tc.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(tc.t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, tc.server.URL+path, reader)
	require.NoError(tc.t, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := tc.client.Do(req)
	require.NoError(tc.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(tc.t, err)

	return resp.StatusCode, raw
}

func (tc *testClient) get(path string) (int, []byte) {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *testClient) post(path string, body any) (int, []byte) {
	return tc.do(http.MethodPost, path, body)
}

func (tc *testClient) decode(raw []byte, dst any) {
	tc.t.Helper()
	require.NoError(tc.t, json.Unmarshal(raw, dst))
}
