package app

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/ekaracan/cinehall/internal/booking"
)

// coordinatorRegistry tracks one BookingCoordinator per client. A client
// views one session at a time: switching sessions closes the previous
// coordinator, which unsubscribes it and drops any hold it still carried.
type coordinatorRegistry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	sessionID   string
	coordinator *booking.Coordinator
}

func newCoordinatorRegistry() *coordinatorRegistry {
	return &coordinatorRegistry{entries: make(map[string]*registryEntry)}
}

func (reg *coordinatorRegistry) closeAll(logger *slog.Logger) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for token, entry := range reg.entries {
		if err := entry.coordinator.Close(); err != nil {
			logger.Error("failed to close booking coordinator", "client", token, "error", err)
		}
		delete(reg.entries, token)
	}
}

// coordinatorFor returns the caller's coordinator for the given session,
// creating it (and tearing down a coordinator for another session) as
// needed.
func (app *Application) coordinatorFor(r *http.Request, sessionID string) (*booking.Coordinator, error) {
	token := app.sessionManager.Token(r.Context())

	reg := app.coordinators

	reg.mu.Lock()
	defer reg.mu.Unlock()

	entry, ok := reg.entries[token]
	if ok && entry.sessionID == sessionID {
		return entry.coordinator, nil
	}

	if ok {
		// Navigated to a different session: the old coordinator's selection
		// and subscription do not carry over.
		if err := entry.coordinator.Close(); err != nil {
			app.logger.Error("failed to close previous booking coordinator",
				"session_id", entry.sessionID, "error", err)
		}
		delete(reg.entries, token)
	}

	coordinator, err := booking.NewCoordinator(r.Context(), app.store, sessionID, app.layout, app.logger)
	if err != nil {
		return nil, err
	}

	reg.entries[token] = &registryEntry{sessionID: sessionID, coordinator: coordinator}

	return coordinator, nil
}

// releaseCoordinator drops a client's coordinator, if present.
func (app *Application) releaseCoordinator(token string) {
	reg := app.coordinators

	reg.mu.Lock()
	defer reg.mu.Unlock()

	entry, ok := reg.entries[token]
	if !ok {
		return
	}

	if err := entry.coordinator.Close(); err != nil {
		app.logger.Error("failed to close booking coordinator", "session_id", entry.sessionID, "error", err)
	}

	delete(reg.entries, token)
}
