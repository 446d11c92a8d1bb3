package domain

import (
	"context"
	"time"
)

// PatchGuard is the precondition attached to a single seat-patch entry. The
// store evaluates all guards of a patch atomically with the writes, so the
// hold/sale transition rules hold across concurrent clients without any
// client-side locking.
type PatchGuard string

const (
	// GuardNone applies the entry unconditionally.
	GuardNone PatchGuard = "none"

	// GuardAbsent requires the seat to have no record (implicitly free).
	// Violations fail the whole patch with SeatUnavailableError.
	GuardAbsent PatchGuard = "absent"

	// GuardHeldBy requires the seat to be held by Reservation. A different
	// or missing holder fails the patch with ErrReservationMismatch; a
	// matching holder older than MaxAge fails with ErrReservationExpired.
	GuardHeldBy PatchGuard = "held-by"

	// GuardReleaseIfHeldBy applies the entry only while the seat is held by
	// Reservation and silently skips it otherwise. It never fails the
	// patch, which is what makes release idempotent.
	GuardReleaseIfHeldBy PatchGuard = "release-if-held-by"
)

// SeatPatchEntry is one instruction of a partial seat-map update. A nil
// Record is a tombstone: remove the seat's entry.
type SeatPatchEntry struct {
	Record      *SeatRecord
	Guard       PatchGuard
	Reservation string
	MaxAge      time.Duration // GuardHeldBy only; zero means no age check
}

// SeatPatch is a partial update of a session's seat map. Stores apply it
// all-or-nothing: either every entry passes its guard and every write lands,
// or nothing changes.
type SeatPatch map[SeatID]SeatPatchEntry

// Subscription delivers the IDs of sessions whose documents changed.
type Subscription interface {
	Updates() <-chan string
	Close() error
}

// SessionStore is the document store the booking core runs against. One
// document per session; partial updates and deletions are atomic per call,
// and that atomicity is the sole serialization point between clients.
// Backend failures surface as errors wrapping ErrStoreUnavailable.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*Session, error)
	ListAll(ctx context.Context) ([]Session, error)
	Create(ctx context.Context, session *Session) error
	ApplySeatPatch(ctx context.Context, sessionID string, patch SeatPatch) error
	SetAvailableCount(ctx context.Context, sessionID string, count int) error

	// ClearSoldSeats removes every sold seat entry of one session and
	// increments its available count accordingly, atomically. It returns
	// the number of seats cleared. Administrative surface, not part of the
	// booking flow.
	ClearSoldSeats(ctx context.Context, sessionID string) (int, error)

	Subscribe(ctx context.Context) (Subscription, error)
}
