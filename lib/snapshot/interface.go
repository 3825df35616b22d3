package snapshot

import (
	"errors"
	"time"
)

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrEmptyHolder is returned when a plugin lock operation is called
	// with an empty holder identity.
	ErrEmptyHolder = errors.New("holder identity may not be empty")

	// ErrEmptyTask is returned when a core lock operation is called with
	// an empty task name.
	ErrEmptyTask = errors.New("task name may not be empty")

	// ErrNotReadLocked is returned when a read lock is released by a
	// holder without a matching prior acquire.
	ErrNotReadLocked = errors.New("release without a previously acquired read lock")

	// ErrCoreNotLocked is returned when a core read lock is released
	// although the task or the calling goroutine holds none.
	ErrCoreNotLocked = errors.New("core read lock was already released")
)

// --------------------------------------------------------------------------
// Interface
// --------------------------------------------------------------------------

// ISnapshotLock mediates access to the periodically committed world
// snapshot: many concurrent shared readers against a single exclusive
// writer, with per-holder bookkeeping so a watchdog can identify holders
// that delay the exclusive phase.
//
// Two independent readership classes exist. Plugin readers are keyed by a
// holder identity; core readers are keyed by a task name and additionally
// tracked per calling goroutine. Both classes share the same underlying
// shared/exclusive lock.
//
// All errors returned by this interface indicate caller bugs (unmatched
// releases, invalid identifiers). They are raised immediately and must
// propagate; they are never a normal outcome. A write acquisition running
// into its timeout is a normal outcome, not an error.
type ISnapshotLock interface {
	// AcquireRead blocks until shared access is granted and registers it
	// for the given holder. A holder acquiring its first lock (count 0
	// to 1) has its stall age reset.
	AcquireRead(holder string) error

	// TryAcquireRead attempts shared access without blocking. The holder
	// is registered only on success.
	TryAcquireRead(holder string) (bool, error)

	// ReleaseRead releases one shared hold of the given holder. It fails
	// with ErrNotReadLocked if the holder has no active hold.
	ReleaseRead(holder string) error

	// AcquireCoreRead blocks until shared access is granted for an
	// engine-internal task. Both the task counter and the calling
	// goroutine's counter are incremented.
	AcquireCoreRead(task string) error

	// TryAcquireCoreRead attempts shared access for a core task without
	// blocking. Counters are updated only on success.
	TryAcquireCoreRead(task string) (bool, error)

	// ReleaseCoreRead releases one shared hold of the given core task.
	// It fails with ErrCoreNotLocked if the task or the calling
	// goroutine holds no core read lock.
	ReleaseCoreRead(task string) error

	// AcquireWrite attempts exclusive access, waiting at most timeout.
	// A timeout of zero or less means a single non-blocking attempt.
	// The boolean result reports success; a timeout is not an error and
	// callers must treat it as retry-or-skip.
	AcquireWrite(timeout time.Duration) bool

	// ReleaseWrite releases exclusive access.
	ReleaseWrite()

	// StalledHolders returns every plugin holder with at least one
	// active hold whose oldest hold is older than threshold.
	StalledHolders(threshold time.Duration) []string

	// ActiveCoreTasks returns the names of all core tasks currently
	// holding shared access.
	ActiveCoreTasks() []string

	// CoreLockingGoroutines returns the IDs of all goroutines currently
	// holding core read locks.
	CoreLockingGoroutines() []uint64
}
