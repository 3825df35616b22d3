package snapshot

import (
	"fmt"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Holder bookkeeping types
// --------------------------------------------------------------------------

// holderRecord tracks one plugin holder. Records are immutable values:
// every change swaps the whole record atomically via Compute, so a
// concurrent enumeration never observes a partially updated record.
type holderRecord struct {
	oldest time.Time // acquire time of the oldest hold in the current 0->n episode
	count  int32
}

// --------------------------------------------------------------------------
// SnapshotLock implementation
// --------------------------------------------------------------------------

// snapshotLockImpl implements ISnapshotLock. The underlying
// shared/exclusive lock is a gate-channel design: blocked acquirers wait
// on a broadcast channel that is closed whenever the lock state changes
// in a way that may unblock them. This gives the write path a natural
// timeout via select, which sync.RWMutex cannot provide.
type snapshotLockImpl struct {
	mu      sync.Mutex
	readers int
	writer  bool
	gate    chan struct{}

	// Bookkeeping maps. Distinct holders never contend with each other:
	// each entry is updated through its own per-key atomic Compute.
	holders        *xsync.MapOf[string, holderRecord]
	coreTasks      *xsync.MapOf[string, int32]
	coreGoroutines *xsync.MapOf[uint64, int32]
}

// NewSnapshotLock creates a snapshot lock with empty bookkeeping. The
// bookkeeping maps live for the lifetime of the lock.
func NewSnapshotLock() ISnapshotLock {
	return &snapshotLockImpl{
		gate:           make(chan struct{}),
		holders:        xsync.NewMapOf[string, holderRecord](),
		coreTasks:      xsync.NewMapOf[string, int32](),
		coreGoroutines: xsync.NewMapOf[uint64, int32](),
	}
}

// --------------------------------------------------------------------------
// Underlying shared/exclusive lock
// --------------------------------------------------------------------------

// broadcast wakes all waiters by closing the current gate and installing a
// fresh one. Must be called with mu held.
func (l *snapshotLockImpl) broadcast() {
	close(l.gate)
	l.gate = make(chan struct{})
}

// acquireShared blocks until no writer holds the lock, then registers one
// reader. Readers do not wait for queued writers, matching the non-fair
// discipline of the tick scheduler: the writer path is timeout-bounded
// and retried by its caller.
func (l *snapshotLockImpl) acquireShared() {
	l.mu.Lock()
	for l.writer {
		gate := l.gate
		l.mu.Unlock()
		<-gate
		l.mu.Lock()
	}
	l.readers++
	l.mu.Unlock()
}

// tryAcquireShared registers one reader only if no writer holds the lock.
func (l *snapshotLockImpl) tryAcquireShared() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writer {
		return false
	}
	l.readers++
	return true
}

// releaseShared unregisters one reader and wakes waiting writers once the
// last reader is gone.
func (l *snapshotLockImpl) releaseShared() {
	l.mu.Lock()
	l.readers--
	if l.readers == 0 {
		l.broadcast()
	}
	l.mu.Unlock()
}

// acquireExclusive attempts exclusive access, waiting at most timeout for
// readers to drain. timeout <= 0 degenerates to one non-blocking attempt.
func (l *snapshotLockImpl) acquireExclusive(timeout time.Duration) bool {
	l.mu.Lock()
	if !l.writer && l.readers == 0 {
		l.writer = true
		l.mu.Unlock()
		return true
	}
	if timeout <= 0 {
		l.mu.Unlock()
		return false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		gate := l.gate
		l.mu.Unlock()

		select {
		case <-gate:
		case <-timer.C:
			return false
		}

		l.mu.Lock()
		if !l.writer && l.readers == 0 {
			l.writer = true
			l.mu.Unlock()
			return true
		}
	}
}

// releaseExclusive releases exclusive access and wakes all waiters.
func (l *snapshotLockImpl) releaseExclusive() {
	l.mu.Lock()
	if !l.writer {
		l.mu.Unlock()
		panic("snapshot: ReleaseWrite of an unlocked snapshot lock")
	}
	l.writer = false
	l.broadcast()
	l.mu.Unlock()
}

// --------------------------------------------------------------------------
// Plugin read locks
// --------------------------------------------------------------------------

// AcquireRead blocks until shared access is granted and registers the
// holder.
//
// Thread-safety: this method is thread-safe and can be called concurrently.
func (l *snapshotLockImpl) AcquireRead(holder string) error {
	if holder == "" {
		return ErrEmptyHolder
	}
	l.acquireShared()
	l.registerHolder(holder)
	metricReadAcquired.Inc()
	return nil
}

// TryAcquireRead attempts shared access without blocking. The holder is
// registered only on success.
//
// Thread-safety: this method is thread-safe and can be called concurrently.
func (l *snapshotLockImpl) TryAcquireRead(holder string) (bool, error) {
	if holder == "" {
		return false, ErrEmptyHolder
	}
	if !l.tryAcquireShared() {
		return false, nil
	}
	l.registerHolder(holder)
	metricReadAcquired.Inc()
	return true, nil
}

// ReleaseRead releases one shared hold of the holder. The bookkeeping is
// validated and updated before the underlying lock is touched, so an
// unmatched release never corrupts the reader count.
//
// Thread-safety: this method is thread-safe and can be called concurrently.
func (l *snapshotLockImpl) ReleaseRead(holder string) error {
	if holder == "" {
		return ErrEmptyHolder
	}
	if err := l.unregisterHolder(holder); err != nil {
		return err
	}
	l.releaseShared()
	return nil
}

// registerHolder increments the holder's active count. A transition from
// zero resets the stall age; otherwise the oldest hold timestamp is kept.
func (l *snapshotLockImpl) registerHolder(holder string) {
	now := time.Now()
	l.holders.Compute(holder, func(r holderRecord, loaded bool) (holderRecord, bool) {
		if !loaded || r.count == 0 {
			return holderRecord{oldest: now, count: 1}, false
		}
		return holderRecord{oldest: r.oldest, count: r.count + 1}, false
	})
}

// unregisterHolder decrements the holder's active count. The record stays
// in the map at count zero; it is cheap and preserves the map shape for
// holders that lock periodically.
func (l *snapshotLockImpl) unregisterHolder(holder string) error {
	var errOut error
	l.holders.Compute(holder, func(r holderRecord, loaded bool) (holderRecord, bool) {
		if !loaded || r.count <= 0 {
			errOut = fmt.Errorf("%w (holder %q)", ErrNotReadLocked, holder)
			return r, !loaded
		}
		return holderRecord{oldest: r.oldest, count: r.count - 1}, false
	})
	return errOut
}

// --------------------------------------------------------------------------
// Core read locks
// --------------------------------------------------------------------------

// AcquireCoreRead blocks until shared access is granted for an internal
// task and updates both the task and the calling goroutine counter.
//
// Thread-safety: this method is thread-safe and can be called concurrently.
func (l *snapshotLockImpl) AcquireCoreRead(task string) error {
	if task == "" {
		return ErrEmptyTask
	}
	l.acquireShared()
	l.incrementCore(task)
	metricCoreAcquired.Inc()
	return nil
}

// TryAcquireCoreRead attempts shared access for a core task without
// blocking. Counters are updated only on success.
//
// Thread-safety: this method is thread-safe and can be called concurrently.
func (l *snapshotLockImpl) TryAcquireCoreRead(task string) (bool, error) {
	if task == "" {
		return false, ErrEmptyTask
	}
	if !l.tryAcquireShared() {
		return false, nil
	}
	l.incrementCore(task)
	metricCoreAcquired.Inc()
	return true, nil
}

// ReleaseCoreRead releases one shared hold of the core task. Both
// counters must have a matching acquire; the release must happen on a
// goroutine that holds a core read lock.
//
// Thread-safety: this method is thread-safe and can be called concurrently.
func (l *snapshotLockImpl) ReleaseCoreRead(task string) error {
	if task == "" {
		return ErrEmptyTask
	}
	if err := l.decrementCore(task); err != nil {
		return err
	}
	l.releaseShared()
	return nil
}

// incrementCore bumps the task counter and the calling goroutine counter.
func (l *snapshotLockImpl) incrementCore(task string) {
	l.coreTasks.Compute(task, func(n int32, _ bool) (int32, bool) {
		return n + 1, false
	})
	l.coreGoroutines.Compute(goroutineID(), func(n int32, _ bool) (int32, bool) {
		return n + 1, false
	})
}

// decrementCore validates and decrements both core counters. Unlike the
// plugin holder map, entries are removed at zero so the diagnostic
// enumerations list only currently locking tasks and goroutines.
func (l *snapshotLockImpl) decrementCore(task string) error {
	var errOut error

	l.coreTasks.Compute(task, func(n int32, loaded bool) (int32, bool) {
		if !loaded || n <= 0 {
			errOut = fmt.Errorf("%w (task %q)", ErrCoreNotLocked, task)
			return n, !loaded
		}
		return n - 1, n == 1
	})
	if errOut != nil {
		return errOut
	}

	gid := goroutineID()
	l.coreGoroutines.Compute(gid, func(n int32, loaded bool) (int32, bool) {
		if !loaded || n <= 0 {
			errOut = fmt.Errorf("%w (goroutine %d)", ErrCoreNotLocked, gid)
			return n, !loaded
		}
		return n - 1, n == 1
	})
	return errOut
}

// --------------------------------------------------------------------------
// Write lock
// --------------------------------------------------------------------------

// AcquireWrite attempts exclusive access bounded by timeout. Timing out is
// a normal outcome reported via the boolean result, never an error.
//
// Thread-safety: this method is thread-safe and can be called concurrently.
func (l *snapshotLockImpl) AcquireWrite(timeout time.Duration) bool {
	if l.acquireExclusive(timeout) {
		metricWriteAcquired.Inc()
		return true
	}
	metricWriteTimeouts.Inc()
	return false
}

// ReleaseWrite releases exclusive access.
//
// Thread-safety: this method is thread-safe and can be called concurrently.
func (l *snapshotLockImpl) ReleaseWrite() {
	l.releaseExclusive()
}

// --------------------------------------------------------------------------
// Diagnostics
// --------------------------------------------------------------------------

// StalledHolders returns every plugin holder with an active hold older
// than threshold. The enumeration is weakly consistent: it never blocks
// concurrent acquires or releases.
//
// Thread-safety: this method is thread-safe and can be called concurrently.
func (l *snapshotLockImpl) StalledHolders(threshold time.Duration) []string {
	now := time.Now()
	var stalled []string
	l.holders.Range(func(holder string, r holderRecord) bool {
		if r.count > 0 && now.Sub(r.oldest) > threshold {
			stalled = append(stalled, holder)
		}
		return true
	})
	return stalled
}

// ActiveCoreTasks returns the names of all core tasks currently holding
// shared access.
//
// Thread-safety: this method is thread-safe and can be called concurrently.
func (l *snapshotLockImpl) ActiveCoreTasks() []string {
	var tasks []string
	l.coreTasks.Range(func(task string, _ int32) bool {
		tasks = append(tasks, task)
		return true
	})
	return tasks
}

// CoreLockingGoroutines returns the IDs of all goroutines currently
// holding core read locks.
//
// Thread-safety: this method is thread-safe and can be called concurrently.
func (l *snapshotLockImpl) CoreLockingGoroutines() []uint64 {
	var ids []uint64
	l.coreGoroutines.Range(func(id uint64, _ int32) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}
