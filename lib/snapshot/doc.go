// Package snapshot implements the lock coordinating access to the world
// snapshot of the tick engine: many concurrent shared readers against the
// single exclusive writer that commits pending mutations between ticks.
//
// The package focuses on:
//   - A shared/exclusive lock whose write acquisition is bounded by a
//     caller-supplied timeout, reported as a boolean outcome
//   - Per-holder diagnostic bookkeeping so a watchdog can identify
//     holders that delay the exclusive phase
//
// Readership Classes:
//
//	Plugin readers are keyed by an opaque holder identity. For each holder
//	the lock tracks its active hold count and the acquire time of the
//	oldest hold in the current episode; dropping to zero and re-acquiring
//	resets that age. Core readers belong to engine-internal tasks and are
//	keyed by task name, with an additional per-goroutine counter so the
//	watchdog can name the goroutines involved.
//
// Bookkeeping Consistency:
//
//	The bookkeeping maps are xsync.MapOf instances holding immutable value
//	records. Every update swaps the whole record through a per-key atomic
//	Compute, so concurrent increments and decrements of the same holder
//	never lose updates, registration of distinct holders never contends,
//	and a diagnostic enumeration never observes a partially updated
//	record. Enumerations are weakly consistent and never block writers.
//
// Failure Semantics:
//
//	Releasing a lock that was never acquired, or driving any counter
//	negative, is a caller bug. Such calls fail immediately with a sentinel
//	error and leave both the bookkeeping and the underlying lock
//	untouched. A write acquisition that runs into its timeout is a normal
//	outcome and must be treated as retry-or-skip.
//
// Usage Example:
//
//	lock := snapshot.NewSnapshotLock()
//
//	// Worker thread reading the snapshot
//	if err := lock.AcquireRead("my-plugin"); err != nil {
//	    // Handle error
//	}
//	// ... read world state ...
//	if err := lock.ReleaseRead("my-plugin"); err != nil {
//	    // Handle error
//	}
//
//	// Scheduler committing between ticks
//	if lock.AcquireWrite(20 * time.Millisecond) {
//	    // ... apply pending updates, swap snapshot ...
//	    lock.ReleaseWrite()
//	} else {
//	    // Timed out: skip this tick and let the watchdog report
//	    for _, holder := range lock.StalledHolders(time.Second) {
//	        log.Printf("snapshot lock stalled by %s", holder)
//	    }
//	}
package snapshot
