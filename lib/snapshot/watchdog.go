package snapshot

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// --------------------------------------------------------------------------
// Watchdog
// --------------------------------------------------------------------------

// Watchdog periodically samples a snapshot lock's diagnostics and reports
// holders that stall the exclusive phase. It is a pure consumer of the
// diagnostic enumerations: it never touches the lock protocol itself.
type Watchdog struct {
	lock      ISnapshotLock
	threshold time.Duration
	interval  time.Duration
	logger    *slog.Logger

	stalled atomic.Int64

	stop chan struct{}
	done chan struct{}
}

// NewWatchdog creates a watchdog reporting holders whose oldest hold is
// older than threshold, sampling every interval. A nil logger falls back
// to slog.Default().
func NewWatchdog(lock ISnapshotLock, threshold, interval time.Duration, logger *slog.Logger) *Watchdog {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watchdog{
		lock:      lock,
		threshold: threshold,
		interval:  interval,
		logger:    logger,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	metrics.GetOrCreateGauge(`spout_snapshot_stalled_holders`, func() float64 {
		return float64(w.stalled.Load())
	})
	return w
}

// Start launches the sampling loop in its own goroutine.
func (w *Watchdog) Start() {
	go w.run()
}

// Stop terminates the sampling loop and waits for it to exit.
func (w *Watchdog) Stop() {
	close(w.stop)
	<-w.done
}

func (w *Watchdog) run() {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.sample()
		}
	}
}

// sample takes one weakly-consistent look at the lock's bookkeeping and
// logs every holder exceeding the stall threshold.
func (w *Watchdog) sample() {
	stalled := w.lock.StalledHolders(w.threshold)
	w.stalled.Store(int64(len(stalled)))

	if len(stalled) == 0 {
		return
	}

	w.logger.Warn("snapshot lock held past stall threshold",
		"threshold", w.threshold,
		"holders", stalled,
		"core_tasks", w.lock.ActiveCoreTasks(),
		"core_goroutines", w.lock.CoreLockingGoroutines(),
	)
}
