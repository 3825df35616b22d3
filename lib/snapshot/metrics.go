package snapshot

import (
	"github.com/VictoriaMetrics/metrics"
)

// --------------------------------------------------------------------------
// Metrics
// --------------------------------------------------------------------------

// Counters for the lock protocol. They are process-global like the
// default metrics set they register with; per-lock attribution is not
// needed since an engine runs a single snapshot lock.
var (
	metricReadAcquired  = metrics.NewCounter(`spout_snapshot_read_locks_total`)
	metricCoreAcquired  = metrics.NewCounter(`spout_snapshot_core_read_locks_total`)
	metricWriteAcquired = metrics.NewCounter(`spout_snapshot_write_locks_total`)
	metricWriteTimeouts = metrics.NewCounter(`spout_snapshot_write_lock_timeouts_total`)
)
