package sim

import (
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	gometrics "github.com/rcrowley/go-metrics"
	cmdUtil "github.com/somners/Spout/cmd/util"
	"github.com/somners/Spout/lib/dynamic"
	"github.com/somners/Spout/lib/snapshot"
	"github.com/somners/Spout/lib/spatial"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	simConfig = &config{}

	// SimCmd runs a synthetic tick loop: many reader workers against one
	// committing scheduler, to exercise the snapshot lock under load and
	// to observe the watchdog output.
	SimCmd = &cobra.Command{
		Use:     "sim",
		Short:   "Run a synthetic tick loop to exercise the snapshot lock",
		Long:    cmdUtil.WrapString("Spins up a set of reader workers that hold the snapshot lock while producing scheduled block updates, and a scheduler that periodically acquires the write lock to commit due updates. Prints lock statistics afterwards. Configuration can be set via flags or environment variables (SPOUT_<flag>, e.g. SPOUT_READERS=16)."),
		PreRunE: processConfig,
		RunE:    run,
	}
)

type config struct {
	Readers        int
	Duration       time.Duration
	HoldTime       time.Duration
	TickInterval   time.Duration
	WriteTimeout   time.Duration
	StallThreshold time.Duration
	Endpoint       string
}

func init() {
	cobra.OnInitialize(cmdUtil.InitConfig)

	key := "readers"
	SimCmd.PersistentFlags().Int(key, 8, cmdUtil.WrapString("Number of reader workers"))

	key = "duration"
	SimCmd.PersistentFlags().Duration(key, 5*time.Second, cmdUtil.WrapString("How long to run the simulation"))

	key = "hold"
	SimCmd.PersistentFlags().Duration(key, 2*time.Millisecond, cmdUtil.WrapString("How long each worker holds the read lock per iteration. One worker deliberately holds past the stall threshold to trip the watchdog"))

	key = "tick"
	SimCmd.PersistentFlags().Duration(key, 50*time.Millisecond, cmdUtil.WrapString("Interval between scheduler ticks"))

	key = "write-timeout"
	SimCmd.PersistentFlags().Duration(key, 20*time.Millisecond, cmdUtil.WrapString("Timeout for each write lock attempt. A timed out attempt skips the tick"))

	key = "stall-threshold"
	SimCmd.PersistentFlags().Duration(key, 100*time.Millisecond, cmdUtil.WrapString("Hold age above which the watchdog reports a holder"))

	key = "metrics-endpoint"
	SimCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Optional address to serve Prometheus metrics on (e.g. localhost:9100). Empty disables the endpoint"))
}

// processConfig reads the configuration from the command line flags and
// environment variables
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	simConfig.Readers = viper.GetInt("readers")
	simConfig.Duration = viper.GetDuration("duration")
	simConfig.HoldTime = viper.GetDuration("hold")
	simConfig.TickInterval = viper.GetDuration("tick")
	simConfig.WriteTimeout = viper.GetDuration("write-timeout")
	simConfig.StallThreshold = viper.GetDuration("stall-threshold")
	simConfig.Endpoint = viper.GetString("metrics-endpoint")

	if simConfig.Readers < 1 {
		return fmt.Errorf("readers must be at least 1, got %d", simConfig.Readers)
	}
	if simConfig.StallThreshold <= 0 {
		return fmt.Errorf("stall-threshold must be positive, got %v", simConfig.StallThreshold)
	}
	if simConfig.TickInterval <= 0 {
		return fmt.Errorf("tick must be positive, got %v", simConfig.TickInterval)
	}
	return nil
}

func run(_ *cobra.Command, _ []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	lock := snapshot.NewSnapshotLock()

	watchdog := snapshot.NewWatchdog(lock, simConfig.StallThreshold, simConfig.StallThreshold/2, logger)
	watchdog.Start()
	defer watchdog.Stop()

	if simConfig.Endpoint != "" {
		go serveMetrics(simConfig.Endpoint, logger)
	}

	var (
		stop      = make(chan struct{})
		pending   = make(chan *dynamic.BlockUpdate, 4096)
		waitTimer = gometrics.NewTimer()
		wg        sync.WaitGroup
	)

	// Reader workers: hold shared access while producing updates. Worker
	// zero is the designated laggard that trips the watchdog.
	for i := 0; i < simConfig.Readers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runWorker(lock, fmt.Sprintf("worker-%d", id), id == 0, stop, pending)
		}(i)
	}

	// Scheduler: commit due updates under the write lock once per tick.
	stats := &schedulerStats{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		runScheduler(lock, stop, pending, waitTimer, stats)
	}()

	time.Sleep(simConfig.Duration)
	close(stop)
	wg.Wait()

	printSummary(lock, waitTimer, stats)
	return nil
}

// --------------------------------------------------------------------------
// Workers
// --------------------------------------------------------------------------

func runWorker(lock snapshot.ISnapshotLock, holder string, laggard bool, stop <-chan struct{}, pending chan<- *dynamic.BlockUpdate) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	hold := simConfig.HoldTime
	if laggard {
		// Hold well past the stall threshold so the watchdog has
		// something to report.
		hold = 2 * simConfig.StallThreshold
	}

	for {
		select {
		case <-stop:
			return
		default:
		}

		if err := lock.AcquireRead(holder); err != nil {
			panic(err)
		}

		// Produce a scheduled update somewhere in the region, due a few
		// ticks from now.
		update := dynamic.NewBlockUpdate(
			rng.Intn(spatial.RegionBlocks),
			rng.Intn(spatial.RegionBlocks),
			rng.Intn(spatial.RegionBlocks),
			time.Now().Add(time.Duration(rng.Intn(5))*simConfig.TickInterval).UnixNano(),
			int32(rng.Intn(1<<16)),
		)
		select {
		case pending <- update:
		default:
			// Scheduler is behind; drop rather than block under the lock.
		}

		time.Sleep(hold)

		if err := lock.ReleaseRead(holder); err != nil {
			panic(err)
		}
	}
}

// --------------------------------------------------------------------------
// Scheduler
// --------------------------------------------------------------------------

type schedulerStats struct {
	ticks     int
	committed int
	skipped   int
	applied   int
}

func runScheduler(lock snapshot.ISnapshotLock, stop <-chan struct{}, pending <-chan *dynamic.BlockUpdate, waitTimer gometrics.Timer, stats *schedulerStats) {
	// Chunk-keyed buckets of pending updates, chained intrusively. Only
	// ever touched while holding the write lock.
	buckets := make(map[uint32]*dynamic.BlockUpdate)

	ticker := time.NewTicker(simConfig.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		stats.ticks++

		start := time.Now()
		ok := lock.AcquireWrite(simConfig.WriteTimeout)
		waitTimer.UpdateSince(start)

		if !ok {
			stats.skipped++
			continue
		}

		insertPending(buckets, pending)
		stats.applied += drainDue(buckets, time.Now().UnixNano())
		stats.committed++

		lock.ReleaseWrite()
	}
}

// insertPending links all queued updates into their chunk bucket's chain.
func insertPending(buckets map[uint32]*dynamic.BlockUpdate, pending <-chan *dynamic.BlockUpdate) {
	for {
		select {
		case update := <-pending:
			key := update.ChunkKey()
			if head := buckets[key]; head == nil {
				buckets[key] = update
			} else {
				newHead, err := head.Add(update)
				if err != nil {
					panic(err)
				}
				buckets[key] = newHead
			}
		default:
			return
		}
	}
}

// drainDue unlinks and applies every update that is due at the given
// tick, in due order, and returns how many were applied.
func drainDue(buckets map[uint32]*dynamic.BlockUpdate, now int64) int {
	var due []*dynamic.BlockUpdate
	for _, head := range buckets {
		for u := head; u != nil; u = u.Next() {
			if u.Due() <= now {
				due = append(due, u)
			}
		}
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].Compare(due[j]) < 0
	})

	for _, u := range due {
		key := u.ChunkKey()
		newHead := buckets[key].Remove(u)
		if newHead == nil {
			delete(buckets, key)
		} else {
			buckets[key] = newHead
		}
	}
	return len(due)
}

// --------------------------------------------------------------------------
// Reporting
// --------------------------------------------------------------------------

func serveMetrics(endpoint string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})
	if err := http.ListenAndServe(endpoint, mux); err != nil {
		logger.Error("metrics endpoint failed", "endpoint", endpoint, "err", err)
	}
}

func printSummary(lock snapshot.ISnapshotLock, waitTimer gometrics.Timer, stats *schedulerStats) {
	fmt.Println()
	fmt.Println("SIMULATION SUMMARY")
	fmt.Printf("  %-22s: %d\n", "Ticks", stats.ticks)
	fmt.Printf("  %-22s: %d\n", "Commits", stats.committed)
	fmt.Printf("  %-22s: %d\n", "Skipped (timeout)", stats.skipped)
	fmt.Printf("  %-22s: %d\n", "Updates applied", stats.applied)
	fmt.Printf("  %-22s: %.2fms\n", "Write wait mean", waitTimer.Mean()/float64(time.Millisecond))
	fmt.Printf("  %-22s: %.2fms\n", "Write wait p95", waitTimer.Percentile(0.95)/float64(time.Millisecond))
	fmt.Printf("  %-22s: %.2fms\n", "Write wait p99", waitTimer.Percentile(0.99)/float64(time.Millisecond))
	fmt.Printf("  %-22s: %v\n", "Stalled holders", lock.StalledHolders(simConfig.StallThreshold))
	fmt.Printf("  %-22s: %v\n", "Active core tasks", lock.ActiveCoreTasks())
}
