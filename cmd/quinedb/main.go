package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/quinedb/quinedb/internal/config"
	"github.com/quinedb/quinedb/internal/dispatch"
	"github.com/quinedb/quinedb/internal/hashing"
	"github.com/quinedb/quinedb/internal/ioengine"
	"github.com/quinedb/quinedb/internal/logger"
	"github.com/quinedb/quinedb/internal/snapshot"
	"github.com/quinedb/quinedb/internal/topology"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

// run does the actual work and returns the process exit code, keeping
// main itself trivial and defer-safe (os.Exit skips deferred calls, so it
// must be the very last thing that happens).
func run() int {
	loader := config.New(".")
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		return 1
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer log.Sync() //nolint:errcheck

	n := cfg.Server.WorkerThreads
	if n <= 0 {
		n = runtime.NumCPU()
	}

	algo, err := hashing.ParseAlgorithm(cfg.Server.ShardingAlgorithm)
	if err != nil {
		log.Error("bad sharding algorithm", zap.Error(err))
		return 1
	}
	router, err := hashing.New(algo, n)
	if err != nil {
		log.Error("cannot build router", zap.Error(err))
		return 1
	}

	tp := topology.New(n, router)

	var driver *snapshot.Driver
	if cfg.Persistence.RDB.Enabled {
		driver = snapshot.NewDriver(cfg.Persistence.RDB, afero.NewOsFs(), log.Logger)
		if err := driver.Load(tp); err != nil {
			log.Error("failed to load snapshot", zap.Error(err))
			return 1
		}
	}

	registry := dispatch.NewRegistry(driver)
	connIDs := &ioengine.ConnIDAllocator{}

	log.Info("QuineDB starting",
		zap.Int("port", cfg.Server.Port),
		zap.Int("workers", n),
		zap.String("sharding_algorithm", router.Algorithm().String()),
	)

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))

	workers := make([]*ioengine.Worker, n)
	stops := make([]chan struct{}, n)
	for i := 0; i < n; i++ {
		ln, err := ioengine.Listen("tcp", addr)
		if err != nil {
			log.Error("listener error", zap.Error(err))
			return 1
		}
		l := ioengine.NewListener(ln, log.Logger)
		workers[i] = ioengine.NewWorker(i, tp, registry, l, connIDs, cfg.GC, log.Logger)
		stops[i] = make(chan struct{})
	}

	var wg sync.WaitGroup
	for i, w := range workers {
		wg.Add(1)
		go func(w *ioengine.Worker, stop chan struct{}) {
			defer wg.Done()
			w.Run(stop)
		}(w, stops[i])
	}

	// Only ambient settings ever reach here: log verbosity and GC cadence.
	// ServerConfig's topology fields were already read once, above, and
	// nothing re-reads them.
	loader.OnChange(func(reloaded *config.Config) {
		log.SetLevel(reloaded.Log.Level)
		for _, w := range workers {
			w.ReloadGC(reloaded.GC)
		}
		log.Info("config reloaded", zap.String("log_level", reloaded.Log.Level))
	})
	loader.WatchAndReload()

	log.Info("listening on", zap.String("address", addr))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down...")
	for _, s := range stops {
		close(s)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("all workers stopped gracefully")
	case <-time.After(5 * time.Second):
		log.Warn("shutdown timed out, forcing exit", zap.Duration("timeout", 5*time.Second))
	}

	log.Info("QuineDB stopped")
	return 0
}
