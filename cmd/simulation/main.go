// Command simulation runs the flock without a window: it advances a fixed
// number of steps inside the configured viewport, logs periodic statistics
// and can expose Prometheus metrics while it runs.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/lao-tseu-is-alive/go-flocking-simulation/internal/driver"
	"github.com/lao-tseu-is-alive/go-flocking-simulation/pkg/simulation"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	configFile := flag.String("config", "", "JSON or TOML config file (defaults built in)")
	steps := flag.Int("steps", 1000, "number of steps to simulate")
	reportEvery := flag.Int("report-every", 100, "log flock statistics every N steps (0 disables)")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	seed := flag.Int64("seed", 0, "random seed for the initial positions, overrides the config")
	flag.Parse()

	logger, err := driver.NewLogger(*logLevel, false)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger, *configFile, *steps, *reportEvery, *metricsAddr, *seed); err != nil {
		logger.Error("simulation failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(logger *zap.Logger, configFile string, steps, reportEvery int, metricsAddr string, seed int64) error {
	cfg, err := driver.LoadConfig(configFile)
	if err != nil {
		return err
	}
	if seed != 0 {
		cfg.Seed = seed
	}
	bounds := cfg.Bounds()
	if err := bounds.Validate(); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics, err := simulation.NewMetrics(reg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: metricsMux(metrics), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("serving metrics", zap.String("addr", metricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	flock, usedSeed, err := driver.NewFlock(cfg, logger, simulation.WithObserver(metrics))
	if err != nil {
		return err
	}

	start := time.Now()
	for i := 1; i <= steps; i++ {
		if ctx.Err() != nil {
			logger.Warn("interrupted", zap.Int("completedSteps", i-1))
			break
		}
		flock.Step(bounds)
		if reportEvery > 0 && i%reportEvery == 0 {
			logStats(logger, flock.Stats())
		}
	}

	st := flock.Stats()
	logger.Info("simulation finished",
		zap.Int64("seed", usedSeed),
		zap.Uint64("steps", st.Tick),
		zap.Duration("elapsed", time.Since(start)),
		zap.Float64("meanSpeed", st.MeanSpeed),
		zap.Stringer("centroid", st.Centroid),
	)
	return nil
}

func metricsMux(m *simulation.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}

func logStats(logger *zap.Logger, st simulation.Stats) {
	logger.Info("flock",
		zap.Uint64("tick", st.Tick),
		zap.Int("population", st.Population),
		zap.Float64("meanSpeed", st.MeanSpeed),
		zap.Float64("maxSpeed", st.MaxSpeed),
		zap.Stringer("centroid", st.Centroid),
	)
}
