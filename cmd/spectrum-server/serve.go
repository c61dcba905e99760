package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jihwankim/spectrum-utils/pkg/engine"
	"github.com/jihwankim/spectrum-utils/pkg/monitoring"
	"github.com/jihwankim/spectrum-utils/pkg/reporting"
	"github.com/jihwankim/spectrum-utils/pkg/sharedmem"
	"github.com/jihwankim/spectrum-utils/pkg/trace"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Args:  cobra.NoArgs,
	Short: "Run the histogramming server",
	Long: `Starts the histogram engine, the shared-memory binding thread,
the mirror server and the trace pruner, then blocks until interrupted.`,
	RunE: runServer,
}

func init() {
	serveCmd.Flags().String("mirror-address", "", "mirror listen address (overrides config)")
	serveCmd.Flags().String("shm-file", "", "shared memory file (overrides config)")
}

func runServer(cmd *cobra.Command, args []string) error {
	mirrorAddr, _ := cmd.Flags().GetString("mirror-address")
	shmFile, _ := cmd.Flags().GetString("shm-file")

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if mirrorAddr != "" {
		cfg.Mirror.ListenAddress = mirrorAddr
	}
	if shmFile != "" {
		cfg.SharedMem.File = shmFile
	}

	// Initialize logger
	logLevel := reporting.LogLevel(cfg.Framework.LogLevel)
	if verbose {
		logLevel = reporting.LogLevelDebug
	}
	logger := reporting.NewLogger(reporting.LoggerConfig{
		Level:  logLevel,
		Format: reporting.LogFormat(cfg.Framework.LogFormat),
		Output: os.Stdout,
	})

	logger.Info("Spectrum Server starting", "version", version)

	// Metrics
	var metrics *monitoring.Metrics
	var recorder engine.Recorder
	if cfg.Metrics.Enabled {
		metrics = monitoring.New()
		recorder = metrics
		srv := metrics.Serve(cfg.Metrics.ListenAddress)
		defer srv.Close()
		logger.Info("Metrics exposition started", "address", cfg.Metrics.ListenAddress)
	}

	// Trace store and pruner
	traces := trace.NewStore()
	traces.StartPruner()
	defer traces.StopPruner()

	// Histogram engine
	eng := engine.New(engine.Options{
		Traces:     traces,
		Metrics:    recorder,
		Logger:     logger,
		QueueDepth: cfg.Engine.RequestQueueDepth,
	})
	eng.Start()
	defer eng.Stop()

	// Shared memory region and binding thread
	region, err := sharedmem.NewRegion(cfg.SharedMem.File,
		cfg.SharedMem.SpectrumSlots, cfg.SharedMem.PoolWords())
	if err != nil {
		return fmt.Errorf("failed to create shared memory: %w", err)
	}
	defer region.Close()
	logger.Info("Shared memory created", "file", cfg.SharedMem.File,
		"slots", cfg.SharedMem.SpectrumSlots, "pool_mb", cfg.SharedMem.PoolMegabytes)

	binder := sharedmem.NewBinder(region, eng, traces, logger)
	binder.Start()
	defer binder.Exit()
	if err := binder.SetUpdatePeriod(cfg.SharedMem.Refresh()); err != nil {
		return fmt.Errorf("failed to configure binder: %w", err)
	}

	// Mirror server
	mirror, err := sharedmem.NewMirrorServer(cfg.Mirror.ListenAddress, cfg.Mirror.MaxConnections, region, nil, logger)
	if err != nil {
		return fmt.Errorf("failed to start mirror server: %w", err)
	}
	defer mirror.Close()

	logger.Info("Spectrum Server ready",
		"mirror", mirror.Addr().String(), "shm", cfg.SharedMem.File)

	// Block until interrupted, then unwind in reverse order.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	logger.Info("Shutting down", "signal", sig.String())

	if err := binder.UnbindAll(); err != nil {
		logger.Warn("Unbind-all on shutdown failed", "error", err.Error())
	}
	return nil
}
