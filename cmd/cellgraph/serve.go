package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/cellgraph-dev/cellgraph/internal/config"
	"github.com/cellgraph-dev/cellgraph/pkg/cell"
	"github.com/cellgraph-dev/cellgraph/pkg/live"
	"github.com/cellgraph-dev/cellgraph/pkg/metrics"
	"github.com/cellgraph-dev/cellgraph/pkg/snapshot"
	"github.com/cellgraph-dev/cellgraph/pkg/store"
)

func serveCmd() *cobra.Command {
	var (
		addr      string
		configDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo cell graph behind the live server",
		Long: `Serve builds a small weather-station cell graph and exposes it over
HTTP and WebSocket. Use it to poke at propagation behavior:

  curl localhost:8090/cells
  curl -X POST -d 23.5 localhost:8090/cells/temperature
  websocat ws://localhost:8090/live`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configDir)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Address = addr
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (overrides config)")
	cmd.Flags().StringVarP(&configDir, "config-dir", "c", ".", "Directory containing cellgraph.json")

	return cmd
}

func runServe(cfg *config.Config) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.New(metrics.WithNamespace(cfg.Metrics.Namespace))
		collector.Install()
	}

	st := store.New()
	stopTicker, err := buildDemoGraph(st)
	if err != nil {
		return err
	}
	defer stopTicker()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Snapshot.Backend != "" {
		runner, err := buildSnapshotRunner(cfg, st, logger)
		if err != nil {
			return err
		}
		if err := runner.Restore(ctx); err != nil {
			logger.Warn("snapshot restore failed", "error", err)
		}
		go runner.Run(ctx)
	}

	server := live.New(st, &live.Config{
		Address:   cfg.Address,
		Logger:    logger,
		Tracing:   cfg.Tracing,
		Collector: collector,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	return server.Start()
}

// buildDemoGraph registers a small weather-station graph: two settable
// sources, derived values over them, and an uptime ticker.
func buildDemoGraph(st *store.Store) (stop func(), err error) {
	temperature := cell.NewSource(21.0)
	humidity := cell.NewSource(0.45)
	uptime := cell.NewSource(0)

	// Magnus formula approximation
	dewPoint := cell.Combine2(temperature, humidity, func(t, rh float64) float64 {
		gamma := math.Log(rh) + 17.62*t/(243.12+t)
		return math.Round(243.12*gamma/(17.62-gamma)*10) / 10
	})

	comfort := cell.Combine2(temperature, humidity, func(t, rh float64) string {
		switch {
		case t < 17:
			return "cold"
		case t > 26:
			return "hot"
		case rh > 0.65:
			return "humid"
		default:
			return "comfortable"
		}
	})

	regs := []error{
		store.RegisterSource(st, "temperature", temperature),
		store.RegisterSource(st, "humidity", humidity),
		store.Register[float64](st, "dewPoint", dewPoint),
		store.Register[string](st, "comfort", comfort),
		store.RegisterSource(st, "uptimeSeconds", uptime),
	}
	for _, err := range regs {
		if err != nil {
			return nil, fmt.Errorf("demo graph: %w", err)
		}
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				uptime.Update(func(n int) int { return n + 1 })
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}

// buildSnapshotRunner wires the configured snapshot backend.
func buildSnapshotRunner(cfg *config.Config, st *store.Store, logger *slog.Logger) (*snapshot.Runner, error) {
	var backend snapshot.Store

	switch cfg.Snapshot.Backend {
	case "disk":
		backend = snapshot.NewDiskStore(cfg.Snapshot.Path)
	case "s3":
		client := s3.New(s3.Options{
			Region: os.Getenv("AWS_REGION"),
			Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
				return aws.Credentials{
					AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
					SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
					SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
				}, nil
			}),
		})
		backend = snapshot.NewS3Store(client, cfg.Snapshot.Bucket, cfg.Snapshot.Key)
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Snapshot.Backend)
	}

	return snapshot.NewRunner(st, backend, cfg.Snapshot.Interval(), logger), nil
}
