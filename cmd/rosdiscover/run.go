package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/appreg/internal/client"
	"github.com/alfredjeanlab/appreg/internal/discovery"
	"github.com/alfredjeanlab/appreg/internal/events"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Discover every entity and register it",
	Long: `Discover every topic, action and service on the ROS graph, decode its
message schema and register it with the application registry.

Without --interval, one pass is made and the command exits non-zero if any
entity failed. With --interval, passes repeat until interrupted.`,
	GroupID: "discovery",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		if !cmd.Flags().Changed("interval") {
			interval = cfg.Interval
		}
		if interval < 0 {
			return fmt.Errorf("--interval must not be negative")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, err := openGraph(cfg)
		if err != nil {
			return err
		}
		defer g.Close()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		metrics := discovery.NewMetrics(reg)
		if metricsAddr != "" {
			srv := serveMetrics(metricsAddr, reg)
			defer srv.Close()
		}

		publisher, err := newEventPublisher(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer publisher.Close()

		registry := client.NewHTTPClient(cfg.RegistryURL)
		defer registry.Close()

		agent := discovery.NewAgent(
			g.enum,
			discovery.NewPublisher(g.decoder, registry),
			discovery.WithWorkers(cfg.Workers),
			discovery.WithMetrics(metrics),
			discovery.WithLogger(slog.Default()),
		)

		if interval == 0 {
			report, err := agent.Run(ctx)
			if err != nil {
				return err
			}
			announce(ctx, publisher, cfg.CallerID, report)
			if err := printReport(report); err != nil {
				return err
			}
			if len(report.Failed) > 0 {
				return fmt.Errorf("%d of %d entities failed", len(report.Failed), len(report.Failed)+len(report.Published))
			}
			return nil
		}

		agent.RunEvery(ctx, interval, func(report *discovery.Report, err error) {
			if err != nil {
				return
			}
			announce(ctx, publisher, cfg.CallerID, report)
			if jsonOutput {
				_ = printReport(report)
			}
		})
		return nil
	},
}

func init() {
	runCmd.Flags().Duration("interval", 0, "repeat discovery at this interval (default from ROSDISCOVER_INTERVAL; 0 runs once)")
	runCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9100)")
}

func newEventPublisher(url string) (events.Publisher, error) {
	if url == "" {
		return &events.NoopPublisher{}, nil
	}
	pub, err := events.NewNATSPublisher(url, "rosdiscover")
	if err != nil {
		return nil, err
	}
	slog.Info("events enabled", "nats_url", url)
	return pub, nil
}

// announce publishes the run summary. Failure to publish is logged only.
func announce(ctx context.Context, pub events.Publisher, agent string, r *discovery.Report) {
	evt := events.DiscoveryCompleted{
		Agent:     agent,
		RunID:     r.RunID,
		Published: len(r.Published),
		Failed:    len(r.Failed),
		Errors:    r.Errors(),
		Duration:  r.Duration,
	}
	if err := pub.Publish(ctx, events.TopicDiscoveryCompleted, evt); err != nil {
		slog.Warn("failed to publish discovery summary", "run", r.RunID, "err", err)
	}
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		slog.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "err", err)
		}
	}()
	return srv
}
