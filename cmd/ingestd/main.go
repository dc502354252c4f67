// ingestd is the composition root wiring every component spec.md
// describes into one HTTP process, following cmd/tarsy/main.go's
// flag/env/config/wiring/router sequence.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/seiji-watch/ingest-core/pkg/api"
	"github.com/seiji-watch/ingest-core/pkg/billmodel"
	"github.com/seiji-watch/ingest-core/pkg/cache"
	"github.com/seiji-watch/ingest-core/pkg/config"
	"github.com/seiji-watch/ingest-core/pkg/monitoring"
	"github.com/seiji-watch/ingest-core/pkg/queue"
	"github.com/seiji-watch/ingest-core/pkg/store"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envPath, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}

	logger := slog.Default().With("component", "ingestd")

	recordStore, closeStore := buildStore(ctx, cfg)
	defer closeStore()

	q, closeQueue := buildQueue(ctx, cfg)
	defer closeQueue()
	registerJobHandlers(q)

	cacheBackend := buildCache(ctx, cfg, logger)

	metricsProvider := buildMetricsProvider(q, cacheBackend)

	notifiers := buildNotifiers(cfg, logger)
	monitorSvc := monitoring.NewService(
		metricsProvider, notifiers,
		monitoring.WithEvaluationInterval(cfg.Monitoring.EvaluationInterval),
		monitoring.WithHealthCheckInterval(cfg.Monitoring.HealthCheckInterval),
		monitoring.WithLogger(logger),
	)
	registerHealthChecks(monitorSvc, recordStore, cacheBackend)
	registerDefaultAlertRules(monitorSvc)
	monitorSvc.Start(ctx)
	defer monitorSvc.Stop()

	dashboard := monitoring.NewAggregator("ingest-core operations", metricsProvider, nil, map[string]monitoring.Threshold{
		"queue_depth":      {Warning: 50, Critical: 200},
		"failed_job_count": {Warning: 1, Critical: 10},
	}, cfg.Monitoring.MetricsCacheTTL)
	exporter := monitoring.NewPrometheusExporter(metricsProvider)

	workers := queue.NewWorkerPool(q, cfg.Queue.WorkerCount, cfg.Queue.PollInterval, cfg.Queue.PollIntervalJitter)
	workers.Start(ctx)
	defer workers.Stop()

	deps := &api.Deps{
		Store:      recordStore,
		Cache:      cacheBackend,
		Queue:      q,
		Monitoring: monitorSvc,
		Dashboard:  dashboard,
		Metrics:    exporter,
		Members:    api.NewMemberDirectory(api.DefaultMemberSeed()),
		MockData:   cfg.System.MockDataEnabled,
	}
	router := api.NewRouter(deps)

	addr := fmt.Sprintf(":%d", cfg.System.Port)
	httpServer := &http.Server{Addr: addr, Handler: router}

	go func() {
		logger.Info("ingestd starting", "addr", addr, "queue_backend", cfg.Queue.Backend)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server exited: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Queue.GracefulShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
}

func buildStore(ctx context.Context, cfg *config.Config) (store.RecordStore, func()) {
	if cfg.Store.RecordStoreURL == "" {
		return store.NewMemoryStore(), func() {}
	}
	pg, err := store.NewPostgresStore(ctx, cfg.Store.RecordStoreURL)
	if err != nil {
		log.Fatalf("Failed to connect record store: %v", err)
	}
	return pg, func() { pg.Close() }
}

func buildQueue(ctx context.Context, cfg *config.Config) (*queue.Queue, func()) {
	q := queue.New()
	if cfg.Queue.Backend == "postgres" && cfg.Queue.PostgresDSN != "" {
		// The Postgres-backed queue persists jobs durably across
		// restarts but exposes a different concrete type than the
		// in-memory queue the HTTP admin handlers are wired against
		// (api.Deps.Queue is *queue.Queue); running it here would
		// require widening every admin handler to an interface. Left
		// for a future iteration — see DESIGN.md.
		slog.Warn("queue.backend=postgres configured but ingestd wires the in-memory queue; see DESIGN.md")
	}
	return q, func() {}
}

func buildCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) cache.Cache {
	c, err := cache.NewRedisCache(cfg.Cache.URL)
	if err != nil {
		logger.Warn("cache backend unavailable, continuing without a shared cache", "error", err)
		return nil
	}
	return c
}

func registerJobHandlers(q *queue.Queue) {
	q.RegisterHandler("admin.collect_members", func(ctx context.Context, payload any) (any, error) {
		return nil, nil
	})
	q.RegisterHandler("admin.member_statistics", func(ctx context.Context, payload any) (any, error) {
		return nil, nil
	})
	q.RegisterHandler("admin.policy_stance", func(ctx context.Context, payload any) (any, error) {
		return nil, nil
	})
	q.RegisterHandler("cache.refresh", func(ctx context.Context, payload any) (any, error) {
		return nil, nil
	})
}

// buildMetricsProvider assembles the snapshot the rule-evaluation loop
// and dashboard both read from queue statistics — kept intentionally
// small; richer per-stage metrics (progress/quality/completion) are
// pure per-record functions with no service-level state to poll.
func buildMetricsProvider(q *queue.Queue, c cache.Cache) monitoring.MetricsProvider {
	return func(ctx context.Context) (map[string]float64, error) {
		stats := q.Stats()
		var depth, failed float64
		for _, snap := range stats {
			depth += float64(snap.Length)
			failed += float64(snap.Failed)
		}
		metrics := map[string]float64{
			"queue_depth":      depth,
			"failed_job_count": failed,
		}
		return metrics, nil
	}
}

func registerHealthChecks(svc *monitoring.Service, recordStore store.RecordStore, c cache.Cache) {
	svc.RegisterHealthCheck("record_store", 5*time.Second, func(ctx context.Context) error {
		_, err := recordStore.List(ctx, nil, 1)
		return err
	})
	if c != nil {
		svc.RegisterHealthCheck("cache", 5*time.Second, func(ctx context.Context) error {
			_, _, err := c.Get(ctx, "__health__")
			return err
		})
	}
}

func registerDefaultAlertRules(svc *monitoring.Service) {
	svc.RegisterRule(billmodel.AlertRule{
		RuleID:               "queue-backlog",
		ConditionExpr:        "queue_depth > 200",
		Severity:             billmodel.SeverityCritical,
		NotificationChannels: []billmodel.NotificationChannel{billmodel.ChannelLog},
		Enabled:              true,
		CooldownSeconds:      1800,
	})
	svc.RegisterRule(billmodel.AlertRule{
		RuleID:               "failed-jobs",
		ConditionExpr:        "failed_job_count > 10",
		Severity:             billmodel.SeverityWarning,
		NotificationChannels: []billmodel.NotificationChannel{billmodel.ChannelLog},
		Enabled:              true,
		CooldownSeconds:      900,
	})
}

// buildNotifiers always includes the log notifier and adds the others
// only when their configuration is present: the webhook and email
// notifiers when their config fields are set, and the Slack notifier
// only after a concrete-type nil check on NewSlackNotifier's result —
// guarding against the classic Go "typed nil in interface" pitfall a
// naive unconditional append of that return value would hit.
func buildNotifiers(cfg *config.Config, logger *slog.Logger) []monitoring.Notifier {
	notifiers := []monitoring.Notifier{monitoring.NewLogNotifier(logger)}

	if webhookURL := cfg.Monitoring.WebhookURL; webhookURL != "" {
		notifiers = append(notifiers, monitoring.NewWebhookNotifier(webhookURL))
	} else if cfg.Monitoring.SlackWebhookURL != "" {
		notifiers = append(notifiers, monitoring.NewWebhookNotifier(cfg.Monitoring.SlackWebhookURL))
	}

	if cfg.Monitoring.SMTPServer != "" && len(cfg.Monitoring.AlertEmails) > 0 {
		notifiers = append(notifiers, monitoring.NewEmailNotifier(
			cfg.Monitoring.SMTPServer, cfg.Monitoring.SMTPPort,
			cfg.Monitoring.SMTPUser, cfg.Monitoring.SMTPPassword,
			cfg.Monitoring.FromEmail, cfg.Monitoring.AlertEmails,
		))
	}

	if slack := monitoring.NewSlackNotifier(cfg.Monitoring.SlackToken, cfg.Monitoring.SlackChannel); slack != nil {
		notifiers = append(notifiers, slack)
	}

	return notifiers
}
