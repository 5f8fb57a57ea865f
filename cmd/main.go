package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/matchlog/internal/adapters/http/api"
	"github.com/okian/matchlog/internal/adapters/mq/notify"
	service "github.com/okian/matchlog/internal/app"
	"github.com/okian/matchlog/internal/config"
	"github.com/okian/matchlog/internal/domain/scoring"
	"github.com/okian/matchlog/internal/domain/source"
	"github.com/okian/matchlog/pkg/logger"
	"github.com/okian/matchlog/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger is not configured yet.
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := buildService(cfg, log)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		os.Exit(1)
	}
	defer svc.Stop()

	go startServiceMetricsUpdater(ctx, svc)

	srv := newHTTPServer(ctx, cfg, svc)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
}

// buildService wires the pipeline, notifier and store settings from cfg.
func buildService(cfg *config.Config, log logger.Logger) *service.Service {
	parser := source.NewParser(
		source.WithDebugDir(cfg.DebugDir),
		source.WithLogger(log.Named("source")),
	)
	pipeline := service.NewPipeline(
		service.WithParser(parser),
		service.WithScorer(scoring.NewTableScorer(scoring.WithValues(cfg.PointsValues))),
		service.WithWindows(cfg.TryWindowSeconds, cfg.BreakWindowSeconds, cfg.TeamWindowSeconds),
		service.WithOurTeamLabel(cfg.OurTeamLabel),
		service.WithPipelineLogger(log.Named("pipeline")),
	)
	return service.New(
		service.WithLogger(log),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithDatabasePath(cfg.DatabasePath),
		service.WithProfilesDir(cfg.ProfilesDir),
		service.WithPipeline(pipeline),
		service.WithNotifier(newNotifier(cfg, log)),
	)
}

// newNotifier publishes to AMQP when a broker URL is configured.
func newNotifier(cfg *config.Config, log logger.Logger) notify.Notifier {
	if cfg.AMQPURL == "" {
		return notify.Nop{}
	}
	return notify.NewAMQPPublisher(cfg.AMQPURL,
		notify.WithExchange(cfg.AMQPExchange),
		notify.WithLogger(log.Named("notify")),
	)
}

func newHTTPServer(ctx context.Context, cfg *config.Config, svc *service.Service) *http.Server {
	apiServer := api.NewServer(svc, svc, api.WithAllowedOrigins(cfg.Origins()...))
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Handler(ctx),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// startServiceMetricsUpdater refreshes the queue gauge from service stats.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

func updateServiceMetrics(ctx context.Context, svc *service.Service) {
	stats := svc.GetStats(ctx)
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
}
