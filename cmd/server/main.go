package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"geosafe/internal/api"
	"geosafe/internal/api/handlers"
	"geosafe/internal/api/middleware"
	"geosafe/internal/config"
	"geosafe/internal/database"
	"geosafe/internal/domain/entities"
	"geosafe/internal/jobs"
	"geosafe/internal/logger"
	"geosafe/internal/metrics"
	"geosafe/internal/push"
	"geosafe/internal/repository"
	"geosafe/internal/repository/memory"
	"geosafe/internal/repository/redisstore"
	"geosafe/internal/repository/sqlstore"
	"geosafe/internal/services"
	"geosafe/internal/stream"
	"geosafe/internal/trigger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", os.Getenv("GEOSAFE_CONFIG"), "path to YAML config")
	mintUser := flag.String("mint-token", "", "print a bearer token for this user ID and exit")
	mintRole := flag.String("mint-role", "", "role claim for -mint-token (\"admin\" or empty)")
	repairNow := flag.Bool("repair-geohashes", false, "rewrite drifted subscription keys and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *mintUser != "" {
		tok, err := middleware.IssueToken([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer, *mintUser, *mintUser, *mintRole, 24*time.Hour)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(tok)
		return
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log, *repairNow); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger, repairOnly bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := sqlstore.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	reportRepo := sqlstore.NewReportRepository(db)
	directory := sqlstore.NewSubscriberDirectory(db)
	subscriptions := services.NewSubscriptionService(directory, cfg.Geo.DirectoryPrecision, log.Named("subscriptions"))

	if repairOnly {
		jobs.RunGeohashRepair(ctx, subscriptions, log)
		return nil
	}

	var claims repository.ClaimStore
	if cfg.Redis.Addr != "" {
		client, err := redisstore.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer client.Close()
		claims = redisstore.NewClaimStore(client, "geosafe:")
		log.Info("dispatch claims stored in redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		claims = memory.NewClaimStore(time.Minute)
		log.Warn("dispatch claims held in process memory; run a single instance")
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Push
	gateway, err := push.NewGateway(ctx, cfg.Push, log)
	if err != nil {
		return err
	}
	if _, ok := gateway.(*push.LogGateway); ok {
		log.Warn("no push provider configured; alerts are only logged")
	}

	// Alert pipeline
	resolver := services.NewCandidateResolver(directory, cfg.Geo.DirectoryPrecision, cfg.Dispatch.ScanConcurrency, cfg.Dispatch.ScanTimeout, log.Named("resolver"), m)
	notifier := services.NewNotificationService(gateway, cfg.Dispatch, cfg.Push, log.Named("dispatch"), m)
	pipeline := services.NewAlertPipeline(
		services.NewTransitionDetector(),
		claims,
		resolver,
		notifier,
		cfg.Geo,
		cfg.Dispatch.ClaimTTL,
		log.Named("pipeline"),
		m,
	)

	// Triggers: every report write goes to the pipeline and the live feed.
	hub := stream.NewHub(func(ctx context.Context) ([]*entities.Report, error) {
		return reportRepo.List(ctx, entities.ReportFilter{})
	}, log.Named("stream"), m)

	var pipelineSink services.WriteSink
	if cfg.NATS.URL != "" {
		conn, err := trigger.Connect(cfg.NATS.URL, "geosafe-server", log.Named("nats"))
		if err != nil {
			return err
		}
		defer conn.Close()

		sub := trigger.NewNATSSubscriber(conn, cfg.NATS.Subject, cfg.NATS.Queue, pipeline, cfg.Dispatch.CycleTimeout, log.Named("trigger"))
		if err := sub.Start(); err != nil {
			return err
		}
		defer func() {
			if err := sub.Stop(); err != nil {
				log.Warn("drain trigger subscription", zap.Error(err))
			}
		}()
		pipelineSink = trigger.NewNATSPublisher(conn, cfg.NATS.Subject)
	} else {
		local := trigger.NewLocal(pipeline, cfg.Dispatch.CycleTimeout, log.Named("trigger"))
		defer local.Close()
		pipelineSink = local
	}
	sinks := services.WriteSinks{pipelineSink, hub}

	reportService := services.NewReportService(reportRepo, sinks, log.Named("reports"))
	ledger := services.NewVoteLedger(reportRepo, sinks, log.Named("votes"), m)

	// Jobs
	scheduler := jobs.NewScheduler(log.Named("jobs"))
	if err := scheduler.AddGeohashRepair(cfg.Jobs.GeohashRepairSpec, subscriptions, 10*time.Minute); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	// HTTP
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(
		handlers.NewReportHandler(reportService, ledger),
		handlers.NewSubscriptionHandler(subscriptions),
		handlers.NewTriggerHandler(pipeline),
		hub.Handler(),
		reg,
		m,
		cfg,
		log.Named("http"),
	)
	engine := gin.New()
	if err := router.Setup(engine); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("geosafe listening", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
