package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"attesto/internal/anchor"
	"attesto/internal/anchor/events"
	anchorhandler "attesto/internal/anchor/handler"
	"attesto/internal/anchor/ledger"
	anchormetrics "attesto/internal/anchor/metrics"
	"attesto/internal/anchor/worker"
	"attesto/internal/credential"
	"attesto/internal/envelope"
	envelopehandler "attesto/internal/envelope/handler"
	"attesto/internal/platform/config"
	"attesto/internal/platform/database"
	"attesto/internal/platform/httpserver"
	"attesto/internal/platform/kafka/producer"
	"attesto/internal/platform/logger"
	"attesto/internal/platform/redis"
	"attesto/internal/presentation"
	presentationhandler "attesto/internal/presentation/handler"
	"attesto/internal/replay"
	"attesto/internal/revocation"
	httptransport "attesto/internal/transport/http"
	"attesto/internal/verification"
	verificationhandler "attesto/internal/verification/handler"
	verificationmetrics "attesto/internal/verification/metrics"
	"attesto/internal/verification/tracer"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Backing resources; each is optional and falls back to in-memory.
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	// Anchor pipeline.
	mode, err := anchor.ParseMode(cfg.Anchor.Mode)
	if err != nil {
		return err
	}

	var batches anchor.BatchStore = anchor.NewInMemoryBatchStore()
	var credentials credential.Store = credential.NewInMemoryStore()
	if db != nil {
		batches = anchor.NewPostgres(db)
		credentials = credential.NewPostgres(db)
	}

	var chainLedger ledger.Ledger
	if cfg.Anchor.LedgerURL != "" {
		chainLedger = ledger.NewHTTP(cfg.Anchor.LedgerURL, ledger.WithTimeout(cfg.Anchor.LedgerTimeout))
	}

	anchorOpts := []anchor.ServiceOption{
		anchor.WithLogger(log),
		anchor.WithMetrics(anchormetrics.New()),
		anchor.WithRetryPolicy(cfg.Anchor.RetryBaseDelay, cfg.Anchor.RetryMaxDelay, cfg.Anchor.MaxAttempts),
	}
	if cfg.Kafka.Brokers != "" {
		kafkaProducer, err := producer.New(producer.Config{
			Brokers:         cfg.Kafka.Brokers,
			Acks:            cfg.Kafka.Acks,
			Retries:         cfg.Kafka.Retries,
			DeliveryTimeout: cfg.Kafka.DeliveryTimeout,
		})
		if err != nil {
			return err
		}
		defer kafkaProducer.Close()
		anchorOpts = append(anchorOpts, anchor.WithEvents(events.NewKafka(kafkaProducer, cfg.Kafka.AnchorTopic)))
	}
	anchorService := anchor.NewService(mode, batches, chainLedger, anchorOpts...)

	anchorWorker := worker.New(anchorService,
		worker.WithInterval(cfg.Anchor.PollInterval),
		worker.WithBatchSize(cfg.Anchor.BatchSize),
		worker.WithLogger(log),
	)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := anchorWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("anchor worker stopped", "error", err)
		}
	}()

	// Replay guard: shared store when Redis is configured.
	var replayStore replay.Store = replay.NewInMemoryStore()
	if redisClient != nil {
		replayStore = replay.NewRedisStore(redisClient)
	}
	replayGuard := replay.NewGuard(replayStore, replay.WithTTL(cfg.ReplayTTL), replay.WithLogger(log))

	// Verification engine.
	verifyOpts := []verification.Option{
		verification.WithLogger(log),
		verification.WithMetrics(verificationmetrics.New()),
		verification.WithTracer(tracer.NewOTel()),
		verification.WithReplayGuard(replayGuard),
		verification.WithAnchorChecker(anchorService),
	}
	if cfg.Issuer.BaseURL != "" {
		verifyOpts = append(verifyOpts, verification.WithRevocationChecker(
			revocation.NewClient(cfg.Issuer.BaseURL,
				revocation.WithTimeout(cfg.Issuer.Timeout),
				revocation.WithLogger(log),
			),
		))
	}
	verifier := verification.NewService(verification.NewTrustedIssuers(cfg.Issuer.TrustedDIDs), verifyOpts...)

	// Issuer-side envelope builder and presentation exchange.
	builder := envelope.NewBuilder(credentials, envelope.WithLogger(log))
	presentations := presentation.NewService(presentation.NewInMemoryStore(),
		presentation.WithTTL(cfg.PresentationTTL),
		presentation.WithLogger(log),
	)

	health := map[string]httptransport.HealthChecker{}
	if redisClient != nil {
		health["redis"] = func() error { return redisClient.Health(context.Background()) }
	}
	if db != nil {
		health["postgres"] = db.Ping
	}

	router := httptransport.NewRouter([]httptransport.Registrar{
		envelopehandler.New(builder, anchorService, log),
		verificationhandler.New(verifier, log),
		presentationhandler.New(presentations, log),
		anchorhandler.New(anchorService, log),
	}, health)

	srv := httpserver.New(cfg.Server.Addr, router)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Server.Addr, "anchor_mode", string(mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-workerDone
	return nil
}
