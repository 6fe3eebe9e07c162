// Command server wires the risk pipeline and exposes it over HTTP. Business
// logic lives in the internal service packages; main only selects stores
// from configuration, assembles the gate, and manages the process lifecycle.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	fraudMetrics "bankguard/internal/fraud/metrics"
	"bankguard/internal/fraud/scorer"
	"bankguard/internal/gate"
	gateMetrics "bankguard/internal/gate/metrics"
	"bankguard/internal/ledger"
	limitsChecker "bankguard/internal/limits/checker"
	limitsMetrics "bankguard/internal/limits/metrics"
	"bankguard/internal/notify"
	otpMetrics "bankguard/internal/otp/metrics"
	otpService "bankguard/internal/otp/service"
	"bankguard/internal/otp/stepup"
	codeStore "bankguard/internal/otp/store/code"
	otpCleanup "bankguard/internal/otp/workers/cleanup"
	"bankguard/internal/platform/config"
	"bankguard/internal/platform/database"
	"bankguard/internal/platform/httpserver"
	"bankguard/internal/platform/kafka/producer"
	"bankguard/internal/platform/logger"
	platformRedis "bankguard/internal/platform/redis"
	rlChecker "bankguard/internal/ratelimit/checker"
	rlMetrics "bankguard/internal/ratelimit/metrics"
	"bankguard/internal/ratelimit/store/window"
	rlCleanup "bankguard/internal/ratelimit/workers/cleanup"
	"bankguard/internal/security"
	securityMetrics "bankguard/internal/security/metrics"
	"bankguard/internal/security/stream"
	httptransport "bankguard/internal/transport/http"
	trustMetrics "bankguard/internal/trust/metrics"
	trustService "bankguard/internal/trust/service"
	deviceStore "bankguard/internal/trust/store/device"
	sessionStore "bankguard/internal/trust/store/session"
	devicePurge "bankguard/internal/trust/workers/purge"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	log.Info("initializing bankguard",
		"addr", cfg.Addr,
		"postgres", cfg.DatabaseURL != "",
		"redis", cfg.RedisURL != "",
		"kafka", cfg.KafkaBrokers != "",
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store selection: Postgres when configured, in-memory otherwise.
	var (
		ledgerStore  ledgerStores
		codes        otpService.CodeStore
		codesCleanup otpCleanup.CodeStore
		devices      trustService.DeviceStore
		devicesPurge devicePurge.DeviceStore
		auditStore   security.Store
	)
	if cfg.DatabaseURL != "" {
		dbCfg := database.DefaultConfig()
		dbCfg.URL = cfg.DatabaseURL
		pool, err := database.New(dbCfg)
		if err != nil {
			log.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg := ledger.NewPostgres(pool.DB())
		ledgerStore = ledgerStores{transactions: pg, accounts: pg, admins: pg}
		otpPG := codeStore.NewPostgres(pool.DB())
		codes, codesCleanup = otpPG, otpPG
		devPG := deviceStore.NewPostgres(pool.DB())
		devices, devicesPurge = devPG, devPG
		auditStore = security.NewPostgres(pool.DB())
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		mem := ledger.NewInMemoryStore()
		ledgerStore = ledgerStores{transactions: mem, accounts: mem, admins: mem}
		otpMem := codeStore.NewInMemoryStore()
		codes, codesCleanup = otpMem, otpMem
		devMem := deviceStore.NewInMemoryStore()
		devices, devicesPurge = devMem, devMem
		auditStore = security.NewInMemoryStore()
	}

	// Rate limit windows live in Redis when configured so limits hold across
	// instances; per-process memory otherwise.
	var windows rlChecker.WindowStore
	var windowsCleanup rlCleanup.WindowStore
	redisCfg := platformRedis.DefaultConfig()
	redisCfg.URL = cfg.RedisURL
	redisClient, err := platformRedis.New(redisCfg)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		rs := window.NewRedis(redisClient)
		windows, windowsCleanup = rs, rs
	} else {
		log.Warn("REDIS_URL not set, rate limits are per-instance")
		ms := window.NewInMemoryWindowStore()
		windows, windowsCleanup = ms, ms
	}

	// Optional Kafka stream: every security event fans out as JSON.
	publisherOpts := []security.PublisherOption{
		security.WithPublisherLogger(log),
		security.WithAsyncBuffer(1024),
	}
	if cfg.KafkaBrokers != "" {
		kafkaProducer, err := producer.New(producer.Config{Brokers: cfg.KafkaBrokers}, log)
		if err != nil {
			log.Error("kafka producer init failed", "error", err)
			os.Exit(1)
		}
		defer kafkaProducer.Close()

		sink, err := stream.NewSink(kafkaProducer, cfg.KafkaEventTopic)
		if err != nil {
			log.Error("kafka sink init failed", "error", err)
			os.Exit(1)
		}
		publisherOpts = append(publisherOpts, security.WithSink(sink))
	}

	publisher := security.NewPublisher(auditStore, publisherOpts...)
	defer publisher.Close()

	monitor, err := security.NewMonitor(auditStore, publisher, ledgerStore.admins,
		security.WithLogger(log),
		security.WithMetrics(securityMetrics.New()),
		security.WithNotifier(notify.NewLogNotifier(log)),
	)
	if err != nil {
		log.Error("security monitor init failed", "error", err)
		os.Exit(1)
	}

	rateLimiter, err := rlChecker.New(windows,
		rlChecker.WithLogger(log),
		rlChecker.WithMetrics(rlMetrics.New()),
	)
	if err != nil {
		log.Error("rate limiter init failed", "error", err)
		os.Exit(1)
	}

	limits, err := limitsChecker.New(ledgerStore.transactions,
		limitsChecker.WithLogger(log),
		limitsChecker.WithMetrics(limitsMetrics.New()),
	)
	if err != nil {
		log.Error("limit checker init failed", "error", err)
		os.Exit(1)
	}

	fraud := scorer.New(
		scorer.WithLogger(log),
		scorer.WithMetrics(fraudMetrics.New()),
	)

	trust, err := trustService.New(devices, sessionStore.NewInMemoryStore(),
		trustService.WithLogger(log),
		trustService.WithMetrics(trustMetrics.New()),
	)
	if err != nil {
		log.Error("trust service init failed", "error", err)
		os.Exit(1)
	}

	assertions := stepup.New(cfg.StepUpSigningKey, cfg.StepUpTTL)
	otp, err := otpService.New(codes, assertions,
		otpService.WithLogger(log),
		otpService.WithMetrics(otpMetrics.New()),
		otpService.WithNotifier(notify.NewLogNotifier(log)),
	)
	if err != nil {
		log.Error("otp service init failed", "error", err)
		os.Exit(1)
	}

	gateService, err := gate.New(gate.Deps{
		Accounts:     ledgerStore.accounts,
		Transactions: ledgerStore.transactions,
		RateLimiter:  rateLimiter,
		Limits:       limits,
		Scorer:       fraud,
		Trust:        trust,
		OTP:          otp,
		Assertions:   assertions,
		Monitor:      monitor,
	},
		gate.WithLogger(log),
		gate.WithMetrics(gateMetrics.New()),
	)
	if err != nil {
		log.Error("gate init failed", "error", err)
		os.Exit(1)
	}

	// Periodic sweeps run off the request path on their own timers.
	go func() {
		if err := rlCleanup.New(windowsCleanup, rlCleanup.WithLogger(log)).Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("rate limit cleanup stopped", "error", err)
		}
	}()
	go func() {
		if err := otpCleanup.New(codesCleanup, otpCleanup.WithLogger(log)).Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("otp cleanup stopped", "error", err)
		}
	}()
	go func() {
		if err := devicePurge.New(devicesPurge, devicePurge.WithLogger(log)).Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("device purge stopped", "error", err)
		}
	}()

	handler := httptransport.NewHandler(gateService, monitor, trust, log)
	router := httptransport.NewRouter(handler, log)
	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

// ledgerStores groups the read-only ledger ports so store selection stays in
// one place.
type ledgerStores struct {
	transactions ledger.TransactionStore
	accounts     ledger.AccountStore
	admins       ledger.AdminDirectory
}
