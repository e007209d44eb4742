// Command server runs the privileged access gateway: justification ledger,
// impersonation session broker, action recorder, alert pipeline, and boundary
// approval engine behind one HTTP surface.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"opsgate/internal/alerts"
	alerthandler "opsgate/internal/alerts/handler"
	alertmetrics "opsgate/internal/alerts/metrics"
	"opsgate/internal/alerts/publisher"
	alertstore "opsgate/internal/alerts/store/alert"
	"opsgate/internal/boundary"
	boundaryhandler "opsgate/internal/boundary/handler"
	boundarymetrics "opsgate/internal/boundary/metrics"
	requeststore "opsgate/internal/boundary/store/request"
	"opsgate/internal/httpapi"
	"opsgate/internal/ledger"
	ledgerhandler "opsgate/internal/ledger/handler"
	ledgermetrics "opsgate/internal/ledger/metrics"
	justificationstore "opsgate/internal/ledger/store/justification"
	"opsgate/internal/lockout"
	failurestore "opsgate/internal/lockout/store/failure"
	"opsgate/internal/notify"
	"opsgate/internal/platform/config"
	"opsgate/internal/platform/httpserver"
	"opsgate/internal/platform/logger"
	platformredis "opsgate/internal/platform/redis"
	"opsgate/internal/recorder"
	recorderhandler "opsgate/internal/recorder/handler"
	recordermetrics "opsgate/internal/recorder/metrics"
	actionlogstore "opsgate/internal/recorder/store/actionlog"
	"opsgate/internal/session"
	sessionhandler "opsgate/internal/session/handler"
	sessionmetrics "opsgate/internal/session/metrics"
	"opsgate/internal/session/store/endlist"
	sessionstore "opsgate/internal/session/store/session"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	operatorTokenHash := cfg.OperatorTokenHash
	if operatorTokenHash == "" {
		log.Warn("OPSGATE_OPERATOR_TOKEN_HASH unset, using development token")
		hash, err := bcrypt.GenerateFromPassword([]byte("dev-operator-token"), bcrypt.DefaultCost)
		if err != nil {
			log.Error("failed to hash development token", "error", err)
			os.Exit(1)
		}
		operatorTokenHash = string(hash)
	}

	var db *sql.DB
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("postgres unreachable", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("OPSGATE_POSTGRES_DSN unset, using in-memory stores")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	} else {
		log.Warn("OPSGATE_REDIS_URL unset, lockout and ended-session state are process-local")
	}

	notifier := notify.NewLogSink(log)

	// Alert pipeline comes first; session start, lockout, and boundary
	// submissions all raise alerts through it.
	var alertStore alerts.Store = alertstore.New()
	if db != nil {
		alertStore = alertstore.NewPostgres(db)
	}
	alertOpts := []alerts.Option{
		alerts.WithNotifier(notifier),
		alerts.WithMetrics(alertmetrics.New()),
	}
	var kafkaSink *publisher.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err = publisher.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			log.Error("failed to create kafka publisher", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		alertOpts = append(alertOpts, alerts.WithSink(kafkaSink))
	}
	alertService, err := alerts.NewService(alertStore, alerts.NewStream(), log, alertOpts...)
	if err != nil {
		log.Error("failed to build alert service", "error", err)
		os.Exit(1)
	}

	var justificationStore ledger.Store = justificationstore.New()
	if db != nil {
		justificationStore = justificationstore.NewPostgres(db)
	}
	ledgerService, err := ledger.NewService(justificationStore, log,
		ledger.WithAlerter(alertService),
		ledger.WithNotifier(notifier),
		ledger.WithMetrics(ledgermetrics.New()),
		ledger.WithPolicy(ledger.Policy{
			DefaultDuration: cfg.JustificationDefault,
			Ceiling:         cfg.JustificationCeiling,
		}),
	)
	if err != nil {
		log.Error("failed to build ledger service", "error", err)
		os.Exit(1)
	}

	var sessionStore session.Store = sessionstore.New()
	if db != nil {
		sessionStore = sessionstore.NewPostgres(db)
	}
	var endedList session.EndedList = endlist.NewMemory()
	if redisClient != nil {
		endedList = endlist.NewRedis(redisClient.Client)
	}
	tokens := session.NewTokenService(cfg.JWTSigningKey, "opsgate")
	sessionService, err := session.NewService(sessionStore, tokens, ledgerService, log,
		session.WithEndedList(endedList),
		session.WithNotifier(notifier),
		session.WithMetrics(sessionmetrics.New()),
		session.WithTTL(cfg.SessionTTL),
	)
	if err != nil {
		log.Error("failed to build session service", "error", err)
		os.Exit(1)
	}

	var actionStore recorder.Store = actionlogstore.New()
	if db != nil {
		actionStore = actionlogstore.NewPostgres(db)
	}
	actionRecorder, err := recorder.New(actionStore, log,
		recorder.WithMetrics(recordermetrics.New()),
	)
	if err != nil {
		log.Error("failed to build action recorder", "error", err)
		os.Exit(1)
	}
	go actionRecorder.Run(ctx)

	var boundaryStore boundary.Store = requeststore.New()
	if db != nil {
		boundaryStore = requeststore.NewPostgres(db)
	}
	boundaryService, err := boundary.NewService(boundaryStore, log,
		boundary.WithAlerter(alertService),
		boundary.WithMetrics(boundarymetrics.New()),
	)
	if err != nil {
		log.Error("failed to build boundary service", "error", err)
		os.Exit(1)
	}

	var lockoutStore lockout.Store = failurestore.New()
	if redisClient != nil {
		lockoutStore = failurestore.NewRedis(redisClient.Client)
	}
	lockoutService, err := lockout.NewService(lockoutStore, log,
		lockout.WithAlerter(alertService),
	)
	if err != nil {
		log.Error("failed to build lockout service", "error", err)
		os.Exit(1)
	}

	health := map[string]httpapi.HealthChecker{}
	if db != nil {
		health["postgres"] = db.PingContext
	}
	if redisClient != nil {
		health["redis"] = redisClient.Health
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:            log,
		OperatorTokenHash: operatorTokenHash,
		Lockouts:          lockoutService,
		Sessions:          sessionService,
		Ledger:            ledgerhandler.New(ledgerService, log),
		Session:           sessionhandler.New(sessionService, log),
		Recorder:          recorderhandler.New(actionRecorder, log),
		Alerts:            alerthandler.New(alertService, log),
		Boundary:          boundaryhandler.New(boundaryService, log),
		Health:            health,
	})

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting opsgate", "addr", cfg.Addr)

	go func() {
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
	}
}
