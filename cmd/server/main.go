package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	donationhandler "givetrack/internal/donation/handler"
	donationmetrics "givetrack/internal/donation/metrics"
	donationservice "givetrack/internal/donation/service"
	donationstore "givetrack/internal/donation/store"
	httpapi "givetrack/internal/http"
	"givetrack/internal/identity/federated"
	identityhandler "givetrack/internal/identity/handler"
	identitymetrics "givetrack/internal/identity/metrics"
	identitymodels "givetrack/internal/identity/models"
	identityservice "givetrack/internal/identity/service"
	identitystore "givetrack/internal/identity/store"
	"givetrack/internal/identity/store/revocation"
	"givetrack/internal/identity/token"
	locationhandler "givetrack/internal/location/handler"
	locationmetrics "givetrack/internal/location/metrics"
	locationservice "givetrack/internal/location/service"
	locationstore "givetrack/internal/location/store"
	"givetrack/internal/platform/config"
	"givetrack/internal/platform/httpserver"
	"givetrack/internal/platform/kafka"
	"givetrack/internal/platform/logger"
	"givetrack/internal/platform/metrics"
	"givetrack/internal/platform/postgres"
	"givetrack/internal/platform/redis"
	profilehandler "givetrack/internal/profile/handler"
	profilemetrics "givetrack/internal/profile/metrics"
	profileservice "givetrack/internal/profile/service"
	profilestore "givetrack/internal/profile/store"
	audit "givetrack/pkg/platform/audit"
	auditpublisher "givetrack/pkg/platform/audit/publisher"
	kafkasink "givetrack/pkg/platform/audit/sink/kafka"
	auditmemory "givetrack/pkg/platform/audit/store/memory"
	auditpostgres "givetrack/pkg/platform/audit/store/postgres"
	auditworker "givetrack/pkg/platform/audit/worker"
	"givetrack/pkg/platform/circuit"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// donationStore is what the lifecycle and the location modules need from
// donation persistence.
type donationStore interface {
	donationservice.Store
	locationservice.ActiveDonationFinder
	locationservice.DonationReader
}

type infra struct {
	db     *sql.DB
	redis  *redis.Client
	kafka  *kgo.Client
	health map[string]httpapi.HealthCheck
}

func (i *infra) Close() {
	if i.kafka != nil {
		i.kafka.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.db != nil {
		_ = i.db.Close()
	}
}

func connect(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	in := &infra{health: make(map[string]httpapi.HealthCheck)}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	if db != nil {
		in.db = db
		in.health["postgres"] = db.PingContext
		log.Info("using postgres storage")
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		in.Close()
		return nil, err
	}
	if rc != nil {
		in.redis = rc
		in.health["redis"] = rc.Health
		if err := rc.RegisterPoolMetrics(prometheus.DefaultRegisterer); err != nil {
			log.Warn("redis pool metrics not registered", "error", err)
		}
		log.Info("using redis for live locations and session revocation")
	}

	kc, err := kafka.New(cfg.Kafka)
	if err != nil {
		in.Close()
		return nil, err
	}
	if kc != nil {
		in.kafka = kc
		if err := kafka.EnsureTopic(ctx, kc, cfg.Kafka.AuditTopic); err != nil {
			log.Warn("audit topic not verified", "topic", cfg.Kafka.AuditTopic, "error", err)
		}
		in.health["kafka"] = kc.Ping
		log.Info("publishing audit events to kafka", "topic", cfg.Kafka.AuditTopic)
	}
	return in, nil
}

func auditSink(in *infra, cfg config.Config, log *slog.Logger) audit.Sink {
	var durable audit.Sink = auditmemory.NewInMemoryStore()
	if in.db != nil {
		durable = auditpostgres.New(in.db)
	}
	if in.kafka == nil {
		return durable
	}
	return kafkasink.New(in.kafka, cfg.Kafka.AuditTopic,
		kafkasink.WithFallback(durable),
		kafkasink.WithBreaker(circuit.New("audit-kafka")),
		kafkasink.WithLogger(log),
	)
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	in, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer in.Close()

	sink := auditSink(in, cfg, log)
	publisher := auditpublisher.New(sink,
		auditpublisher.WithAsyncBuffer(cfg.Kafka.AuditBuffer),
		auditpublisher.WithLogger(log),
	)

	var (
		accounts    identityservice.AccountStore = identitystore.NewInMemory()
		revocations identityservice.RevocationList
		profiles    profileservice.Store  = profilestore.NewInMemory()
		donations   donationStore         = donationstore.NewInMemory()
		locations   locationservice.Store = locationstore.NewInMemory()
	)
	if in.db != nil {
		accounts = identitystore.NewPostgres(in.db)
		profiles = profilestore.NewPostgres(in.db)
		donations = donationstore.NewPostgres(in.db)
	}
	if in.redis != nil {
		revocations = revocation.NewRedis(in.redis.Client)
		locations = locationstore.NewRedis(in.redis.Client,
			locationstore.WithKeyTTL(cfg.Location.KeyTTL),
			locationstore.WithLogger(log),
		)
	} else {
		revocations = revocation.NewInMemory()
	}

	identityOpts := []identityservice.Option{
		identityservice.WithLogger(log),
		identityservice.WithMetrics(identitymetrics.New()),
		identityservice.WithAuditPublisher(publisher),
		identityservice.WithRecentLoginWindow(cfg.Auth.RecentLoginWindow),
	}
	if cfg.OAuth.Enabled() {
		identityOpts = append(identityOpts, identityservice.WithFederatedProvider(
			federated.NewGoogle(cfg.OAuth.GoogleClientID, cfg.OAuth.GoogleClientSecret, cfg.OAuth.GoogleRedirectURL),
		))
	}
	identity := identityservice.New(accounts,
		token.New(cfg.Auth.JWTSigningKey, cfg.Auth.SessionTTL),
		revocations,
		identityOpts...,
	)

	admins := profileservice.NewAdminList(cfg.Auth.AdminEmails)
	profileSvc := profileservice.New(profiles, admins,
		profileservice.WithLogger(log),
		profileservice.WithMetrics(profilemetrics.New()),
		profileservice.WithAuditPublisher(publisher),
		profileservice.WithAccountRenamer(identity),
	)
	identity.OnAuthStateChange(func(ctx context.Context, state *identitymodels.AuthState) {
		if state == nil {
			return
		}
		if _, err := profileSvc.EnsureProfile(ctx, state.UserID, state.Email, state.DisplayName); err != nil {
			log.WarnContext(ctx, "failed to ensure profile", "user_id", state.UserID, "error", err)
		}
	})

	locMetrics := locationmetrics.New()
	locPublisher := locationservice.NewPublisher(locations, donations,
		locationservice.WithLogger(log),
		locationservice.WithMetrics(locMetrics),
		locationservice.WithAuditPublisher(publisher),
		locationservice.WithSampleTimeout(cfg.Location.SampleTimeout),
	)
	tracker := locationservice.NewTracker(locations, donations, admins,
		locationservice.WithTrackerLogger(log),
		locationservice.WithTrackerMetrics(locMetrics),
	)
	lifecycle := donationservice.New(donations, profileSvc, admins, locPublisher,
		donationservice.WithLogger(log),
		donationservice.WithMetrics(donationmetrics.New()),
		donationservice.WithAuditPublisher(publisher),
		donationservice.WithTracer(otel.Tracer("givetrack/donation")),
		donationservice.WithCompletedStatuses(cfg.Lifecycle.CompletedStatuses),
	)

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:      log,
		Sessions:    identity,
		Admins:      admins,
		Identity:    identityhandler.New(identity, log),
		Profiles:    profilehandler.New(profileSvc, log),
		Donations:   donationhandler.New(lifecycle, log),
		Locations:   locationhandler.New(locPublisher, tracker, log),
		HTTPMetrics: metrics.NewHTTP(),
		Health:      in.health,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	if inbox := publisher.Inbox(); inbox != nil {
		// Runs until publisher.Close closes the inbox so events from
		// in-flight requests during shutdown are still persisted.
		g.Go(func() error {
			return auditworker.New(sink, inbox, log).Run(context.WithoutCancel(gctx))
		})
	}
	g.Go(func() error {
		log.Info("starting givetrack", "addr", cfg.Server.Addr)
		err := httpserver.Run(gctx, srv, cfg.Server.ShutdownTimeout)
		publisher.Close()
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutdown complete")
	return nil
}
