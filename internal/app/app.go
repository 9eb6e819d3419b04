package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/kfcrebrand/registration/external/discordapi"
	"github.com/kfcrebrand/registration/external/osuapi"
	"github.com/kfcrebrand/registration/internal/config"
	"github.com/kfcrebrand/registration/internal/domain/player"
	"github.com/kfcrebrand/registration/internal/domain/registration"
	"github.com/kfcrebrand/registration/internal/domain/team"
	"github.com/kfcrebrand/registration/internal/infrastructure/events"
	"github.com/kfcrebrand/registration/internal/infrastructure/repository/memory"
	"github.com/kfcrebrand/registration/internal/infrastructure/repository/postgres"
	"github.com/kfcrebrand/registration/internal/interfaces/httpapi"
	"github.com/kfcrebrand/registration/internal/platform/logging"
	"github.com/kfcrebrand/registration/internal/platform/resilience"
	"github.com/kfcrebrand/registration/internal/usecase"
)

// NewHTTPServer wires repositories, services and the router into a
// ready-to-run server. The returned cleanup closes the database pool
// and is safe to call when the server never started.
func NewHTTPServer(cfg config.Config, logger *slog.Logger) (*http.Server, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	cleanup := func() {}
	var playerRepo player.Repository
	var teamRepo team.Repository

	if cfg.UseMemoryStore {
		store := memory.NewStore()
		playerRepo = store.Players()
		teamRepo = store.Teams()
		logger.Warn("using in-memory store; data is lost on restart")
	} else {
		db, err := openDatabase(cfg)
		if err != nil {
			return nil, cleanup, fmt.Errorf("open database: %w", err)
		}
		cleanup = func() { _ = db.Close() }
		playerRepo = postgres.NewPlayerRepository(db)
		teamRepo = postgres.NewTeamRepository(db)
	}

	policy := team.RosterPolicy{
		RegistrationStart: cfg.RegistrationStart,
		RegistrationEnd:   cfg.RegistrationEnd,
		SelectionEnd:      cfg.SelectionEnd,
		RosterSizeMin:     cfg.RosterSizeMin,
		RosterSizeMax:     cfg.RosterSizeMax,
		BackupSizeMax:     cfg.BackupSizeMax,
	}
	if err := policy.Validate(); err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("roster policy: %w", err)
	}

	var sink registration.EventSink = events.Discard{}
	if cfg.WebhookEnabled {
		sink = events.NewWebhookPublisher(events.WebhookPublisherConfig{
			URL:     cfg.WebhookURL,
			Token:   cfg.WebhookToken,
			Timeout: cfg.WebhookTimeout,
			Breaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.WebhookCircuitEnabled,
				FailureThreshold: cfg.WebhookCircuitFailureCount,
				OpenTimeout:      cfg.WebhookCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.WebhookCircuitHalfOpenMaxRq,
			},
		}, logger)
	}

	osuClient := osuapi.NewClient(osuapi.ClientConfig{
		BaseURL:      cfg.OsuBaseURL,
		ClientID:     cfg.OsuClientID,
		ClientSecret: cfg.OsuClientSecret,
		Timeout:      cfg.OsuTimeout,
		MaxRetries:   cfg.OsuMaxRetries,
		Logger:       logging.Default(),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.OsuCircuitEnabled,
			FailureThreshold: cfg.OsuCircuitFailureCount,
			OpenTimeout:      cfg.OsuCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.OsuCircuitHalfOpenMaxReq,
		},
	})

	identitySvc := usecase.NewIdentityService(playerRepo, sink, logger)
	rosterSvc := usecase.NewRosterService(teamRepo, policy, logger)
	registrantSvc := usecase.NewRegistrantService(playerRepo, logger)
	refreshSvc := usecase.NewStatsRefreshService(
		playerRepo,
		osuClient,
		cfg.RefreshWorkerCount,
		cfg.RefreshFetchInterval,
		logger,
	)

	handler := httpapi.NewHandler(identitySvc, rosterSvc, registrantSvc, refreshSvc, logger)
	if cfg.DiscordClientID != "" {
		discordClient := discordapi.NewClient(discordapi.ClientConfig{
			BaseURL:      cfg.DiscordBaseURL,
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURI:  cfg.DiscordRedirectURI,
			Timeout:      cfg.DiscordTimeout,
			Logger:       logging.Default(),
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled: true,
			},
		})
		handler.SetDiscordResolver(discordClient)
	}

	router := httpapi.NewRouter(
		handler,
		cfg.ServiceKey,
		playerRepo,
		logger,
		cfg.SwaggerEnabled,
		cfg.CORSAllowedOrigins,
		cfg.InternalJobToken,
	)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		cleanup()
		return nil, func() {}, fmt.Errorf("http server addr cannot be empty")
	}

	return server, cleanup, nil
}

func openDatabase(cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)

	db, err := otelsqlx.Open("postgres", dsn,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}
