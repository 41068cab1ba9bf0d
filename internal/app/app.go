package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rossfreedman/rally-sub003/external/leaguesource"
	"github.com/rossfreedman/rally-sub003/internal/config"
	"github.com/rossfreedman/rally-sub003/internal/domain/league"
	"github.com/rossfreedman/rally-sub003/internal/infrastructure/repository/postgres"
	"github.com/rossfreedman/rally-sub003/internal/interfaces/jobapi"
	"github.com/rossfreedman/rally-sub003/internal/platform/cache"
	idgen "github.com/rossfreedman/rally-sub003/internal/platform/id"
	"github.com/rossfreedman/rally-sub003/internal/platform/logging"
	"github.com/rossfreedman/rally-sub003/internal/platform/resilience"
	"github.com/rossfreedman/rally-sub003/internal/usecase"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
)

// defaultLeagues is the bootstrap league set. BootstrapSeed only inserts
// them when the leagues table is empty, so operators can re-point labels
// and seasons afterwards without fighting the seed.
var defaultLeagues = []league.League{
	{ID: "apta-chicago", Label: "APTA Chicago", Season: "2025-2026"},
	{ID: "nstf", Label: "North Shore", Season: "2026"},
	{ID: "cnswpl", Label: "CNSWPL", Season: "2025-2026"},
}

// App holds the wired object graph for one process.
type App struct {
	Config      config.Config
	Logger      *logging.Logger
	DB          *sqlx.DB
	Reconcile   *usecase.ReconcileService
	Identity    *usecase.IdentityService
	Tracking    *usecase.TrackingService
	Eligibility *usecase.EligibilityService
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	db, err := otelsqlx.Open("postgres", normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary),
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := postgres.BootstrapSeed(ctx, db, defaultLeagues); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed leagues: %w", err)
	}

	leagueRepo := postgres.NewLeagueRepository(db)
	playerRepo := postgres.NewPlayerRepository(db)
	stintRepo := postgres.NewStintRepository(db)
	subAppearanceRepo := postgres.NewSubAppearanceRepository(db)
	trackingRepo := postgres.NewTrackingRepository(db)
	unresolvedRepo := postgres.NewUnresolvedRepository(db)
	auditRepo := postgres.NewMergeAuditRepository(db)
	matchRepo := postgres.NewMatchRepository(db)
	subRequestRepo := postgres.NewSubRequestRepository(db)
	locker := postgres.NewScopeLocker(db)

	gen := idgen.NewRandomGenerator()

	identitySvc := usecase.NewIdentityService(
		playerRepo,
		stintRepo,
		subAppearanceRepo,
		trackingRepo,
		unresolvedRepo,
		auditRepo,
		gen,
		logger,
	)
	trackingSvc := usecase.NewTrackingService(trackingRepo, stintRepo, gen, logger)

	var snapshots *cache.Store
	if cfg.CacheEnabled {
		snapshots = cache.NewStore(cfg.CacheTTL)
	}
	eligibilitySvc := usecase.NewEligibilityService(subRequestRepo, playerRepo, snapshots, gen, logger)

	var reconcileSvc *usecase.ReconcileService
	if cfg.LeagueFeedEnabled {
		source := leaguesource.NewClient(leaguesource.ClientConfig{
			BaseURL:    cfg.LeagueFeedBaseURL,
			Token:      cfg.LeagueFeedToken,
			Timeout:    cfg.LeagueFeedTimeout,
			MaxRetries: cfg.LeagueFeedMaxRetries,
			Logger:     logger,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.LeagueFeedCircuitEnabled,
				FailureThreshold: cfg.LeagueFeedCircuitFailureCount,
				OpenTimeout:      cfg.LeagueFeedCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.LeagueFeedCircuitHalfOpenMaxReq,
			},
		})
		reconcileSvc = usecase.NewReconcileService(
			usecase.SyncConfig{
				Enabled:          cfg.SyncEnabled,
				BatchSize:        cfg.SyncBatchSize,
				NormalizeWorkers: cfg.SyncNormalizeWorkers,
			},
			source,
			leagueRepo,
			playerRepo,
			matchRepo,
			playerRepo,
			matchRepo,
			trackingRepo,
			identitySvc,
			locker,
			gen,
			logger,
		)
	} else {
		logger.Info("league feed disabled, sync jobs unavailable", "reason", "LEAGUE_FEED_ENABLED=false")
	}

	return &App{
		Config:      cfg,
		Logger:      logger,
		DB:          db,
		Reconcile:   reconcileSvc,
		Identity:    identitySvc,
		Tracking:    trackingSvc,
		Eligibility: eligibilitySvc,
	}, nil
}

func (a *App) HTTPServer() (*http.Server, error) {
	handler := jobapi.NewHandler(a.Reconcile, a.Identity, a.Tracking, a.Eligibility, a.Logger)
	router := jobapi.NewRouter(handler, a.Logger, a.Config.InternalJobToken)

	server := &http.Server{
		Addr:         a.Config.HTTPAddr,
		Handler:      router,
		ReadTimeout:  a.Config.ReadTimeout,
		WriteTimeout: a.Config.WriteTimeout,
	}

	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, nil
}

func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
