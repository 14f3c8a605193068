package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"salaryslip/internal/domain/auth"
	"salaryslip/internal/domain/salaryslip"
	"salaryslip/internal/platform/cache"
	"salaryslip/internal/platform/config"
	cryptoutil "salaryslip/internal/platform/crypto"
	"salaryslip/internal/platform/db"
	"salaryslip/internal/platform/metrics"
	"salaryslip/internal/transport/http/api"
	salarysliphandler "salaryslip/internal/transport/http/handlers/salaryslip"
	"salaryslip/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	Logger  *slog.Logger
	DB      *pgxpool.Pool
	Redis   *redis.Client
	Zones   salaryslip.ZoneLookup
	Metrics *metrics.Collector
	Router  http.Handler

	registry  salaryslip.ZoneRegistry
	zoneCache *cache.Zones
}

// New wires the application. Postgres and redis are optional: without
// DATABASE_URL zones come from DANGER_ZONES / DANGER_ZONES_FILE only.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger, Metrics: metrics.New()}

	zones, err := app.buildZones(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Zones = zones

	sealer, err := cryptoutil.NewSealer(cfg.SlipEncryptionKey)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Router = app.routes(sealer)
	return app, nil
}

// StaticStations merges DANGER_ZONES with the stations in DANGER_ZONES_FILE.
func StaticStations(cfg config.Config) ([]string, error) {
	stations := append([]string(nil), cfg.DangerZones...)
	if cfg.DangerZonesFile != "" {
		fromFile, err := salaryslip.LoadZonesFile(cfg.DangerZonesFile)
		if err != nil {
			return nil, err
		}
		stations = append(stations, fromFile...)
	}
	return stations, nil
}

func (a *App) buildZones(ctx context.Context) (salaryslip.ZoneLookup, error) {
	stations, err := StaticStations(a.Config)
	if err != nil {
		return nil, err
	}

	static := salaryslip.NewStaticZones(stations...)
	var zones salaryslip.ZoneLookup = static
	a.registry = static
	if a.Config.DatabaseURL != "" {
		pool, err := db.Connect(ctx, a.Config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db connect failed: %w", err)
		}
		a.DB = pool
		if err := db.Migrate(ctx, pool); err != nil {
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
		store := salaryslip.NewPostgresZones(pool)
		if err := store.Seed(ctx, stations); err != nil {
			return nil, fmt.Errorf("seed danger zones failed: %w", err)
		}
		zones = store
		a.registry = store
		a.Logger.Info("zone lookup backed by postgres", "seeded", len(stations))
	} else {
		a.Logger.Info("zone lookup backed by static list", "stations", len(stations))
	}

	if a.Config.RedisURL != "" {
		rdb, err := cache.Connect(a.Config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis config invalid: %w", err)
		}
		a.Redis = rdb
		a.zoneCache = cache.NewZones(rdb, zones, a.Config.ZoneCacheTTL)
		zones = a.zoneCache
		a.Logger.Info("zone lookup cached in redis", "ttl", a.Config.ZoneCacheTTL.String())
	}
	return zones, nil
}

func (a *App) routes(sealer *cryptoutil.Sealer) http.Handler {
	cfg := a.Config
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(a.Logger, a.Metrics))
	router.Use(middleware.Recoverer(a.Logger))
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if a.DB != nil {
			if err := a.DB.Ping(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		if a.Redis != nil {
			if err := a.Redis.Ping(ctx).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, a.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute, cfg.TrustProxyHeaders))
		if cfg.RequireAuth {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.RequireRole(auth.RolePayroll, auth.RoleViewer))
		}

		slipHandler := salarysliphandler.NewHandler(a.Zones, sealer, a.Metrics)
		slipHandler.Registry = a.registry
		if a.zoneCache != nil {
			slipHandler.Cache = a.zoneCache
		}
		slipHandler.RegisterRoutes(r)
	})

	return router
}

func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("salary slip server listening", "addr", a.Config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.Logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
