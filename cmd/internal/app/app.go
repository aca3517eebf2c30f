// Package app is the composition root of the authgate server: it loads settings,
// builds every collaborator in a fixed order and runs the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"authgate/cmd/identity"
	authapi "authgate/cmd/internal/auth/api"
	"authgate/cmd/internal/auth/authz"
	"authgate/cmd/internal/auth/credential"
	"authgate/cmd/internal/auth/refresh"
	"authgate/cmd/internal/auth/session"
	"authgate/cmd/internal/migrations"
	"authgate/cmd/security/password"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// Settings groups the configuration of every layer wired by New.
type Settings struct {
	App      Config
	Session  session.Config
	Auth     authapi.Config
	Password password.Config
	// Policy is the route rule list; a zero value selects authz.DefaultPolicy.
	Policy authz.Policy
}

// App owns the process-wide resources and the HTTP handler tree.
type App struct {
	cfg Config
	log Logger

	pool *pgxpool.Pool
	rdb  *redis.Client
	reg  *prometheus.Registry

	tokens  *refresh.Store
	sweeper refresh.Sweeper

	refreshMetrics *refresh.Metrics
	httpMetrics    *httpMetrics
	storeTimeout   time.Duration

	authn  *authapi.Authenticator
	policy authz.Policy
	auth   *authapi.Handler

	handler http.Handler
}

// New constructs a fully wired App. On error every resource opened so far is released.
func New(ctx context.Context, s Settings, log Logger) (_ *App, err error) {
	cfg := s.App
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	a := &App{
		cfg:          cfg,
		log:          log,
		reg:          newRegistry(),
		storeTimeout: s.Session.StoreTimeout,
	}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	hasher, err := ValidateSecurityConfig(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.DatabaseURL != "" {
		a.pool, err = NewDBPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("db: %w", err)
		}
		log.Info("db.enabled.postgres")

		if cfg.DBMigrate {
			if err := migrations.Up(ctx, a.pool); err != nil {
				return nil, err
			}
			log.Info("db.migrated")
		}
	} else {
		log.Info("db.disabled.inmemory_users")
	}

	var users identity.Store
	if a.pool != nil {
		users, err = identity.NewPostgresStore(a.pool)
		if err != nil {
			return nil, err
		}
	} else {
		users = identity.NewMemoryStore()
	}

	accounts := identity.NewService(users, s.Password,
		identity.WithRoleSelfAssign(cfg.AllowRoleSelfAssign),
		identity.WithLogger(log),
	)

	backend, err := a.newRefreshBackend(ctx)
	if err != nil {
		return nil, err
	}

	signer, err := credential.NewSigner(credential.Config{
		Secret:    s.Session.Secret,
		AccessTTL: s.Session.AccessTTL,
		Issuer:    s.Session.Issuer,
	})
	if err != nil {
		return nil, err
	}

	a.refreshMetrics = refresh.NewMetrics(a.reg)
	a.tokens, err = refresh.NewStore(backend, refresh.Config{
		TTL:        s.Session.RefreshTTL,
		Timeout:    s.Session.StoreTimeout,
		TokenBytes: s.Session.RefreshTokenBytes,
		Hasher:     hasher,
		Metrics:    a.refreshMetrics,
	})
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewOrchestrator(accounts, users, signer, a.tokens,
		session.WithSingleUseRefresh(s.Session.RefreshSingleUse),
		session.WithLogger(log),
		session.WithMetrics(session.NewMetrics(a.reg)),
	)
	if err != nil {
		return nil, err
	}

	apiMetrics := authapi.NewMetrics(a.reg)
	a.authn = authapi.NewAuthenticator(signer, users, log, apiMetrics)

	a.policy = s.Policy
	if len(a.policy.Rules) == 0 && a.policy.Default == nil {
		a.policy = authz.DefaultPolicy()
	}

	a.auth, err = authapi.NewHandler(log, s.Auth, sessions, accounts, authapi.WithMetrics(apiMetrics))
	if err != nil {
		return nil, err
	}

	a.httpMetrics = newHTTPMetrics(a.reg)
	a.handler = a.routes()

	log.Info("app.ready",
		"refresh_backend", cfg.refreshBackend(),
		"refresh_single_use", s.Session.RefreshSingleUse,
		"token_hmac", hasher.Keyed(),
	)
	return a, nil
}

// newRefreshBackend opens the refresh token backend selected by configuration.
func (a *App) newRefreshBackend(ctx context.Context) (refresh.Backend, error) {
	switch kind := a.cfg.refreshBackend(); kind {
	case BackendRedis:
		if a.cfg.RedisURL == "" {
			return nil, errors.New("refresh backend redis requires AUTHGATE_REDIS_URL")
		}
		rdb, err := NewRedisClient(ctx, a.cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.rdb = rdb
		rb, err := refresh.NewRedisBackend(rdb, a.cfg.RedisPrefix)
		if err != nil {
			return nil, err
		}
		return rb, nil

	case BackendPostgres:
		if a.pool == nil {
			return nil, errors.New("refresh backend postgres requires AUTHGATE_DATABASE_URL")
		}
		pg, err := refresh.NewPostgresBackend(a.pool, "")
		if err != nil {
			return nil, err
		}
		a.sweeper = pg
		return pg, nil

	case BackendMemory:
		a.log.Warn("refresh.backend.memory", "note", "refresh tokens do not survive restarts")
		mem := refresh.NewMemoryBackend(nil)
		a.sweeper = mem
		return mem, nil

	default:
		return nil, fmt.Errorf("unknown refresh backend %q", kind)
	}
}

// Handler returns the root HTTP handler with the full middleware chain.
func (a *App) Handler() http.Handler { return a.handler }

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	if a.sweeper != nil {
		go refresh.RunSweeper(sweepCtx, a.sweeper, a.cfg.RefreshSweepInterval, a.storeTimeout, a.refreshMetrics, a.log)
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.pool != nil, "redis_enabled", a.rdb != nil)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		a.close()
		return err
	}

	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		a.close()
		return err
	}

	a.close()
	a.log.Info("server.stopped")
	return nil
}

// close releases the Redis client and the DB pool. Safe to call more than once.
func (a *App) close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.Error("redis.close.fail", "err", err)
		}
		a.rdb = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
