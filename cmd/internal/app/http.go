package app

import (
	"net/http"
	"time"

	authapi "authgate/cmd/internal/auth/api"
	"authgate/cmd/internal/content"
)

// routes builds the mux and the middleware chain around it.
// Order, outermost first: request id, logging, recover, metrics, security headers, CORS, auth guard.
func (a *App) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/readyz", a.handleReady)
	mux.Handle("/metrics", metricsHandler(a.reg))

	a.auth.Register(mux)
	content.Register(mux)

	var h http.Handler = authapi.Protect(mux, a.authn, a.policy)
	h = WithCORS(h, a.cfg, a.log)
	h = WithSecurityHeaders(h)
	h = WithHTTPMetrics(h, a.httpMetrics)
	h = WithRecover(h, a.log)
	h = WithRequestLogging(h, a.log)
	return WithRequestID(h)
}

func (a *App) handleReady(w http.ResponseWriter, r *http.Request) {
	if a.cfg.ReadinessRequireDB && a.pool == nil {
		http.Error(w, "db not configured", http.StatusServiceUnavailable)
		return
	}

	if a.pool != nil {
		if err := PingDB(r.Context(), a.pool, 2*time.Second); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			a.log.Info("readyz.db.not_ready", "err", err)
			return
		}
	}

	if a.rdb != nil {
		if err := PingRedis(r.Context(), a.rdb, 2*time.Second); err != nil {
			http.Error(w, "redis not ready", http.StatusServiceUnavailable)
			a.log.Info("readyz.redis.not_ready", "err", err)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready\n"))
}
