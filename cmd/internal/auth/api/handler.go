package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"authgate/cmd/identity"
	"authgate/cmd/internal/auth/principal"
	"authgate/cmd/internal/auth/session"
)

// Sessions is the login/refresh/logout flow. *session.Orchestrator satisfies it.
type Sessions interface {
	Login(ctx context.Context, username, password string) (session.LoginResult, error)
	Refresh(ctx context.Context, token string) (session.RefreshResult, error)
	Logout(ctx context.Context, p *principal.Principal) error
}

// Registrar creates accounts. *identity.Service satisfies it.
type Registrar interface {
	Register(ctx context.Context, in identity.RegisterInput) (identity.User, error)
}

// Handler wires HTTP auth endpoints to the session and identity services.
type Handler struct {
	log *slog.Logger
	cfg Config

	sessions  Sessions
	registrar Registrar

	limiter *ipLimiter
	metrics *Metrics
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithMetrics records rate-limited requests.
func WithMetrics(m *Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, sessions Sessions, registrar Registrar, opts ...HandlerOption) (*Handler, error) {
	if sessions == nil || registrar == nil {
		return nil, errors.New("authapi: nil session or registration service")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}

	h := &Handler{
		log:       log,
		cfg:       cfg,
		sessions:  sessions,
		registrar: registrar,
		limiter:   newIPLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst, cfg.RateLimitIdleTTL, nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/api/v1/auth/signin", h.handleSignin)
	mux.HandleFunc("/api/v1/auth/register", h.handleRegister)
	mux.HandleFunc("/api/v1/auth/refresh-token", h.handleRefresh)
	mux.HandleFunc("/api/v1/auth/logout", h.handleLogout)
	mux.HandleFunc("/api/v1/auth/me", h.handleMe)
}

// ---- handlers ----

func (h *Handler) handleSignin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.allow(w, r, "signin") {
		return
	}

	var req signinRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		writeMessage(w, r, http.StatusBadRequest, "Username and password are required")
		return
	}

	res, err := h.sessions.Login(r.Context(), username, req.Password)
	if err != nil {
		if errors.Is(err, session.ErrBadCredentials) {
			h.log.Info("auth.login.fail", "username", username, "ip", ipString(clientIP(r, h.cfg.TrustProxy)))
			WriteUnauthorized(w, r, "Bad credentials")
			return
		}
		writeDomainError(w, r, h.log, err)
		return
	}

	h.log.Info("auth.login.ok", "user_id", res.ID)
	writeJSON(w, http.StatusOK, signinResponse{
		ID:           res.ID,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		Username:     res.Username,
		Email:        res.Email,
		Roles:        res.Roles,
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.allow(w, r, "register") {
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	u, err := h.registrar.Register(r.Context(), identity.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Roles:    req.Roles,
	})
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}

	h.log.Info("auth.register.ok", "user_id", u.ID)
	writeJSON(w, http.StatusCreated, userResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Roles:    identity.Authorities(u.Roles),
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.allow(w, r, "refresh") {
		return
	}

	var req refreshRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeMessage(w, r, http.StatusBadRequest, "refreshToken is required")
		return
	}

	res, err := h.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.log.Info("auth.refresh.fail", "err", err)
		writeDomainError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	p, ok := principal.FromContext(r.Context())
	if !ok {
		WriteUnauthorized(w, r, "Full authentication is required to access this resource")
		return
	}

	if err := h.sessions.Logout(r.Context(), p); err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}

	h.log.Info("auth.logout.ok", "user_id", p.UserID)
	writeJSON(w, http.StatusOK, messageResponse{Message: "User logout. Username is: " + p.Username})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	p, ok := principal.FromContext(r.Context())
	if !ok {
		WriteUnauthorized(w, r, "Full authentication is required to access this resource")
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		ID:       p.UserID,
		Username: p.Username,
		Email:    p.Email,
		Roles:    p.Authorities(),
	})
}

// ---- helpers ----

func (h *Handler) allow(w http.ResponseWriter, r *http.Request, endpoint string) bool {
	ok, retryAfter := h.limiter.allow(ipString(clientIP(r, h.cfg.TrustProxy)))
	if ok {
		return true
	}
	h.metrics.limited(endpoint)
	writeRateLimited(w, r, retryAfter)
	return false
}

func ipString(ip net.IP) string {
	if ip == nil {
		return "unknown"
	}
	return ip.String()
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for _, p := range parts {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
