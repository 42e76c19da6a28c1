package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/MrEthical07/tokengate"
	"github.com/MrEthical07/tokengate/credential"
	"github.com/MrEthical07/tokengate/middleware"
	tgprom "github.com/MrEthical07/tokengate/metrics/export/prometheus"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// AdminRole is the role required by /api/admin.
const AdminRole = "admin"

// Options configures the router.
type Options struct {
	Engine         *tokengate.Engine
	Logger         *slog.Logger
	Registry       *prometheus.Registry
	AllowedOrigins []string
}

type server struct {
	engine *tokengate.Engine
	logger *slog.Logger
}

// NewRouter builds the HTTP handler. A nil Registry gets a private one, so routers never
// touch the global Prometheus registry.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	reg.MustRegister(tgprom.NewCollector(opts.Engine))
	metrics := newHTTPMetrics(reg)

	s := &server{engine: opts.Engine, logger: logger}

	r := mux.NewRouter()
	r.Use(requestContext, metrics.middleware, s.accessLog)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/register", s.register).Methods(http.MethodPost)
	api.HandleFunc("/login", s.login).Methods(http.MethodPost)
	api.Handle("/profile", middleware.Guard(opts.Engine)(http.HandlerFunc(s.profile))).Methods(http.MethodGet)
	api.Handle("/admin", middleware.RequireRole(opts.Engine, AdminRole)(http.HandlerFunc(s.admin))).Methods(http.MethodGet)

	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// rs/cors treats an empty origin list as "*"; with no origins configured the API
	// stays same-origin.
	if len(opts.AllowedOrigins) == 0 {
		return r
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	})
	return c.Handler(r)
}

type registerResponse struct {
	Subject   string `json:"subject"`
	Role      string `json:"role"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

type loginResponse struct {
	Token     string `json:"token"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"expires_at"`
}

type profileResponse struct {
	Subject   string `json:"subject"`
	Role      string `json:"role"`
	IssuedAt  int64  `json:"issued_at"`
	ExpiresAt int64  `json:"expires_at"`
}

func (s *server) register(w http.ResponseWriter, r *http.Request) {
	reg, err := credential.DecodeRegistration(r.Body)
	if err != nil {
		s.writeDecodeError(w, err)
		return
	}

	issued, err := s.engine.Register(r.Context(), reg)
	if err != nil {
		switch {
		case errors.Is(err, tokengate.ErrAccountExists):
			writeError(w, http.StatusConflict, "account already exists")
		case errors.Is(err, tokengate.ErrAccountCreationInvalid):
			s.writeDecodeError(w, err)
		case errors.Is(err, tokengate.ErrAccountCreationDisabled):
			writeError(w, http.StatusForbidden, "registration disabled")
		default:
			s.internalError(w, r, "register failed", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Subject:   issued.Subject,
		Role:      string(issued.Role),
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt.Unix(),
	})
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	req, err := credential.DecodeLogin(r.Body)
	if err != nil {
		s.writeDecodeError(w, err)
		return
	}

	issued, err := s.engine.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, tokengate.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, tokengate.ErrLoginRateLimited):
			w.Header().Set("Retry-After", retryAfterSeconds(s.engine.LoginRetryAfter(r.Context(), req.Username)))
			writeError(w, http.StatusTooManyRequests, "too many attempts")
		default:
			s.internalError(w, r, "login failed", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     issued.Token,
		Role:      string(issued.Role),
		ExpiresAt: issued.ExpiresAt.Unix(),
	})
}

func (s *server) profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		middleware.Unauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{
		Subject:   claims.Subject(),
		Role:      string(claims.Role()),
		IssuedAt:  claims.IssuedAt(),
		ExpiresAt: claims.ExpiresAt(),
	})
}

func (s *server) admin(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "admin access granted"})
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) writeDecodeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, credential.ErrBodyTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, credential.ErrInvalidUsername):
		writeError(w, http.StatusBadRequest, "invalid username")
	case errors.Is(err, credential.ErrInvalidPassword):
		writeError(w, http.StatusBadRequest, "invalid password")
	default:
		writeError(w, http.StatusBadRequest, "malformed request")
	}
}

func (s *server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.logger.ErrorContext(r.Context(), msg, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// requestContext attaches a fresh request ID and the peer address to the request.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)

		ctx := tokengate.WithRequestID(r.Context(), id)
		if ip := remoteIP(r.RemoteAddr); ip != "" {
			ctx = tokengate.WithClientIP(ctx, ip)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		s.logger.InfoContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.Status(),
			"duration", time.Since(start),
			"request_id", w.Header().Get("X-Request-ID"),
		)
	})
}

// retryAfterSeconds renders d as a Retry-After value, rounding up to at least one second.
func retryAfterSeconds(d time.Duration) string {
	secs := int64((d + time.Second - 1) / time.Second)
	return strconv.FormatInt(max(secs, 1), 10)
}

func remoteIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
