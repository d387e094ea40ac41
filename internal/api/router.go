package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"myapi/internal/auth"
	"myapi/internal/config"
	"myapi/internal/db"
	"myapi/internal/images"
	"myapi/internal/metrics"
	"myapi/internal/models"
)

type Server struct {
	router *chi.Mux
	config *config.Config
}

func NewServer(
	cfg *config.Config,
	database *db.DB,
	accounts *auth.Service,
	tokens *auth.JWTService,
	imageStore *images.Store,
) *Server {
	authHandler := NewAuthHandler(accounts, cfg.Images.MaxUploadBytes)
	userHandler := NewUserHandler(accounts)
	healthHandler := NewHealthHandler(database, imageStore)

	authMiddleware := NewAuthMiddleware(tokens)

	r := chi.NewRouter()
	r.Use(caseInsensitiveAPIPaths)
	r.Use(slogRequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)
	r.Use(securityHeadersMiddleware)

	r.Get("/health", healthHandler.Check)
	r.Handle("/metrics", metrics.Handler())

	// Only the local backend is served from here; s3 variants are fetched
	// from the bucket directly.
	if local, ok := imageStore.Backend().(*images.LocalBackend); ok {
		imageHandler := NewImageHandler(local, imageStore.Sizes())
		r.Get(strings.TrimRight(cfg.Images.PublicPath, "/")+"/{name}", imageHandler.GetVariant)
	}

	r.Route("/api/account", func(r chi.Router) {
		loginLimiter := RateLimitMiddleware(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		registerLimiter := RateLimitMiddleware(cfg.RateLimit.Requests, cfg.RateLimit.Window)

		r.With(loginLimiter, maxBodySizeMiddleware(1<<20)).Post("/login", authHandler.Login) // 1 MB
		r.With(registerLimiter).Post("/register", authHandler.Register)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Get("/profile", userHandler.GetMe)
			r.With(RequireRole(models.RoleAdmin)).Get("/users", userHandler.GetAll)
		})
	})

	return &Server{
		router: r,
		config: cfg,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// caseInsensitiveAPIPaths lower-cases /api paths before routing so that
// /api/Account/Login reaches /api/account/login.
func caseInsensitiveAPIPaths(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if len(path) >= 4 && strings.EqualFold(path[:4], "/api") {
			r.URL.Path = strings.ToLower(path)
			r.URL.RawPath = ""
		}
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func maxBodySizeMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"remote", r.RemoteAddr,
		)
	})
}
