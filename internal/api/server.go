// Package api exposes the storefront services over HTTP.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/safar/storefront/internal/apperr"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/cart"
	"github.com/safar/storefront/internal/catalog"
	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/media"
	"github.com/safar/storefront/internal/metrics"
	"github.com/sirupsen/logrus"
)

const maxJSONBody = 1 << 20

// Deps are the collaborators the HTTP layer dispatches to.
type Deps struct {
	Config  *config.Config
	Logger  *logrus.Logger
	Metrics *metrics.Metrics
	Auth    *auth.Service
	Catalog *catalog.Service
	Cart    *cart.Service
	Media   *media.Service

	// Health reports storage reachability for /healthz. Nil means always healthy.
	Health func(ctx context.Context) error
}

type Server struct {
	cfg     *config.Config
	logger  *logrus.Logger
	metrics *metrics.Metrics
	auth    *auth.Service
	catalog *catalog.Service
	cart    *cart.Service
	media   *media.Service
	health  func(ctx context.Context) error
	limiter *rateLimiter
}

func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{
		cfg:     deps.Config,
		logger:  logger,
		metrics: deps.Metrics,
		auth:    deps.Auth,
		catalog: deps.Catalog,
		cart:    deps.Cart,
		media:   deps.Media,
		health:  deps.Health,
		limiter: newRateLimiter(deps.Config.RateLimit.RequestsPerSecond, deps.Config.RateLimit.Burst),
	}
}

// Handler builds the router and wraps it in the request-wide middleware.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(metricsMiddleware(s.metrics))

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, apperr.NotFound("route not found"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusMethodNotAllowed, envelope{"success": false, "message": "method not allowed"})
	})

	r.HandleFunc("/healthz", s.handleHealth()).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	if s.cfg.Upload.ImageHost == "disk" && strings.HasPrefix(s.cfg.Upload.PublicBase, "/") {
		prefix := strings.TrimRight(s.cfg.Upload.PublicBase, "/") + "/"
		r.PathPrefix(prefix).Handler(http.StripPrefix(prefix, http.FileServer(http.Dir(s.cfg.Upload.Dir))))
	}

	api := r.PathPrefix("/api").Subrouter()

	authRoutes := api.PathPrefix("/auth").Subrouter()
	authRoutes.Handle("/register", s.limiter.wrap(s.handleRegister())).Methods(http.MethodPost)
	authRoutes.Handle("/login", s.limiter.wrap(s.handleLogin())).Methods(http.MethodPost)
	authRoutes.HandleFunc("/logout", s.handleLogout()).Methods(http.MethodPost)
	authRoutes.Handle("/me", s.requireSession(s.handleMe())).Methods(http.MethodGet)

	shop := api.PathPrefix("/shop").Subrouter()
	shop.HandleFunc("/products", s.handleShopProducts()).Methods(http.MethodGet, http.MethodPost)
	shop.HandleFunc("/products/{id}", s.handleGetProduct()).Methods(http.MethodGet)
	shop.Handle("/cart/add", s.requireSession(s.handleCartAdd())).Methods(http.MethodPost)
	shop.Handle("/cart/update", s.requireSession(s.handleCartUpdate())).Methods(http.MethodPut)
	shop.Handle("/cart/clear", s.requireSession(s.handleCartClear())).Methods(http.MethodDelete)
	shop.Handle("/cart/{userId}", s.requireSession(s.handleCartGet())).Methods(http.MethodGet)
	shop.Handle("/cart/{userId}/{productId}", s.requireSession(s.handleCartRemove())).Methods(http.MethodDelete)

	admin := api.PathPrefix("/admin/products").Subrouter()
	admin.Handle("/add", s.requireAdmin(s.handleAdminCreate())).Methods(http.MethodPost)
	admin.Handle("/upload-image", s.requireAdmin(s.handleUploadImage())).Methods(http.MethodPost)
	admin.Handle("", s.requireAdmin(s.handleAdminList())).Methods(http.MethodGet, http.MethodPost)
	admin.Handle("/{id}", s.requireAdmin(s.handleGetProduct())).Methods(http.MethodGet)
	admin.Handle("/{id}", s.requireAdmin(s.handleAdminUpdate())).Methods(http.MethodPut)
	admin.Handle("/{id}", s.requireAdmin(s.handleAdminDelete())).Methods(http.MethodDelete)

	var h http.Handler = r
	h = corsMiddleware(s.cfg.CORS.AllowedOrigins)(h)
	h = recoveryMiddleware(h)
	h = loggingMiddleware(s.logger)(h)
	return h
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.health != nil {
			if err := s.health(r.Context()); err != nil {
				s.logger.WithError(err).Warn("Health check failed")
				respondJSON(w, r, http.StatusServiceUnavailable, envelope{"success": false, "status": "unavailable"})
				return
			}
		}
		respondOK(w, r, http.StatusOK, envelope{"status": "ok"})
	}
}
