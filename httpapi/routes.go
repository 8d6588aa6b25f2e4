package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-chi/jwtauth"
)

// RouterOptions configures the cross-cutting middleware
type RouterOptions struct {
	AllowedOrigins []string
	RateLimit      int // requests per minute per client IP, 0 disables
	Metrics        http.Handler
	Timeout        time.Duration
}

// NewRouter builds the chi router with middleware and every route
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if opts.Timeout > 0 {
		r.Use(middleware.Timeout(opts.Timeout))
	}
	r.Use(cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}).Handler)
	if opts.RateLimit > 0 {
		r.Use(httprate.LimitByIP(opts.RateLimit, time.Minute))
	}

	r.Get("/healthz", h.HealthHandler)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	h.SetRoutes(r)
	return r
}

// SetRoutes mounts the authenticated /v1 API
func (h *Handler) SetRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Use(jwtauth.Verifier(h.tokenAuth))
		r.Use(authenticator)

		r.Route("/games", func(r chi.Router) {
			r.Post("/", h.CreateGame)
			r.Get("/open", h.ListOpenGames)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetGame)
				r.Delete("/", h.DeleteGame)
				r.Post("/accept", h.gameTransition(acceptGame))
				r.Post("/decline", h.gameTransition(declineGame))
				r.Post("/cancel", h.gameTransition(cancelGame))

				r.Group(func(r chi.Router) {
					r.Use(h.requireOperator)
					r.Post("/complete", h.CompleteGame)
					r.Post("/void", h.gameTransition(voidGame))
					r.Get("/audit", h.AuditGame)
				})
			})
		})

		r.Route("/me", func(r chi.Router) {
			r.Get("/balance", h.GetBalance)
			r.Get("/entries", h.ListEntries)
			r.Get("/games", h.ListMyGames)
			r.Post("/withdrawals", h.Withdraw)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.requireOperator)
			r.Post("/deposits", h.Deposit)
		})
	})
}

// TokenAuth exposes the verifier, e.g. to mint tokens in tests and tools
func (h *Handler) TokenAuth() *jwtauth.JWTAuth {
	return h.tokenAuth
}
