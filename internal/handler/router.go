package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/meniumate/internal/auth"
	"github.com/mmynk/meniumate/internal/metrics"
	"github.com/mmynk/meniumate/internal/middleware"
	"github.com/mmynk/meniumate/internal/models"
	"github.com/mmynk/meniumate/internal/service"
)

// RouterDeps holds everything NewRouter wires together.
type RouterDeps struct {
	AuthService    *service.AuthService
	GroupService   *service.GroupService
	CatalogService *service.CatalogService
	JWTManager     *auth.JWTManager

	// Optional.
	RateLimiter       *middleware.RateLimiter
	Metrics           *metrics.Collector
	Gatherer          prometheus.Gatherer
	CORSAllowedOrigin string
	Logger            *slog.Logger
}

// NewRouter builds the API router.
//
// Middleware order: Recoverer → CORS → Logging, then per route group
// auth → rate limit.
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(deps.CORSAllowedOrigin))
	r.Use(middleware.Logging(logger, deps.Metrics))

	authHandler := NewAuthHandler(deps.AuthService, logger)
	groupHandler := NewGroupHandler(deps.GroupService, logger)
	catalogHandler := NewCatalogHandler(deps.CatalogService, logger)

	requireAuth := middleware.RequireAuth(deps.JWTManager)
	optionalAuth := middleware.OptionalAuth(deps.JWTManager)
	requireAdmin := chi.Chain(requireAuth, middleware.RequireRole(models.RoleAdmin))
	authLimit, generalLimit := passthrough, passthrough
	if deps.RateLimiter != nil {
		authLimit = deps.RateLimiter.Auth()
		generalLimit = deps.RateLimiter.General()
	}

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Route("/api", func(r chi.Router) {
		// Credentials
		r.Group(func(r chi.Router) {
			r.Use(authLimit)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/accessToken", authHandler.Refresh)
		})
		r.With(optionalAuth).Post("/logout", authHandler.Logout)

		// Catalog: public reads, role-gated writes
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			r.Use(generalLimit)

			r.Route("/menius", func(r chi.Router) {
				r.Get("/", catalogHandler.ListMenus)
				r.With(requireAdmin.Handler).Post("/", catalogHandler.CreateMenu)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", catalogHandler.GetMenu)
					r.With(requireAdmin.Handler).Put("/", catalogHandler.UpdateMenu)
					r.With(requireAdmin.Handler).Delete("/", catalogHandler.DeleteMenu)

					r.Get("/dishes", catalogHandler.ListDishes)
					r.With(requireAdmin.Handler).Post("/dishes", catalogHandler.CreateDish)

					r.Route("/dishes/{dishId}", func(r chi.Router) {
						r.Get("/", catalogHandler.GetDish)
						r.With(requireAdmin.Handler).Put("/", catalogHandler.UpdateDish)
						r.With(requireAdmin.Handler).Delete("/", catalogHandler.DeleteDish)

						r.Get("/comments", catalogHandler.ListComments)
						r.With(requireAuth).Post("/comments", catalogHandler.CreateComment)
						r.With(requireAuth).Put("/comments/{commentId}", catalogHandler.UpdateComment)
						r.With(requireAuth).Delete("/comments/{commentId}", catalogHandler.DeleteComment)
					})
				})
			})
		})

		// Authenticated
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(generalLimit)

			r.Get("/me", authHandler.Me)

			r.Route("/groups", func(r chi.Router) {
				r.Get("/", groupHandler.ListGroups)
				r.Post("/", groupHandler.CreateGroup)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", groupHandler.GetGroup)
					r.Get("/debts", groupHandler.ListDebts)
					r.Get("/transactions", groupHandler.ListTransactions)
					r.Post("/transactions", groupHandler.CreateTransaction)
					r.Post("/members", groupHandler.AddMember)
					r.Delete("/members/{memberId}", groupHandler.RemoveMember)
					r.Post("/settle", groupHandler.Settle)
				})
			})
		})
	})

	return r
}

func passthrough(next http.Handler) http.Handler {
	return next
}
