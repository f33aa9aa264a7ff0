// Package server assembles the HTTP router and runs the API server.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/luxury-rentals/internal/auth"
	"github.com/ukydev/luxury-rentals/internal/config"
	"github.com/ukydev/luxury-rentals/internal/handlers"
	"github.com/ukydev/luxury-rentals/internal/middleware"
	"github.com/ukydev/luxury-rentals/internal/models"
	"github.com/ukydev/luxury-rentals/internal/rental"
	"github.com/ukydev/luxury-rentals/internal/session"
	"github.com/ukydev/luxury-rentals/internal/storage"
)

// Deps are the services the router exposes.
type Deps struct {
	Config   config.ServerConfig
	Auth     *auth.Manager
	Services *rental.Services
	Settings *session.Settings
	Idle     *session.IdleManager
	Avatars  storage.ObjectStore
	// SecureCookies marks session cookies Secure.
	SecureCookies bool
	// Checks are run by GET /health.
	Checks map[string]handlers.Pinger
}

// NewRouter builds the routes of the API.
func NewRouter(d Deps) http.Handler {
	authH := handlers.NewAuthHandler(d.Auth, d.Config.PublicURL, d.SecureCookies)
	carH := handlers.NewCarHandler(d.Services)
	bookingH := handlers.NewBookingHandler(d.Services)
	reviewH := handlers.NewReviewHandler(d.Services)
	promoH := handlers.NewPromotionHandler(d.Services)
	profileH := handlers.NewProfileHandler(d.Services)
	adminH := handlers.NewAdminHandler(d.Services)
	sessionH := handlers.NewSessionHandler(d.Settings, d.Idle)
	storageH := handlers.NewStorageHandler(d.Avatars)

	authMW := middleware.NewAuthMiddleware(d.Auth, d.Idle)
	rateLimit := middleware.NewRateLimitMiddleware()

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.PageGuard)

	r.Get("/health", handlers.Health(d.Checks))
	r.Get("/auth/callback", authH.OAuthCallback)
	r.Get(storage.PublicPrefix(rental.AvatarBucket)+"*", storageH.Object)

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(ar chi.Router) {
			ar.Use(rateLimit.RateLimit(d.Config.RateLimit, d.Config.RateLimitWindow))
			ar.Post("/signup", authH.SignUp)
			ar.Post("/signin", authH.SignIn)
			ar.Post("/refresh", authH.Refresh)
			ar.Post("/password/reset", authH.RequestPasswordReset)
			ar.Post("/password/reset/confirm", authH.ConfirmPasswordReset)
			ar.Get("/oauth/google", authH.OAuthStart)
			ar.Get("/session", authH.Session)

			ar.Group(func(p chi.Router) {
				p.Use(authMW.Authenticate)
				p.Post("/signout", authH.SignOut)
				p.Get("/user", authH.User)
				p.Put("/password", authH.UpdatePassword)
			})
		})

		api.Route("/cars", func(cr chi.Router) {
			cr.Get("/", carH.List)
			cr.Get("/featured", carH.Featured)
			cr.Get("/categories", carH.Categories)
			cr.Get("/brands", carH.Brands)
			cr.Get("/{id}", carH.Get)
			cr.Get("/{id}/availability", carH.Availability)
			cr.Get("/{id}/quote", carH.Quote)
			cr.Get("/{id}/reviews", carH.Reviews)
		})

		api.Get("/promotions", promoH.Active)
		api.Post("/promotions/validate", promoH.Validate)
		api.Get("/faqs", promoH.FAQs)
		api.Get("/faqs/categories", promoH.FAQCategories)

		api.Group(func(p chi.Router) {
			p.Use(authMW.Authenticate)

			p.With(authMW.RequirePermission("create_booking")).Post("/bookings", bookingH.Create)
			p.Get("/bookings", bookingH.Mine)
			p.With(authMW.RequirePermission("cancel_booking")).Post("/bookings/{id}/cancel", bookingH.Cancel)

			p.With(authMW.RequirePermission("create_review")).Post("/reviews", reviewH.Create)
			p.Get("/reviews/mine", reviewH.Mine)
			p.With(authMW.RequirePermission("delete_review")).Delete("/reviews/{id}", reviewH.Delete)

			p.Route("/profile", func(pr chi.Router) {
				pr.Use(authMW.RequirePermission("manage_profile"))
				pr.Get("/", profileH.Get)
				pr.Put("/", profileH.Update)
				pr.Get("/avatar", profileH.Avatar)
				pr.Post("/avatar", profileH.UploadAvatar)
				pr.Delete("/avatar", profileH.DeleteAvatar)
			})

			p.Get("/session/timeout", sessionH.GetTimeout)
			p.Put("/session/timeout", sessionH.UpdateTimeout)
			p.Post("/session/activity", sessionH.Activity)
		})

		api.Route("/admin", func(ad chi.Router) {
			ad.Use(authMW.Authenticate)
			ad.Use(authMW.RequireRole(models.RoleAdmin))

			ad.Get("/dashboard", adminH.Dashboard)
			ad.Post("/cars", carH.Create)
			ad.Put("/cars/{id}", carH.Update)
			ad.Put("/cars/{id}/availability", carH.SetAvailability)
			ad.Delete("/cars/{id}", carH.Delete)
			ad.Get("/bookings", bookingH.All)
			ad.Put("/bookings/{id}/status", bookingH.UpdateStatus)
			ad.Post("/promotions", promoH.Create)
			ad.Post("/promotions/{id}/deactivate", promoH.Deactivate)
			ad.Post("/faqs", promoH.CreateFAQ)
		})
	})

	return r
}

// Server wraps the http.Server running the API.
type Server struct {
	httpServer *http.Server
}

// New creates a server listening on the configured port.
func New(d Deps) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + d.Config.Port,
			Handler:      NewRouter(d),
			ReadTimeout:  d.Config.ReadTimeout,
			WriteTimeout: d.Config.WriteTimeout,
		},
	}
}

// Start serves until Shutdown is called. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	log.WithField("addr", s.httpServer.Addr).Info("Server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
