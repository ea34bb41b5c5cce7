package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/verdanthq/verdant-backend/api/controllers"
	"github.com/verdanthq/verdant-backend/api/middleware"
	adminsvc "github.com/verdanthq/verdant-backend/internal/admin"
	authsvc "github.com/verdanthq/verdant-backend/internal/auth"
	blogsvc "github.com/verdanthq/verdant-backend/internal/blog"
	bookingsvc "github.com/verdanthq/verdant-backend/internal/bookings"
	cartsvc "github.com/verdanthq/verdant-backend/internal/cart"
	catalogsvc "github.com/verdanthq/verdant-backend/internal/catalog"
	notifsvc "github.com/verdanthq/verdant-backend/internal/notifications"
	usersvc "github.com/verdanthq/verdant-backend/internal/users"
	"github.com/verdanthq/verdant-backend/pkg/config"
	"github.com/verdanthq/verdant-backend/pkg/logger"
	"github.com/verdanthq/verdant-backend/pkg/metrics"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type sessionStore interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// cacheStore is the slice of the redis client the router hands out to
// health checks and the rate limiter.
type cacheStore interface {
	pinger
	middleware.RateLimiterStore
}

// Deps carries everything the router needs. Keeping it a struct spares
// main from a parameter list that grows with every service.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	Metrics *metrics.Metrics

	DB       pinger
	Redis    cacheStore
	Sessions sessionStore

	Auth          authsvc.Service
	Catalog       catalogsvc.Service
	Cart          cartsvc.Service
	Bookings      bookingsvc.Service
	Users         usersvc.Service
	Blog          blogsvc.Service
	Notifications notifsvc.Service
	Admin         adminsvc.Service
}

// NewRouter assembles the HTTP surface.
func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, d.Metrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.LoginRateLimitPolicy(cfg.AuthRateLimit)
	registerPolicy := middleware.RegisterRateLimitPolicy(cfg.AuthRateLimit)

	authn := middleware.Authenticate(cfg.JWT, d.Sessions, logg)
	guest := middleware.GuestIdentity(cfg.Guest, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(d.DB, d.Redis))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authn, guest)

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(d.Redis, loginPolicy, logg)).
				Post("/login", controllers.Login(d.Auth, logg))
			r.With(middleware.AuthRateLimit(d.Redis, registerPolicy, logg)).
				Post("/register", controllers.Register(d.Auth, logg))
			r.Post("/refresh", controllers.Refresh(d.Auth, logg))
			r.Post("/logout", controllers.Logout(d.Auth, cfg.JWT, logg))
			r.Get("/verify-email", controllers.VerifyEmail(d.Auth, logg))
			r.Post("/resend-verification", controllers.ResendVerification(d.Auth, logg))
		})

		r.Route("/services", func(r chi.Router) {
			r.Get("/", controllers.ListServices(d.Catalog, logg))
			r.Get("/{id}", controllers.GetService(d.Catalog, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartSummary(d.Cart, logg))
			r.Get("/summary", controllers.CartSummary(d.Cart, logg))
			r.Post("/items", controllers.AddCartLine(d.Cart, logg))
			r.Patch("/items/{id}", controllers.UpdateCartLine(d.Cart, logg))
			r.Delete("/items/{id}", controllers.RemoveCartLine(d.Cart, logg))
			r.With(middleware.RequireAuth(logg)).
				Post("/checkout", controllers.Checkout(d.Cart, logg))
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", controllers.ListPosts(d.Blog, logg))
			r.With(middleware.RequireBlogger(logg)).
				Post("/", controllers.CreatePost(d.Blog, logg))
			r.Get("/{slug}", controllers.GetPost(d.Blog, logg))
			r.Post("/{slug}/comments", controllers.AddComment(d.Blog, logg))
		})

		r.Route("/comments", func(r chi.Router) {
			r.Patch("/{id}", controllers.UpdateComment(d.Blog, logg))
			r.Delete("/{id}", controllers.DeleteComment(d.Blog, logg))
			r.With(middleware.RequireStaff(logg)).Get("/pending", controllers.ListPendingComments(d.Blog, logg))
			r.With(middleware.RequireStaff(logg)).Post("/{id}/approve", controllers.ApproveComment(d.Blog, logg))
		})

		r.Route("/bookings", func(r chi.Router) {
			r.Use(middleware.RequireAuth(logg))
			r.Get("/", controllers.ListMyBookings(d.Bookings, logg))
			r.Post("/{id}/cancel", controllers.CancelBooking(d.Bookings, logg))
		})

		r.Route("/profile", func(r chi.Router) {
			r.Use(middleware.RequireAuth(logg))
			r.Get("/", controllers.GetProfile(d.Users, logg))
			r.Patch("/", controllers.UpdateProfile(d.Users, logg))
		})

		r.With(middleware.RequireAuth(logg)).
			Post("/blogger-requests", controllers.RequestBloggerRole(d.Users, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Use(middleware.RequireAuth(logg))
			r.Get("/", controllers.ListNotifications(d.Notifications, logg))
			r.Post("/{id}/read", controllers.MarkNotificationRead(d.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(d.Notifications, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(authn, middleware.RequireStaff(logg))
		r.Get("/dashboard", controllers.AdminDashboard(d.Admin, logg))
		r.Post("/posts/{id}/approve", controllers.AdminApprovePost(d.Admin, logg))
		r.Get("/bookings", controllers.ListPendingBookings(d.Bookings, logg))
		r.Post("/bookings/{id}/status", controllers.SetBookingStatus(d.Bookings, logg))
		r.Get("/blogger-requests", controllers.ListPendingBloggerRequests(d.Users, logg))
		r.Post("/blogger-requests/{id}/approve", controllers.AdminApproveBloggerRequest(d.Admin, logg))
	})

	return r
}
