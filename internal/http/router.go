package http

import (
	"log/slog"

	"github.com/crosslove/eventhub/internal/auth"
	"github.com/crosslove/eventhub/internal/config"
	"github.com/crosslove/eventhub/internal/domain/user"
	"github.com/crosslove/eventhub/internal/geocoding"
	"github.com/crosslove/eventhub/internal/http/handlers"
	"github.com/crosslove/eventhub/internal/http/middlewares"
	"github.com/crosslove/eventhub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// EventsRepository is everything the public and admin event routes need.
type EventsRepository interface {
	handlers.EventFinder
	handlers.EventAdminStore
}

type RegistrationsRepository interface {
	handlers.RegistrationStore
	handlers.ParticipantStore
	handlers.LocationLister
}

type Deps struct {
	Logger *slog.Logger
	Config config.Config

	Users         handlers.UserStore
	Categories    handlers.CategoryStore
	Events        EventsRepository
	Registrations RegistrationsRepository
	Jobs          handlers.JobsCreator

	Tokens   *auth.Manager
	Geocoder geocoding.Geocoder
	Cache    *handlers.ReadCache

	// named readiness checks, e.g. "postgres" and "redis"
	Checks map[string]handlers.Pinger

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	TracingEnabled bool
	ServiceName    string
	MaxBodyBytes   int64
	AuthRateLimit  int
}

func NewRouter(d Deps) *gin.Engine {
	if d.Config.Env != "dev" && d.Config.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.ServiceName == "" {
		d.ServiceName = "eventhub-api"
	}

	handlers.RegisterBindingRules()

	r := gin.New()
	r.Use(globalChain(d)...)

	health := handlers.NewHealthHandler(d.Checks)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	authMW := middlewares.NewAuthMiddleware(d.Tokens)
	requireAuth := authMW.RequireAuth()
	requireAdmin := authMW.RequireRole(user.RoleAdmin)

	authHandler := handlers.NewAuthHandler(d.Users, d.Tokens)
	eventsHandler := handlers.NewEventsHandler(d.Events, d.Cache, d.Logger)
	apiHandler := handlers.NewAPIHandler(d.Events, d.Registrations, d.Cache)
	registrationHandler := handlers.NewRegistrationHandler(d.Registrations, d.Cache, d.Prom, d.Logger)
	categoriesHandler := handlers.NewCategoriesHandler(d.Categories, d.Cache)
	adminHandler := handlers.NewAdminHandler(handlers.AdminDeps{
		Events:       d.Events,
		Participants: d.Registrations,
		Jobs:         d.Jobs,
		Geocoder:     d.Geocoder,
		Cache:        d.Cache,
		Logger:       d.Logger,
	})

	authGroup := r.Group("/auth", authLimiter(d))
	authGroup.POST("/signup", authHandler.SignUp)
	authGroup.POST("/login", authHandler.Login)

	r.GET("/events", eventsHandler.ListEvents)
	r.GET("/events/categories", eventsHandler.ListCategories)
	r.GET("/events/calendar", eventsHandler.Calendar)
	r.GET("/events/slug/:slug", eventsHandler.GetBySlug)
	r.GET("/categories", categoriesHandler.List)

	api := r.Group("/api")
	api.GET("/events/summary", apiHandler.Summary)
	api.GET("/events/:id", apiHandler.Detail)
	api.GET("/events/:id/participants/locations", requireAuth, requireAdmin, apiHandler.ParticipantLocations)

	member := r.Group("", requireAuth)
	member.POST("/events/:id/registrations", registrationHandler.Register)
	member.POST("/registrations/:id/cancel", registrationHandler.Cancel)
	member.PUT("/registrations/:id/location", registrationHandler.UpdateLocation)
	member.GET("/me/registrations", registrationHandler.Mine)
	member.GET("/me/registrations/:id/qrcode", registrationHandler.QRCode)

	admin := r.Group("/admin", requireAuth, requireAdmin)
	admin.GET("/dashboard", adminHandler.Dashboard)
	admin.GET("/events", adminHandler.ListEvents)
	admin.POST("/events", adminHandler.CreateEvent)
	admin.PUT("/events/:id", adminHandler.UpdateEvent)
	admin.DELETE("/events/:id", adminHandler.DeleteEvent)
	admin.POST("/events/:id/cancel", adminHandler.CancelEvent)
	admin.GET("/events/:id/participants", adminHandler.Participants)
	admin.DELETE("/events/:id/registrations/:registrationId", adminHandler.DeleteRegistration)
	admin.POST("/categories", categoriesHandler.Create)
	admin.PUT("/categories/:id", categoriesHandler.Update)
	admin.DELETE("/categories/:id", categoriesHandler.Delete)

	return r
}
