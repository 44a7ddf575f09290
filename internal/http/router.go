package http

import (
	"log/slog"

	"github.com/geocoder89/househub/internal/auth"
	"github.com/geocoder89/househub/internal/config"
	"github.com/geocoder89/househub/internal/events"
	"github.com/geocoder89/househub/internal/http/handlers"
	"github.com/geocoder89/househub/internal/http/middlewares"
	"github.com/geocoder89/househub/internal/observability"
	"github.com/geocoder89/househub/internal/ratelimit"
	"github.com/geocoder89/househub/internal/storage"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const (
	serviceName = "househub-api"

	jsonBodyLimit = 1 << 20
)

// UserStore is everything the user-facing routes need from the user table.
type UserStore interface {
	handlers.UserReader
	handlers.UserWriter
	handlers.UserDirectory
	handlers.UserLookup
}

type Deps struct {
	Users  UserStore
	Houses handlers.HouseStore
	Rents  handlers.RentStore

	Images *storage.Store
	Purger handlers.ImagePurger

	Tokens    *auth.Manager
	Limiter   ratelimit.Limiter
	Publisher events.Publisher

	// optional
	Prom   *observability.Prom
	Checks []handlers.Check
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) *gin.Engine {
	if !cfg.IsDev() && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.MaxMultipartMemory = 8 << 20

	// client IPs come from X-Forwarded-For only when the hop is a listed proxy
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Warn("invalid TRUSTED_PROXIES, trusting no proxy", "err", err)
		_ = r.SetTrustedProxies(nil)
	}

	prefix := deps.Images.URLPrefix()

	// middleware
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders(prefix))
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	r.Use(handlers.ExposeInternalErrors(cfg.IsDev()))

	// health
	health := handlers.NewHealthHandler(deps.Checks...)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	if deps.Prom != nil {
		r.GET("/metrics", gin.WrapH(deps.Prom.Handler()))
	}

	uploads := r.Group(prefix, middlewares.StaticUploadHeaders())
	uploads.Static("/", deps.Images.Dir())

	authMW := middlewares.NewAuthMiddleware(deps.Tokens)
	jsonOnly := []gin.HandlerFunc{middlewares.RequireJSON(), middlewares.MaxBodyBytes(jsonBodyLimit)}
	formLimit := middlewares.MaxBodyBytes(cfg.UploadMaxBytes*int64(cfg.UploadMaxFiles) + jsonBodyLimit)

	limit := func(scope string) gin.HandlerFunc {
		return middlewares.RateLimit(deps.Limiter, scope, middlewares.KeyByIP, deps.Prom.IncRateLimited)
	}
	// runs after auth, so each account gets its own window
	limitCaller := func(scope string) gin.HandlerFunc {
		return middlewares.RateLimit(deps.Limiter, scope, middlewares.KeyByUserOrIP, deps.Prom.IncRateLimited)
	}

	// handlers
	authHandler := handlers.NewAuthHandler(deps.Users, deps.Users, deps.Tokens)
	usersHandler := handlers.NewUsersHandler(deps.Users)
	housesHandler := handlers.NewHousesHandler(deps.Houses, deps.Images, deps.Purger, deps.Prom)
	rentsHandler := handlers.NewRentsHandler(deps.Rents, deps.Houses, deps.Users, deps.Publisher, deps.Prom)

	authRoutes := r.Group("/auth", jsonOnly...)
	authRoutes.POST("/register", limit("auth_register"), authHandler.Register)
	authRoutes.POST("/login", limit("auth_login"), authHandler.Login)

	users := r.Group("/users")
	users.GET("", authMW.RequireRoles(auth.Staff), usersHandler.List)
	users.GET("/me", authMW.RequireAuth(), usersHandler.GetMe)
	users.PUT("/me", authMW.RequireAuth(), middlewares.RequireJSON(), usersHandler.UpdateMe)
	users.PUT("/:id", authMW.RequireRoles(auth.Staff), middlewares.RequireJSON(), usersHandler.UpdateUser)
	users.DELETE("/:id", authMW.RequireRoles(auth.Staff), usersHandler.DeleteUser)

	houses := r.Group("/houses")
	houses.GET("", authMW.RequireAuth(), housesHandler.ListHouses)
	houses.GET("/:id", housesHandler.GetHouse)
	houses.POST("", formLimit, authMW.RequireRoles(auth.Managers), limitCaller("houses_create"), housesHandler.CreateHouse)
	houses.PUT("/:id", formLimit, authMW.RequireRoles(auth.Managers), housesHandler.UpdateHouse)
	houses.DELETE("/:id", authMW.RequireRoles(auth.Managers), housesHandler.DeleteHouse)

	rents := r.Group("/rent")
	rents.POST("/book", authMW.RequireRoles(auth.Tenants), limitCaller("rent_book"), middlewares.RequireJSON(), rentsHandler.Book)
	rents.PUT("/:houseId/rents/:rentId", authMW.RequireRoles(auth.Tenants), middlewares.RequireJSON(), rentsHandler.UpdateRent)
	rents.GET("/:houseId/rents", authMW.RequireRoles(auth.Managers), rentsHandler.ListByHouse)

	r.NoRoute(func(ctx *gin.Context) {
		handlers.RespondNotFound(ctx, "Route not found")
	})

	return r
}
