package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/pressroom/internal/auth"
	"github.com/geocoder89/pressroom/internal/config"
	"github.com/geocoder89/pressroom/internal/domain/identity"
	"github.com/geocoder89/pressroom/internal/http/handlers"
	"github.com/geocoder89/pressroom/internal/http/middlewares"
	"github.com/geocoder89/pressroom/internal/observability"
	"github.com/geocoder89/pressroom/internal/redisclient"
	"github.com/geocoder89/pressroom/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func NewRouter(cfg config.Config, log *slog.Logger, pool *pgxpool.Pool, redis *redisclient.Client) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("pressroom-api"))
	r.Use(RequestID())
	r.Use(RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(1 << 20)) // 1 MiB

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)
	r.Use(prom.GinHandleMiddleware())
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// health
	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(pool, prom)
	postsRepo := postgres.NewPostsRepo(pool, prom)
	commentsRepo := postgres.NewCommentsRepo(pool, prom)
	refreshRepo := postgres.NewRefreshTokensRepo(pool)

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	authMW := middlewares.NewAuthMiddleware(jwtManager, usersRepo)

	// one distributed window when redis is configured, per-process otherwise
	var limiter middlewares.Limiter

	if redis != nil {
		limiter = middlewares.NewRedisLimiter(redis.Raw(), 30, time.Minute)
	} else {
		limiter = middlewares.NewMemoryLimiter(30, time.Minute)
	}

	// wire up handlers
	authHandler := handlers.NewAuthHandler(usersRepo, usersRepo, jwtManager, refreshRepo, cfg)
	postsHandler := handlers.NewPostsHandler(postsRepo, commentsRepo)
	adminHandler := handlers.NewAdminHandler(usersRepo)

	authGroup := r.Group("/auth")
	authGroup.Use(middlewares.RateLimit(limiter, middlewares.KeyByIP))
	authGroup.POST("/signup", authHandler.SignUp)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/refresh", authHandler.Refresh)
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.POST("/logout_all", authMW.RequireAuth(), authHandler.LogoutAll)

	// reads tolerate anonymous callers, the policy narrows what they see
	r.GET("/posts", authMW.OptionalAuth(), postsHandler.ListPosts)
	r.GET("/posts/:id", authMW.OptionalAuth(), postsHandler.GetPost)

	mutate := middlewares.RateLimit(limiter, middlewares.KeyByUserOrIP)
	r.POST("/posts", authMW.RequireAuth(), mutate, postsHandler.CreatePost)
	r.PATCH("/posts/:id", authMW.RequireAuth(), mutate, postsHandler.UpdatePost)
	r.POST("/posts/:id/comments", authMW.RequireAuth(), mutate, postsHandler.AddComment)

	admin := r.Group("/admin")
	admin.Use(authMW.RequireAuth(), authMW.RequireRole(identity.RoleAppAdmin))
	admin.GET("/users", adminHandler.ListUsers)
	admin.PATCH("/users/:id/role", adminHandler.UpdateUserRole)

	return r
}
