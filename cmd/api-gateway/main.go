package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/peerpress/peerpress-api/api/swagger"
	"github.com/peerpress/peerpress-api/internal/handler"
	"github.com/peerpress/peerpress-api/internal/middleware"
	"github.com/peerpress/peerpress-api/internal/repository"
	"github.com/peerpress/peerpress-api/internal/service"
	"github.com/peerpress/peerpress-api/pkg/bus"
	"github.com/peerpress/peerpress-api/pkg/cache"
	"github.com/peerpress/peerpress-api/pkg/config"
	"github.com/peerpress/peerpress-api/pkg/database"
	"github.com/peerpress/peerpress-api/pkg/export"
	"github.com/peerpress/peerpress-api/pkg/logger"
	corsmiddleware "github.com/peerpress/peerpress-api/pkg/middleware/cors"
	reqidmiddleware "github.com/peerpress/peerpress-api/pkg/middleware/requestid"
)

// @title PeerPress API
// @version 0.1.0
// @description Paper event visibility and permission engine
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	// An incomplete visibility table is a deployment defect, not something to
	// discover on the first affected request.
	if err := service.ValidatePolicyTable(); err != nil {
		logr.Sugar().Fatalw("visibility policy table invalid", "error", err)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	cacheRepo := repository.NewCacheRepository(nil, logr)
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, feed caching disabled", "error", err)
	} else {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	defer cacheRepo.Close()

	var publisher *bus.Publisher
	if cfg.NATS.Enabled {
		publisher, err = bus.Connect(cfg.NATS)
		if err != nil {
			logr.Sugar().Warnw("nats unavailable, event fanout disabled", "error", err)
		} else {
			defer publisher.Close()
		}
	}

	eventRepo := repository.NewEventRepository(db)
	paperRepo := repository.NewPaperRepository(db)
	journalRepo := repository.NewJournalRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	userRepo := repository.NewUserRepository(db)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "peerpress-api",
	})
	metricsSvc := service.NewMetricsService()
	eventSvc := service.NewEventService(
		eventRepo, paperRepo, journalRepo, submissionRepo,
		cacheRepo, publisher, userRepo, metricsSvc,
		nil, logr,
		service.EventServiceConfig{
			PermissionModels: cfg.Journals.PermissionModels,
			FeedCacheTTL:     cfg.Feed.CacheTTL,
		},
	)

	var exporter *export.PDFExporter
	if cfg.Exports.Enabled {
		exporter = export.NewPDFExporter()
	}

	authHandler := handler.NewAuthHandler(authSvc)
	eventHandler := newEventHandler(eventSvc, exporter)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	papers := api.Group("/papers")
	papers.POST("/:paperId/events", middleware.JWT(authSvc), eventHandler.Create)
	papers.GET("/:paperId/timeline.pdf",
		middleware.OptionalJWT(authSvc),
		middleware.Audit(userRepo, "TIMELINE_EXPORT", "paper_timeline"),
		eventHandler.TimelinePDF)

	events := api.Group("/events")
	events.GET("/feed", middleware.OptionalJWT(authSvc), eventHandler.Feed)
	events.GET("/:id", middleware.OptionalJWT(authSvc), eventHandler.Get)
	events.PATCH("/:id", middleware.JWT(authSvc), eventHandler.Update)
	events.GET("/:id/editable", middleware.JWT(authSvc), eventHandler.Editable)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

// newEventHandler keeps the nil-exporter case out of the handler wiring.
func newEventHandler(svc *service.EventService, exporter *export.PDFExporter) *handler.EventHandler {
	if exporter == nil {
		return handler.NewEventHandler(svc, nil)
	}
	return handler.NewEventHandler(svc, exporter)
}
