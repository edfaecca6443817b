package router

import (
	"net/http"
	"time"

	"adgen/config"
	"adgen/internal/handler"
	"adgen/internal/logging"
	"adgen/internal/metrics"
	"adgen/internal/middleware"
	"adgen/internal/repository"
	"adgen/internal/service"
	"adgen/internal/ws"
	"adgen/pkg/cloudinary"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Setup wires repositories, services and handlers. The generation service publishes to hub.
// cloud may be nil.
func Setup(cfg *config.Config, db *gorm.DB, gen service.Generator, cloud cloudinary.Client, hub *ws.AssetHub, logger *logrus.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.Middleware())
	limiter := middleware.NewKeyedLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	go limiter.RunSweeper(5*time.Minute, nil)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	assetRepo := repository.NewAssetRepository(db)
	refundRepo := repository.NewPendingRefundRepository(db)

	// Services
	authSvc := service.NewAuthService(cfg, userRepo)
	genSvc := service.NewGenerationService(userRepo, ledgerRepo, assetRepo, refundRepo, gen,
		cfg.Generation.Timeout, logging.Component(logger, "generation"))
	genSvc.SetNotifier(hub)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc, logging.Component(logger, "auth"))
	googleOAuthHandler := handler.NewGoogleOAuthHandler(cfg, authSvc, logging.Component(logger, "oauth"))
	generateHandler := handler.NewGenerateHandler(genSvc, cfg.Tokens, logging.Component(logger, "generate"))
	accountHandler := handler.NewAccountHandler(userRepo, ledgerRepo, assetRepo, logging.Component(logger, "account"))
	uploadHandler := handler.NewUploadHandler(cloud, userRepo, cfg.Cloudinary.Folder, logging.Component(logger, "upload"))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metrics.Handler())
	r.GET("/ws/assets", ws.UpgradeAssetWS(&cfg.JWT, hub, logging.Component(logger, "ws")))

	authMw := middleware.AuthRequired(&cfg.JWT)
	v1 := r.Group("/api/v1")
	{
		a := v1.Group("/auth")
		a.Use(middleware.RateLimit(limiter))
		a.POST("/register", authHandler.Register)
		a.POST("/login", authHandler.Login)
		a.POST("/refresh", authHandler.Refresh)
		a.GET("/google", googleOAuthHandler.Redirect)
		a.GET("/google/callback", googleOAuthHandler.Callback)
		a.POST("/google/token", googleOAuthHandler.Token)

		generate := v1.Group("/generate")
		generate.Use(authMw, middleware.UserRateLimit(limiter))
		generate.POST("/photo", generateHandler.Photo)
		generate.POST("/video", generateHandler.Video)

		me := v1.Group("/me")
		me.Use(authMw)
		me.GET("", accountHandler.Me)
		me.PATCH("/brand", accountHandler.UpdateBrand)
		me.POST("/brand/logo", middleware.UserRateLimit(limiter), uploadHandler.UploadBrandLogo)
		me.GET("/ledger", accountHandler.Ledger)
		me.GET("/assets/:id", accountHandler.Asset)
		me.GET("/dashboard", accountHandler.Dashboard)
	}
	return r
}
