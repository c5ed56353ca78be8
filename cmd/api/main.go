package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/coder-ph/m-fua-services/internal/admin"
	"github.com/coder-ph/m-fua-services/internal/app"
	"github.com/coder-ph/m-fua-services/internal/apperr"
	"github.com/coder-ph/m-fua-services/internal/auth"
	"github.com/coder-ph/m-fua-services/internal/category"
	"github.com/coder-ph/m-fua-services/internal/config"
	"github.com/coder-ph/m-fua-services/internal/db"
	"github.com/coder-ph/m-fua-services/internal/logger"
	appmw "github.com/coder-ph/m-fua-services/internal/middleware"
	market "github.com/coder-ph/m-fua-services/internal/marketplace"
	"github.com/coder-ph/m-fua-services/internal/notify"
	"github.com/coder-ph/m-fua-services/internal/ratings"
	"github.com/coder-ph/m-fua-services/internal/token"
	"github.com/coder-ph/m-fua-services/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.Environment)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.Init(ctx, cfg.DatabaseURL); err != nil {
		log.Fatal("database init failed", zap.Error(err))
	}
	defer db.Close()

	token.Configure(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, cfg.ResetTokenTTL)

	notify.Init(cfg)
	defer notify.Close()

	sweeper := app.NewSweeper(cfg.SweepInterval)
	sweeper.Start()
	defer sweeper.Stop()

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler
	e.Validator = apperr.NewValidator()
	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(echomw.CORS())

	// Health
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		pingCtx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := db.Conn.Ping(pingCtx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "database unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})

	api := e.Group("/api")

	// Auth, rate-limited per IP
	authGroup := api.Group("/auth")
	authGroup.Use(echomw.RateLimiter(echomw.NewRateLimiterMemoryStore(10)))
	authGroup.POST("/register", auth.Register)
	authGroup.POST("/login", auth.Login)
	authGroup.POST("/refresh", auth.Refresh)
	authGroup.POST("/forgot-password", auth.ForgotPassword)
	authGroup.POST("/reset-password", auth.ResetPassword)
	authGroup.GET("/me", auth.Me, appmw.JWTMiddleware)
	authGroup.PUT("/me", user.UpdateProfile, appmw.JWTMiddleware)
	authGroup.POST("/change-password", auth.ChangePassword, appmw.JWTMiddleware)

	// Public surfaces
	api.GET("/categories", category.List)
	api.GET("/categories/:id", category.Get)
	api.GET("/categories/:id/subcategories", category.Subcategories)
	api.GET("/users/:id/profile", user.GetPublicProfile)
	api.GET("/ratings/provider/:id", ratings.GetProviderRatings)

	// Authenticated surfaces
	g := api.Group("", appmw.JWTMiddleware)

	g.POST("/services", market.CreateService, appmw.RequireRoles("client"))
	g.GET("/services", market.ListServices)
	g.GET("/services/:id", market.GetService)
	g.PUT("/services/:id", market.UpdateService)
	g.POST("/services/:id/assign", market.AssignService, appmw.RequireRoles("provider"))
	g.PUT("/services/:id/status", market.UpdateStatus)
	g.GET("/services/:id/messages", market.GetMessages)
	g.POST("/services/:id/messages", market.SendMessage)
	g.GET("/services/:id/offers", market.ListOffers)
	g.POST("/services/:id/offers", market.CreateOffer, appmw.RequireRoles("provider"))
	g.POST("/services/:id/offers/:offerID/accept", market.AcceptOffer)
	g.GET("/services/:id/images", market.GetImages)
	g.POST("/services/:id/images", market.AddImage)
	g.DELETE("/services/:id/images/:imageID", market.DeleteImage)

	g.POST("/ratings", ratings.Create, appmw.RequireRoles("client"))
	g.GET("/ratings/:id", ratings.Get)
	g.PUT("/ratings/:id", ratings.Update)
	g.DELETE("/ratings/:id", ratings.Delete)
	g.POST("/ratings/:id/response", ratings.Respond, appmw.RequireRoles("provider"))
	g.PUT("/ratings/:id/response", ratings.UpdateResponse, appmw.RequireRoles("provider"))
	g.DELETE("/ratings/:id/response", ratings.DeleteResponse, appmw.RequireRoles("provider"))
	g.POST("/ratings/:id/report", ratings.Report)

	g.GET("/notifications", notify.List)
	g.GET("/notifications/unread-count", notify.UnreadCount)
	g.GET("/notifications/:id", notify.Get)
	g.PUT("/notifications/:id", notify.Update)
	g.POST("/notifications/mark-all-read", notify.MarkAllRead)
	g.GET("/notifications/preferences", notify.GetPreferences)
	g.PUT("/notifications/preferences", notify.UpdatePreferences)
	g.POST("/notifications/push/subscribe", notify.PushSubscribe)
	g.POST("/notifications/push/unsubscribe", notify.PushUnsubscribe)

	// Admin
	adminGroup := api.Group("/admin", appmw.JWTMiddleware, appmw.AdminGuard)
	adminGroup.GET("/stats", admin.Stats)
	adminGroup.GET("/users", admin.ListUsers)
	adminGroup.POST("/users/:id/suspend", admin.SuspendUser)
	adminGroup.POST("/users/:id/activate", admin.ActivateUser)
	adminGroup.POST("/services/:id/force-status", market.ForceStatus)
	adminGroup.POST("/categories", category.Create)
	adminGroup.POST("/categories/:id/subcategories", category.CreateSubcategory)
	adminGroup.PUT("/categories/:id", category.Update)
	adminGroup.DELETE("/categories/:id", category.Delete)

	// Serve until a shutdown signal arrives
	go func() {
		if err := e.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()
	log.Info("api listening", zap.String("addr", cfg.HTTPAddr))

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
}
