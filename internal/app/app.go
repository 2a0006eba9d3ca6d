package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/account-service/internal/config"
	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/handler"
	"github.com/prperemyshlev/account-service/internal/repository"
	"github.com/prperemyshlev/account-service/internal/service"
	"github.com/prperemyshlev/account-service/internal/utils"
	"github.com/prperemyshlev/account-service/internal/ws"
	"github.com/prperemyshlev/account-service/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

func NewApp(infra Infrastructure, cfg *config.Config) *App {
	repos := repository.NewRepositories(infra.Postgres())
	logger := infra.Logger()

	blacklistCache := service.NewTokenBlacklistCache(infra.Redis())
	tracker := service.NewTokenTracker(repos.Token, blacklistCache, logger)

	codec := utils.NewTokenCodec(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry.Duration,
		cfg.JWT.RefreshTokenExpiry.Duration,
		utils.DefaultClaimMap(),
		tracker,
	)

	otpService := service.NewOtpService(
		repos.Otp,
		repos.User,
		infra.Producer(),
		cfg.OTP.Length,
		cfg.OTP.Expiry.Duration,
		cfg.Security.BCryptCost,
		logger,
	)

	hooks := []service.UserCreatedHook{
		service.ProfileCreationHook(repos.Profile),
		service.PreferenceCreationHook(repos.Preference),
		service.SignupOtpHook(otpService),
	}

	authService := service.NewAuthService(
		repos.User,
		codec,
		tracker,
		hooks,
		cfg.Security.BCryptCost,
		logger,
	)

	deliveryMetrics, err := observability.NewDeliveryMetrics("account-service")
	if err != nil {
		logger.Warn("delivery metrics disabled", zap.Error(err))
	}

	notifier := ws.NewNotifier(infra.Redis())
	channelHandlers := map[domain.ChannelKind]service.ChannelHandler{
		domain.ChannelEmail: service.NewEmailChannelHandler(repos.Notification, infra.Producer(), deliveryMetrics, logger),
		domain.ChannelSMS:   service.NewSMSChannelHandler(repos.Notification, infra.Producer(), deliveryMetrics, logger),
		domain.ChannelPush:  service.NewPushChannelHandler(repos.Notification, notifier, deliveryMetrics, logger),
	}

	notificationService := service.NewNotificationService(
		repos.Notification,
		repos.Preference,
		repos.User,
		channelHandlers,
		logger,
	)
	broadcastService := service.NewBroadcastService(
		repos.User,
		notificationService,
		cfg.Broadcast.ChunkSize,
		logger,
	)

	signer := utils.NewURLSigner(cfg.SignerSecret(), cfg.Signer.MaxAge.Duration)
	gateway := ws.NewGateway(infra.Redis(), logger)

	rateLimiter := service.NewRateLimiter(infra.Redis())
	healthChecker := NewHealthChecker(infra)

	authHandler := handler.NewAuthHandler(authService)
	otpHandler := handler.NewOtpHandler(otpService)
	notificationHandler := handler.NewNotificationHandler(notificationService, broadcastService)
	wsHandler := handler.NewWsHandler(gateway, signer)

	router := gin.Default()
	router.Use(otelgin.Middleware("account-service"))
	router.Use(handler.LoggerMiddleware(logger))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfg, authHandler, otpHandler, notificationHandler, wsHandler, authService, rateLimiter, healthChecker, infra.MetricsHandler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	otpHandler *handler.OtpHandler,
	notificationHandler *handler.NotificationHandler,
	wsHandler *handler.WsHandler,
	authService service.AuthService,
	rateLimiter *service.RateLimiter,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	rateLimit := handler.RateLimitMiddleware(rateLimiter, cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow.Duration, handler.IPBasedKey)
	authRequired := handler.AuthMiddleware(authService)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", rateLimit, authHandler.Register)
			auth.POST("/login", rateLimit, authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authRequired, authHandler.Logout)
			auth.POST("/logout-all", authRequired, authHandler.LogoutAll)
			auth.GET("/me", authRequired, authHandler.GetMe)
		}

		otp := api.Group("/otp")
		{
			otp.POST("/validate", rateLimit, otpHandler.Validate)
			otp.POST("/resend", rateLimit, otpHandler.Resend)
		}

		notifications := api.Group("/notifications", authRequired)
		{
			notifications.GET("", notificationHandler.List)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.GET("/settings", notificationHandler.Settings)
			notifications.PATCH("/settings", notificationHandler.UpdateSettings)
			notifications.POST("/mark-all-read", notificationHandler.MarkAllRead)
			notifications.POST("/:id/mark-read", notificationHandler.MarkRead)
			notifications.POST("/:id/retry", notificationHandler.Retry)
			notifications.POST("/broadcast", handler.RequireAdmin(), notificationHandler.Broadcast)
			notifications.GET("/ws-ticket", wsHandler.Ticket)
		}
	}

	router.GET("/ws/notifications", wsHandler.Stream)
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
