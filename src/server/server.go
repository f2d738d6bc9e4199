package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	ai "imaginarium/src/ai"
	app "imaginarium/src/app"
	cfg "imaginarium/src/configuration"
	db "imaginarium/src/repository"
)

// Services are the application parts the router serves.
type Services struct {
	Store      db.KeyValueStore
	Gate       *app.AuthGate
	Workspaces *app.Workspaces
	S3Configs  *app.S3ConfigStore
	Uploader   *app.Uploader
	Themes     *app.ThemeStore
}

// NewServices builds every application part from the configuration. It is the only
// place where identity, storage and model clients are created.
func NewServices(ctx context.Context, config *cfg.Properties, logger zerolog.Logger) (*Services, error) {
	store, err := db.NewKeyValueStore(config)
	if err != nil {
		return nil, err
	}
	if err := store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("store not respond: %w", err)
	}

	aiClient, err := ai.NewGeminiClient(ctx, config.AI, logger)
	if err != nil {
		return nil, err
	}

	users := db.NewUserRepository(store)
	tokens := db.NewTokenRepository(store)
	local := app.NewLocalIdentityProvider(users, tokens, app.NewLogMailer(logger), config.Auth)

	var oauth app.OAuthProvider
	if config.OAuthEnabled() {
		provider, err := app.NewOIDCProvider(ctx, config.Auth)
		if err != nil {
			logger.Error().Err(err).Str("issuer", config.Auth.Host).Msg("oauth sign-in disabled")
		} else {
			oauth = provider
		}
	}

	studio := app.NewStudio(aiClient, aiClient, logger)
	return &Services{
		Store:      store,
		Gate:       app.NewAuthGate(local, oauth, users, tokens, config.Auth.SessionTTL, logger),
		Workspaces: app.NewWorkspaces(studio, app.NewGalleryStore(store, logger), config.Gallery.MaxStoredImages, logger),
		S3Configs:  app.NewS3ConfigStore(store, logger),
		Uploader:   app.NewUploader(nil, logger),
		Themes:     app.NewThemeStore(store),
	}, nil
}

// NewRouter registers every route on a new gin engine.
func NewRouter(ctx context.Context, config *cfg.Properties, services *Services, logger zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger.With().Str("component", "http").Logger()), metricsMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     config.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "Cache-Control", "User-Agent", "Referrer", "Host"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	if config.Server.Pprof {
		pprof.Register(router)
	}

	authHandler := NewAuthHandler(config, services.Gate, services.Store, logger)
	galleryHandler := NewGalleryHandler(services.Workspaces, config.AI.Timeout, logger)
	s3Handler := NewS3Handler(services.S3Configs, services.Uploader, services.Workspaces, logger)
	themeHandler := NewThemeHandler(services.Themes)

	// Register Routes
	router.GET("/health", authHandler.GetHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := router.Group("/auth")
	auth.POST("/signup", authHandler.SignUp)
	auth.POST("/signin", authHandler.SignIn)
	auth.GET("/verify", authHandler.VerifyEmail)
	auth.POST("/password-reset", authHandler.PasswordReset)
	auth.POST("/password-reset/confirm", authHandler.ConfirmPasswordReset)
	auth.GET("/oauth/login", authHandler.Login)
	auth.GET("/oauth/callback", authHandler.Callback)
	auth.POST("/signout", authHandler.Logout)
	router.GET("/account", authHandler.Account)

	protected := router.Group("/", requireUser(services.Gate, config.Auth.SessionCookieName, logger))
	limited := rateLimiter(ctx, config.RateLimit.RPS, config.RateLimit.Burst)

	gallery := protected.Group("/gallery")
	gallery.GET("", galleryHandler.GetGallery)
	gallery.PUT("/prompt", galleryHandler.SetPrompt)
	gallery.POST("/generate", limited, galleryHandler.Generate)
	gallery.POST("/refine-prompt", limited, galleryHandler.RefinePrompt)
	gallery.POST("/suggestions/select", galleryHandler.SelectSuggestion)
	gallery.DELETE("/refine", galleryHandler.CancelRefinement)
	gallery.GET("/images/:id", galleryHandler.GetImage)
	gallery.PATCH("/images/:id", galleryHandler.RenameImage)
	gallery.DELETE("/images/:id", galleryHandler.DeleteImage)
	gallery.POST("/images/:id/refine", galleryHandler.StartRefinement)
	gallery.GET("/images/:id/download", galleryHandler.DownloadImage)
	gallery.POST("/images/:id/upload", limited, s3Handler.UploadImage)

	settings := protected.Group("/settings")
	settings.GET("/s3", s3Handler.GetConfig)
	settings.PUT("/s3", s3Handler.PutConfig)
	settings.DELETE("/s3", s3Handler.DeleteConfig)
	settings.GET("/theme", themeHandler.GetTheme)
	settings.PUT("/theme", themeHandler.PutTheme)

	router.NoRoute(func(ctx *gin.Context) { ctx.JSON(http.StatusNotFound, gin.H{}) })
	return router
}

// RunServer serves until SIGINT or SIGTERM.
func RunServer(config *cfg.Properties) {
	logger := cfg.NewLogger(config)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if logger.GetLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	services, err := NewServices(ctx, config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("can not start")
	}
	defer services.Store.Close()

	go sweepWorkspaces(ctx, services.Workspaces, config.Auth.SessionTTL)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", config.Server.Port),
		Handler:           NewRouter(ctx, config, services, logger),
		ReadHeaderTimeout: config.Server.ReadTimeout,
	}
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}

// sweepWorkspaces drops cached workspaces idle for longer than a session lives.
func sweepWorkspaces(ctx context.Context, workspaces *app.Workspaces, idle time.Duration) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			workspaces.Sweep(idle)
		}
	}
}
