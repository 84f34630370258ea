package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contacts-api/internal/avatar"
	"contacts-api/internal/cache"
	"contacts-api/internal/config"
	"contacts-api/internal/database"
	"contacts-api/internal/handler"
	"contacts-api/internal/mailer"
	"contacts-api/internal/middleware"
	"contacts-api/internal/repository"
	"contacts-api/internal/router"
	"contacts-api/internal/service"
)

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}
	slog.Info("database ready")

	// A cache that never comes up is not fatal: lookups degrade to the
	// store until redis becomes reachable.
	redisClient, err := cache.Connect(context.Background(), cfg.RedisURL, cfg.RedisRetries)
	if err != nil && redisClient == nil {
		db.Close()
		return nil, fmt.Errorf("invalid redis configuration: %w", err)
	}
	if err != nil {
		slog.Warn("redis unreachable, user lookups will hit the database", "error", err)
	} else {
		slog.Info("redis ready")
	}
	userCache := cache.NewUserCache(redisClient, cfg.CacheTTL)

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	contactRepo := repository.NewContactRepository(pool)

	tokenService, err := service.NewTokenService(cfg.JWTSecret, cfg.JWTAlgorithm)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	var sender mailer.Sender
	if cfg.MailDev {
		sender = mailer.DevSender{}
	} else {
		sender, err = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.MailHost,
			Port:     cfg.MailPort,
			Username: cfg.MailUsername,
			Password: cfg.MailPassword,
			From:     cfg.MailFrom,
			FromName: cfg.MailFromName,
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize mailer: %w", err)
		}
	}
	authMailer := mailer.New(sender)

	authService := service.NewAuthService(
		userRepo,
		userCache,
		tokenService,
		authMailer,
		avatar.NewGravatar(),
		cfg.JWTAccessTTL,
		cfg.JWTRefreshTTL,
		cfg.EmailTokenTTL,
		cfg.AppHost,
	)
	contactService := service.NewContactService(contactRepo)

	authMiddleware := middleware.NewAuthMiddleware(authService)
	subject := func(token string) string {
		claims, err := tokenService.Verify(token)
		if err != nil {
			return ""
		}
		return claims.Subject
	}

	appRouter := router.New(
		cfg,
		authMiddleware,
		subject,
		handler.NewHealthHandler(db),
		handler.NewAuthHandler(authService),
		handler.NewUserHandler(),
		handler.NewContactHandler(contactService),
	)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		db:     db,
		cleanupFuncs: []func(){
			func() {
				if redisClient != nil {
					_ = redisClient.Close()
				}
			},
			func() {
				db.Close()
			},
		},
	}, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	slog.Info("server stopped")
	return nil
}
