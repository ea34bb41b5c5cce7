package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/verdanthq/verdant-backend/api/routes"
	adminsvc "github.com/verdanthq/verdant-backend/internal/admin"
	authsvc "github.com/verdanthq/verdant-backend/internal/auth"
	blogsvc "github.com/verdanthq/verdant-backend/internal/blog"
	bookingsvc "github.com/verdanthq/verdant-backend/internal/bookings"
	cartsvc "github.com/verdanthq/verdant-backend/internal/cart"
	catalogsvc "github.com/verdanthq/verdant-backend/internal/catalog"
	notifsvc "github.com/verdanthq/verdant-backend/internal/notifications"
	usersvc "github.com/verdanthq/verdant-backend/internal/users"
	"github.com/verdanthq/verdant-backend/pkg/auth/session"
	"github.com/verdanthq/verdant-backend/pkg/config"
	"github.com/verdanthq/verdant-backend/pkg/db"
	"github.com/verdanthq/verdant-backend/pkg/logger"
	"github.com/verdanthq/verdant-backend/pkg/mail"
	"github.com/verdanthq/verdant-backend/pkg/metrics"
	"github.com/verdanthq/verdant-backend/pkg/migrate"
	"github.com/verdanthq/verdant-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	m := metrics.New(prometheus.DefaultRegisterer)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	var mailer mail.Mailer = mail.NoopMailer{}
	if cfg.Mail.SendgridAPIKey != "" {
		sendgridMailer, err := mail.NewSendgrid(cfg.Mail, m, logg)
		if err != nil {
			logg.Error(ctx, "failed to create mailer", err)
			os.Exit(1)
		}
		mailer = sendgridMailer
	} else {
		logg.Warn(ctx, "sendgrid api key not set, outbound mail disabled")
	}

	userRepo := usersvc.NewRepository(dbClient.DB())
	catalogRepo := catalogsvc.NewRepository(dbClient.DB())
	cartRepo := cartsvc.NewRepository(dbClient.DB())
	bookingRepo := bookingsvc.NewRepository(dbClient.DB())
	blogRepo := blogsvc.NewRepository(dbClient.DB())
	notificationRepo := notifsvc.NewRepository(dbClient.DB())

	catalogService, err := catalogsvc.NewService(catalogRepo)
	if err != nil {
		logg.Error(ctx, "failed to create catalog service", err)
		os.Exit(1)
	}

	cartService, err := cartsvc.NewService(cartRepo, dbClient, catalogService, bookingRepo, m, logg)
	if err != nil {
		logg.Error(ctx, "failed to create cart service", err)
		os.Exit(1)
	}

	bookingService, err := bookingsvc.NewService(bookingRepo)
	if err != nil {
		logg.Error(ctx, "failed to create bookings service", err)
		os.Exit(1)
	}

	userService, err := usersvc.NewService(userRepo)
	if err != nil {
		logg.Error(ctx, "failed to create users service", err)
		os.Exit(1)
	}

	blogService, err := blogsvc.NewService(blogRepo, blogRepo, logg)
	if err != nil {
		logg.Error(ctx, "failed to create blog service", err)
		os.Exit(1)
	}

	notificationService, err := notifsvc.NewService(notificationRepo)
	if err != nil {
		logg.Error(ctx, "failed to create notifications service", err)
		os.Exit(1)
	}

	verifier, err := authsvc.NewVerifier(redisClient, cfg.Verification.TokenTTL)
	if err != nil {
		logg.Error(ctx, "failed to create email verifier", err)
		os.Exit(1)
	}

	authService, err := authsvc.NewService(authsvc.ServiceParams{
		UserRepo:       userRepo,
		DB:             dbClient,
		SessionManager: sessionManager,
		CartReconciler: cartService,
		Verifier:       verifier,
		Mailer:         mailer,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	adminService, err := adminsvc.NewService(adminsvc.ServiceParams{
		DB:            dbClient,
		Users:         userRepo,
		Promoter:      userService,
		Posts:         blogRepo,
		Comments:      blogRepo,
		Bookings:      bookingRepo,
		Notifications: notificationRepo,
		Mailer:        mailer,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create admin service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Deps{
		Config:        cfg,
		Logger:        logg,
		Metrics:       m,
		DB:            dbClient,
		Redis:         redisClient,
		Sessions:      sessionManager,
		Auth:          authService,
		Catalog:       catalogService,
		Cart:          cartService,
		Bookings:      bookingService,
		Users:         userService,
		Blog:          blogService,
		Notifications: notificationService,
		Admin:         adminService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	startCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(startCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(startCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-shutdown:
		logg.Info(logg.WithField(startCtx, "signal", sig.String()), "shutting down api server")
		stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(stopCtx); err != nil {
			logg.Error(startCtx, "graceful shutdown failed", err)
		}
	}
}
