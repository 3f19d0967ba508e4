package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/ManuelReschke/ChurchDesk/internal/pkg/cache"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/database"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/env"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/identity"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/invitation"
	applog "github.com/ManuelReschke/ChurchDesk/internal/pkg/logger"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/mail"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/router"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, sweeper := NewApplication(ctx)
	log := applog.L()
	defer func() { _ = log.Sync() }()

	go sweeper.Run(ctx)
	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("shutdown failed", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
	log.Info("listening", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func NewApplication(ctx context.Context) (*fiber.App, *invitation.Sweeper) {
	env.SetupEnvFile()
	log := applog.Setup()
	database.SetupDatabase()
	rdb := cache.SetupCache(ctx)

	secret := env.GetEnv("JWT_SECRET", "")
	resolver, err := identity.NewResolver(secret, env.GetDuration("TOKEN_TTL", 24*time.Hour))
	if err != nil {
		log.Fatal("invalid token configuration", zap.Error(err))
	}

	session.NewSessionStore(rdb)

	notifier := mail.NewInvitationNotifier(
		mail.NewSMTPMailer(mail.ConfigFromEnv()),
		env.GetEnv("APP_BASE_URL", "http://localhost:4000"),
	)
	deps := router.NewDependencies(database.GetDB(), resolver, rdb, notifier, log)

	// init fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: 1 << 20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	openAPIFile := env.GetEnv("OPENAPI_FILE", "public/docs/v1/openapi.yml")
	if _, err := os.Stat(openAPIFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: openAPIFile,
			Path:     "v1",
			Title:    "ChurchDesk API",
		}))
	} else {
		log.Warn("openapi document not found, api docs disabled", zap.String("file", openAPIFile))
	}

	// ROUTER
	router.InstallRouter(app, deps)

	sweeper := invitation.NewSweeper(
		deps.Repos.Invitation,
		env.GetDuration("INVITATION_SWEEP_INTERVAL", time.Hour),
		log.Named("sweeper"),
	)

	return app, sweeper
}
