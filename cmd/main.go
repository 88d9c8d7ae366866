package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/linkauth/server/internal/api/http/router"
	httpserver "github.com/linkauth/server/internal/api/http/server"
	"github.com/linkauth/server/internal/config"
	"github.com/linkauth/server/internal/logger"
	"github.com/linkauth/server/internal/model"
	smtpnotifier "github.com/linkauth/server/internal/notifier/smtp"
	"github.com/linkauth/server/internal/repository/postgres"
	"github.com/linkauth/server/internal/server"
	"github.com/linkauth/server/internal/service"
	"github.com/linkauth/server/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	accountRepo := postgres.NewAccountRepository(db)
	sessionManager := token.NewJWT(cfg.Session.Secret)

	notifier, err := smtpnotifier.New(smtpnotifier.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		SiteName: cfg.SMTP.SiteName,
		Timeout:  cfg.SMTP.Timeout,
	}, logger)
	if err != nil {
		logger.Fatal("failed to create notifier", "error", err)
	}

	authService := service.NewAuth(accountRepo, notifier, sessionManager, model.SystemClock, cfg.Auth.BaseURL, logger)

	janitor := service.NewJanitor(accountRepo, cfg.Janitor.Interval, model.SystemClock, logger)
	go janitor.Run(ctx)

	httpServer := registerHTTPServer(authService, cfg.HTTP.EnableHTTPS, logger, fmt.Sprintf(":%s", cfg.HTTP.Port))

	var sl model.SecurityLayer

	if cfg.HTTP.EnableHTTPS {
		sl = server.NewTLSListener(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	} else {
		sl = server.NewPlainListener()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		err := s.Start(sl)
		if err != nil {
			logger.Error("failed to start server", "error", err)
		}
	}(httpServer)

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", httpServer.Address())
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}

func registerHTTPServer(
	authService *service.Auth,
	secureCookies bool,
	logger *logger.Logger,
	addr string,
) *httpserver.HTTPServer {
	r := router.New(authService, authService, secureCookies, logger)
	app := r.Register()

	return httpserver.NewHTTPServer(app, addr)
}
