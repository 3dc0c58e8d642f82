package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"inbox-autopilot-go/internal/actions"
	"inbox-autopilot-go/internal/classifier"
	"inbox-autopilot-go/internal/config"
	"inbox-autopilot-go/internal/database"
	"inbox-autopilot-go/internal/executor"
	"inbox-autopilot-go/internal/fetcher"
	"inbox-autopilot-go/internal/gmailapi"
	"inbox-autopilot-go/internal/handlers"
	"inbox-autopilot-go/internal/labels"
	"inbox-autopilot-go/internal/metrics"
	"inbox-autopilot-go/internal/replytracker"
	"inbox-autopilot-go/internal/repository"
	"inbox-autopilot-go/internal/scheduler"
	"inbox-autopilot-go/internal/server"
)

// Run initializes and starts the application
func Run() error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting Inbox Autopilot")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	dbConn, err := database.Init(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	repo := repository.New(dbConn)
	m := metrics.NewMetrics()

	ctx := context.Background()
	gmailService, err := gmailapi.NewService(ctx, &cfg.Gmail)
	if err != nil {
		return fmt.Errorf("failed to create Gmail service: %w", err)
	}

	user, err := repo.EnsureUser(ctx, cfg.Gmail.UserEmail)
	if err != nil {
		return fmt.Errorf("failed to ensure user: %w", err)
	}

	labelProvider := labels.NewGmailProvider(gmailService, cfg.Gmail.UserEmail)
	runner := actions.NewGmailRunner(gmailService, labelProvider, logrus.WithField("component", "actions"))
	selector := classifier.NewKeywordSelector(logrus.WithField("component", "classifier"))

	reconciler := replytracker.New(repo, labelProvider, selector, m, logrus.WithField("component", "reply-tracker"))
	coordinator := executor.New(repo, runner, labelProvider, reconciler, m, logrus.WithField("component", "executor"))

	var f fetcher.EmailFetcher
	if cfg.Gmail.UseIMAP {
		f, err = fetcher.NewIMAPFetcher(&cfg.Gmail)
		if err != nil {
			return fmt.Errorf("failed to create IMAP fetcher: %w", err)
		}
		logrus.Info("Using IMAP for email fetching")
	} else {
		f = fetcher.NewGmailAPIFetcher(gmailService, cfg.Gmail.UserEmail)
		logrus.Info("Using Gmail API for email fetching")
	}

	sched := scheduler.New(&cfg.Scheduler, f, repo, selector, coordinator, reconciler, m, user)

	h := handlers.New(dbConn, repo, sched, m, user)
	router := server.SetupRouter(h)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Stop(); err != nil {
		logrus.Errorf("Failed to stop scheduler: %v", err)
	}
	sched.Wait()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	if err := f.Close(); err != nil {
		logrus.Errorf("Failed to close fetcher: %v", err)
	}

	logrus.Info("Server stopped gracefully")
	return nil
}
