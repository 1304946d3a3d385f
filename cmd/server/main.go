// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/brawlrec-backend/internal/app"
	"github.com/javajoker/brawlrec-backend/internal/config"
	"github.com/javajoker/brawlrec-backend/internal/database"
	"github.com/javajoker/brawlrec-backend/internal/router"
	"github.com/javajoker/brawlrec-backend/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal("Failed to load configuration: ", err)
	}

	if err := utils.ConfigureLogger(cfg.Log.Level, cfg.Log.Format); err != nil {
		logrus.Fatal("Failed to configure logger: ", err)
	}

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.Fatal("Failed to initialize database: ", err)
	}
	defer database.Close(db)

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		logrus.Fatal("Failed to run migrations: ", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		logrus.Fatal("Failed to get underlying sql.DB: ", err)
	}

	// Background runs live until shutdown
	runCtx, cancelRuns := context.WithCancel(context.Background())
	defer cancelRuns()

	svc, err := app.Build(runCtx, cfg, db)
	if err != nil {
		logrus.Fatal("Failed to build services: ", err)
	}
	defer svc.Close()

	// Initialize router
	r := router.Initialize(cfg, sqlDB, svc.Scrape)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logrus.Infof("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal("Failed to start server: ", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	// Stop any in-flight scrape and wait for it to unwind
	cancelRuns()
	svc.Scrape.Wait()

	logrus.Info("Server exited")
}
