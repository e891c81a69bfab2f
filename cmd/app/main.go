package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"PodcastStudio-admin/internal/app"
	"PodcastStudio-admin/internal/config"
	"PodcastStudio-admin/internal/scheduler"
	"PodcastStudio-admin/internal/web"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("WARN: could not load .env: %v", err)
	}

	cfg, err := config.Load("./configs", "config")
	if err != nil {
		log.Fatalf("ERROR: loading configuration: %v", err)
	}
	log.Println("INFO: application configuration loaded.")

	ctx := context.Background()
	application, err := app.New(ctx, cfg, app.Options{Migrate: true})
	if err != nil {
		log.Fatalf("ERROR: initialising application: %v", err)
	}
	defer application.Close()

	if cfg.Scheduler.Enabled {
		log.Println("INFO: scheduler enabled in configuration, initialising...")
		var sweeper scheduler.PendingModerator
		if cfg.Scheduler.ModerationCronSpec != "" {
			sweeper = application.Moderation
		}
		appScheduler, err := scheduler.NewScheduler(cfg.Scheduler, application.Schedule, sweeper)
		if err != nil {
			log.Fatalf("ERROR: initialising scheduler: %v", err)
		}
		appScheduler.Start()
		defer appScheduler.Stop()
	} else {
		log.Println("INFO: scheduler disabled in configuration.")
	}

	router := web.SetupRouter(cfg.Server, web.Dependencies{
		Pipeline:  application.Pipeline,
		Store:     application.Store,
		Moderator: application.Moderation,
		Planner:   application.Schedule,
		Media:     application.Media,
	})
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("INFO: HTTP server listening on %s\n", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ERROR: HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("INFO: shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: HTTP server shutdown: %v", err)
	}
	log.Println("INFO: HTTP server stopped, waiting for background pipeline work...")
	router.Triggers.Wait()
	log.Println("INFO: application shut down.")
}
