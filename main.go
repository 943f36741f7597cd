package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gofestat/internal"
	"gofestat/internal/api"
	"gofestat/internal/config"
	"gofestat/internal/container"
	"gofestat/internal/testkit"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	internal.DefaultLogger.SetLevel(internal.ParseLogLevel(appConfig.LogLevel))

	ctx := context.Background()

	appContainer, err := container.New(appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer appContainer.Shutdown(ctx)

	if err := appContainer.OpenDatabase(ctx); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := appContainer.LoadConfiguredArray(testkit.DefaultArrayConfig()); err != nil {
		log.Fatalf("Failed to load pulsar array: %v", err)
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	api.NewRunHandler(appContainer.Runs, appContainer.Search).
		WithGridLimit(appConfig.Engine.MaxGridPoints).
		RegisterRoutes(router)

	srv := &http.Server{
		Addr:    ":" + appConfig.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Starting Fe-statistic API on port %s (%d pulsars)", appConfig.Server.Port, len(appContainer.Pulsars))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
}
