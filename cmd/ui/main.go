package main

import (
	"context"
	"log"

	"gofestat/internal/config"
	"gofestat/internal/container"
	"gofestat/ui"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if appConfig.Database.URL == "" {
		log.Fatal("DATABASE_URL is required for the report viewer")
	}

	ctx := context.Background()
	c, err := container.New(appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer c.Shutdown(ctx)

	if err := c.OpenDatabase(ctx); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	viewer, err := ui.NewApp(ui.Config{Port: appConfig.Server.UIPort}, c.Runs)
	if err != nil {
		log.Fatalf("Failed to create UI: %v", err)
	}
	log.Fatal(viewer.Start())
}
