package main

import (
	"context"
	"os"

	"github.com/AyushChatto/mastercal-sync/internal/app"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func init() {
	if err := godotenv.Load(); err == nil {
		log.Debug("loaded environment from .env")
	}
	level := os.Getenv("LOG_LEVEL")
	if level != "" {
		logrusLevel, err := log.ParseLevel(level)
		if err != nil {
			log.Fatal(err)
		}
		log.SetLevel(logrusLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

func main() {
	ctx := context.Background()
	application, err := app.NewApplication(ctx)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}
	if err := application.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
