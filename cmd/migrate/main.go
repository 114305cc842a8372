package main

import (
	"os"

	"podcast-studio-be/internal/config"
	"podcast-studio-be/internal/model"
	"podcast-studio-be/internal/pkg/logger"
	"podcast-studio-be/pkg/database"
)

func main() {
	cfg := config.Load()
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	defer sysLogger.Sync()

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, true)
	if err != nil {
		sysLogger.Error("Migrate", "Unable to connect to database", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	if err := db.AutoMigrate(&model.PodcastSubmission{}); err != nil {
		sysLogger.Error("Migrate", "Migration failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	sysLogger.Info("Migrate", "Migration completed", map[string]interface{}{"tables": []string{"podcast_submissions"}})
}
