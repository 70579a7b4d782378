package main

import (
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/simresglp/simulator/internal/api"
	"github.com/simresglp/simulator/internal/config"
	"github.com/simresglp/simulator/internal/database"
	"github.com/simresglp/simulator/internal/montecarlo"
)

func main() {
	defaults := config.FromEnv()
	var (
		dbPath  = flag.String("db", defaults.DBPath, "Path to SQLite database file")
		port    = flag.String("port", defaults.Port, "Port to run API server on")
		origins = flag.String("cors", strings.Join(defaults.CORSOrigins, ","), "Comma-separated list of allowed CORS origins")
		debug   = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *debug {
		log.SetLevel(logrus.DebugLevel)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	settings := config.Settings{
		DBPath:      *dbPath,
		Port:        *port,
		CORSOrigins: config.SplitOrigins(*origins),
	}

	// Ensure database directory exists
	if dir := filepath.Dir(settings.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Failed to create database directory: %v", err)
		}
	}

	log.Infof("Connecting to database at %s", settings.DBPath)
	db, err := database.NewDatabase(settings.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)
	executor := montecarlo.NewExecutor(repo, log)

	// Experiments left running by a previous process can never finish.
	if n, err := executor.RecoverInterrupted(); err != nil {
		log.Fatalf("Failed to recover interrupted experiments: %v", err)
	} else if n > 0 {
		log.Warnf("Marked %d interrupted experiment(s) as failed", n)
	}

	server := api.NewServer(repo, executor, settings, log)
	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
