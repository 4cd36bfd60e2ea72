package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"perception-study/internal/common/config"
	"perception-study/internal/common/middleware"
	"perception-study/internal/lasso"
	"perception-study/internal/study/handlers"
	"perception-study/internal/study/repository"
	"perception-study/internal/study/service"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// ============================================================
// Study Service
// ============================================================

func main() {
	cfg := config.Load()

	db, err := repository.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	repo := repository.New(db)
	if err := repo.Init(context.Background()); err != nil {
		log.Fatalf("init db: %v", err)
	}

	storage := service.NewFileStorage(cfg.DataDir)
	if err := storage.EnsureDir(storage.BackupDir()); err != nil {
		log.Fatalf("init data dir: %v", err)
	}

	relay := service.NewRelay(cfg.RelayURL, cfg.StudyType)
	if !relay.Enabled() {
		log.Printf("[RELAY] STUDY_RELAY_URL not set, submissions stay local")
	}

	study := service.NewStudy(
		repo,
		lasso.NewRegistry(lasso.DefaultOptions()),
		service.NewSessionManager(),
		service.NewSubmitter(relay, storage),
		cfg.ChartsPerCategory,
	)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Perception Study",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS(cfg.CORSOrigins))
	app.Use("/api", middleware.NoStore())

	// ============================================================
	// Routes
	// ============================================================

	handlers.NewHealthHandler(repo).Routes(app)
	handlers.NewStudyHandler(study, cfg.SessionCookie).Routes(app)

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting Perception Study on %s (env: %s, data: %s)", addr, cfg.Environment, cfg.DataDir)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
