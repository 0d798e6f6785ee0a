package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/yourusername/parajuriste-api/internal/config"
	pgRepo "github.com/yourusername/parajuriste-api/internal/repository/postgres"
	"github.com/yourusername/parajuriste-api/internal/service/progress"
	"github.com/yourusername/parajuriste-api/pkg/database"
	"github.com/yourusername/parajuriste-api/pkg/logger"
)

func main() {
	force := flag.Int("force", -1, "force golang-migrate to this version to clean a dirty state")
	recompute := flag.Bool("recompute", false, "recompute overall progress for every user")
	flag.Parse()

	if *force < 0 && !*recompute {
		flag.Usage()
		os.Exit(2)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg)
	defer logger.Sync()

	if *force >= 0 {
		if err := forceVersion(cfg, *force); err != nil {
			log.Fatalf("Failed to force version: %v", err)
		}
		fmt.Println("Success! Dirty state cleaned. You can now run the app normally.")
	}

	if *recompute {
		n, err := recomputeAll(cfg)
		if err != nil {
			log.Fatalf("Recompute failed: %v", err)
		}
		fmt.Printf("Recomputed overall progress for %d users\n", n)
	}
}

func forceVersion(cfg *config.Config, version int) error {
	db, err := sql.Open("postgres", cfg.Database.PostgresConnectionString())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return err
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+cfg.Database.MigrationsPath, "postgres", driver)
	if err != nil {
		return err
	}

	fmt.Printf("Forcing migration version to %d to clean dirty state...\n", version)
	return m.Force(version)
}

// recomputeAll прогоняет агрегатор по всем пользователям; ошибки по одному пользователю не прерывают цикл
func recomputeAll(cfg *config.Config) (int, error) {
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), false)
	if err != nil {
		return 0, err
	}

	userRepo := pgRepo.NewUserRepo(db)
	moduleRepo := pgRepo.NewModuleRepo(db)
	aggregator := progress.NewAggregator(moduleRepo, pgRepo.NewOverallProgressRepo(db),
		progress.NewQuizBasedRule(pgRepo.NewAttemptRepo(db)),
		progress.NewAudioBasedRule(pgRepo.NewModuleProgressRepo(db)),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	ids, err := userRepo.ListIDs(ctx)
	if err != nil {
		return 0, err
	}

	done := 0
	for _, id := range ids {
		user, err := userRepo.GetByID(ctx, id)
		if err != nil {
			logger.Log.Warn("skip user", zap.Uint("user_id", id), zap.Error(err))
			continue
		}
		if _, err := aggregator.Recompute(ctx, user); err != nil {
			logger.Log.Warn("recompute failed", zap.Uint("user_id", id), zap.Error(err))
			continue
		}
		done++
	}
	return done, nil
}
