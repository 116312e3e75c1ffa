package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/stemsi/scholarship-exam/internal/config"
	"github.com/stemsi/scholarship-exam/internal/database"
	"github.com/stemsi/scholarship-exam/internal/logger"
	"github.com/stemsi/scholarship-exam/internal/model"
	"github.com/stemsi/scholarship-exam/internal/repository"
)

func main() {
	var path string
	flag.StringVar(&path, "file", "seed/questions.json", "Path to the seed JSON file")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat).With().Str("component", "seed_questions").Logger()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to read seed file")
	}
	var seed model.SeedFile
	if err := json.Unmarshal(raw, &seed); err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to parse seed file")
	}

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	masterRepo := repository.NewMasterRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	for _, name := range seed.Colleges {
		if _, err := masterRepo.UpsertCollege(ctx, name); err != nil {
			log.Fatal().Err(err).Str("college", name).Msg("Failed to seed college")
		}
	}
	for _, name := range seed.Branches {
		if _, err := masterRepo.UpsertBranch(ctx, name); err != nil {
			log.Fatal().Err(err).Str("branch", name).Msg("Failed to seed branch")
		}
	}

	successCount := 0
	for i, sq := range seed.Questions {
		q, err := sq.ToQuestion()
		if err != nil {
			fmt.Printf("Skipping question #%d: %v\n", i+1, err)
			continue
		}
		if err := questionRepo.Create(ctx, q); err != nil {
			fmt.Printf("Error creating question #%d: %v\n", i+1, err)
			continue
		}
		successCount++
		if successCount%10 == 0 {
			fmt.Printf("Created %d questions...\n", successCount)
		}
	}

	fmt.Printf("\nSeed completed! %d colleges, %d branches, %d/%d questions.\n",
		len(seed.Colleges), len(seed.Branches), successCount, len(seed.Questions))
}
