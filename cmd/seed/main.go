package main

import (
	"context"
	"fmt"
	"log"

	"github.com/EmpoweredVote/ward-backend/internal/config"
	"github.com/EmpoweredVote/ward-backend/internal/db"
	"github.com/EmpoweredVote/ward-backend/internal/logging"
	"github.com/EmpoweredVote/ward-backend/internal/seeds"
	"github.com/EmpoweredVote/ward-backend/internal/voters"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}

	gdb, err := db.Connect(cfg.Database, logger)
	if err != nil {
		log.Fatal(err)
	}
	if err := voters.Init(gdb); err != nil {
		log.Fatal(err)
	}

	n, err := seeds.SeedAll(context.Background(), voters.NewGormStore(gdb), cfg.Ward)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
	fmt.Printf("✓ Seeded %d sample voters into Ward %s\n", n, cfg.Ward)
}
