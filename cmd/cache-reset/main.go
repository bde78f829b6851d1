package main

import (
	"context"
	"fmt"
	"log"

	"github.com/EmpoweredVote/ward-backend/internal/cache"
	"github.com/EmpoweredVote/ward-backend/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.Redis.URL == "" {
		log.Fatal("REDIS_URL not set")
	}

	rc, err := cache.NewRedis(context.Background(), cfg.Redis.URL, cfg.Redis.Prefix, cfg.Redis.TTL)
	if err != nil {
		log.Fatalf("Redis connection error: %v", err)
	}
	defer rc.Close()

	gen, err := rc.Bump(context.Background())
	if err != nil {
		log.Fatalf("Error bumping generation: %v", err)
	}

	fmt.Printf("✓ Verification cache generation is now %d\n", gen)
	fmt.Printf("Cached results from earlier generations expire within %s.\n", cfg.Redis.TTL)
}
