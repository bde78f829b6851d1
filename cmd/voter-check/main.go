package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/EmpoweredVote/ward-backend/internal/cache"
	"github.com/EmpoweredVote/ward-backend/internal/config"
	"github.com/EmpoweredVote/ward-backend/internal/db"
	"github.com/EmpoweredVote/ward-backend/internal/logging"
	"github.com/EmpoweredVote/ward-backend/internal/voters"
)

func main() {
	var (
		name = flag.String("name", "", "claimed voter name")
		epic = flag.String("epic", "", "claimed EPIC number (optional)")
	)
	flag.Parse()

	if *name == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New("warn")
	if err != nil {
		log.Fatal(err)
	}

	gdb, err := db.Connect(cfg.Database, logger)
	if err != nil {
		log.Fatalf("DB connection error: %v", err)
	}

	store := voters.NewGormStore(gdb)
	total, err := store.CountVoters(context.Background())
	if err != nil {
		log.Fatalf("Query error: %v", err)
	}
	fmt.Printf("Voters on the Ward %s roll: %d\n\n", cfg.Ward, total)

	// Bypass the result cache so the answer reflects the live roll.
	m := voters.NewMatcher(store, cache.Nop{}, cfg.Matching, cfg.Ward, logger)
	res, err := m.Verify(context.Background(), *name, *epic)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("verified:   %t\nmatch type: %s\nconfidence: %.3f\nmessage:    %s\n", res.Verified, res.MatchType, res.Confidence, res.Message)
	if v := res.MatchedVoter; v != nil {
		fmt.Printf("matched:    %s | %s | %s | house %s\n", v.EPICNumber, v.VoterName, v.FatherHusbandName, v.HouseNo)
	}
}
