// Package seeds loads a small sample roll for local development.
package seeds

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/EmpoweredVote/ward-backend/internal/voters"
)

//go:embed data/voters.json
var sampleRoll []byte

// Roller is the part of voters.Store the seeder writes through.
type Roller interface {
	UpsertVoters(ctx context.Context, batch []voters.Voter) error
}

// SampleVoters returns the embedded sample roll stamped with ward.
func SampleVoters(ward string) ([]voters.Voter, error) {
	var roll []voters.Voter
	if err := json.Unmarshal(sampleRoll, &roll); err != nil {
		return nil, fmt.Errorf("failed to parse voters.json: %w", err)
	}
	for i := range roll {
		roll[i].WardNumber = ward
	}
	return roll, nil
}

func SeedAll(ctx context.Context, store Roller, ward string) (int, error) {
	roll, err := SampleVoters(ward)
	if err != nil {
		return 0, err
	}
	if err := store.UpsertVoters(ctx, roll); err != nil {
		return 0, fmt.Errorf("seed voters: %w", err)
	}
	return len(roll), nil
}
