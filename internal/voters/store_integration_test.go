package voters

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/EmpoweredVote/ward-backend/internal/config"
	"github.com/EmpoweredVote/ward-backend/internal/db"
)

// integrationDB is nil when no database is configured.
var integrationDB *gorm.DB

func TestMain(m *testing.M) {
	_ = godotenv.Load("../../.env.local")

	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg := config.Default().Database
		cfg.URL = url
		gdb, err := db.Connect(cfg, zap.NewNop())
		if err != nil {
			fmt.Fprintln(os.Stderr, "integration database unavailable:", err)
			os.Exit(1)
		}
		if err := Init(gdb); err != nil {
			fmt.Fprintln(os.Stderr, "migrate roll tables:", err)
			os.Exit(1)
		}
		integrationDB = gdb
	}

	os.Exit(m.Run())
}

func requireDB(t *testing.T) *GormStore {
	t.Helper()
	if integrationDB == nil {
		t.Skip("DATABASE_URL not set")
	}
	return NewGormStore(integrationDB)
}

// testEPICs returns unique EPIC numbers and removes them when the test ends.
func testEPICs(t *testing.T, n int) []string {
	t.Helper()
	base := int(uuid.New().ID() % 1_000_000)
	epics := make([]string, n)
	for i := range epics {
		epics[i] = fmt.Sprintf("TST%07d", base*10+i)
	}
	t.Cleanup(func() {
		integrationDB.Exec("DELETE FROM roll.voter_list WHERE epic_number IN ?", epics)
	})
	return epics
}

func TestGormStoreUpsertIsIdempotent(t *testing.T) {
	s := requireDB(t)
	ctx := context.Background()
	epics := testEPICs(t, 3)

	batch := []Voter{
		{EPICNumber: epics[0], VoterName: "Ramesh Kumar Shinde", WardNumber: "26"},
		{EPICNumber: epics[1], VoterName: "Sunita Patil", WardNumber: "26"},
	}
	before, err := s.CountVoters(ctx)
	require.NoError(t, err)

	require.NoError(t, s.UpsertVoters(ctx, batch))
	batch[1].VoterName = "Sunita Anil Patil"
	require.NoError(t, s.UpsertVoters(ctx, batch))

	after, err := s.CountVoters(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+2, after)

	v, err := s.FindByEPIC(ctx, epics[1])
	require.NoError(t, err)
	assert.Equal(t, "Sunita Anil Patil", v.VoterName)

	_, err = s.FindByEPIC(ctx, epics[2])
	assert.ErrorIs(t, err, ErrVoterNotFound)

	existing, err := s.ExistingEPICs(ctx, epics)
	require.NoError(t, err)
	assert.Len(t, existing, 2)
	assert.NotContains(t, existing, epics[2])
}

func TestGormStoreScanAndSearch(t *testing.T) {
	s := requireDB(t)
	ctx := context.Background()
	epics := testEPICs(t, 2)

	require.NoError(t, s.UpsertVoters(ctx, []Voter{
		{EPICNumber: epics[0], VoterName: "Prakash Jadhav 100%", WardNumber: "26"},
		{EPICNumber: epics[1], VoterName: "Prakash Jadhav", WardNumber: "26"},
	}))

	seen := map[string]bool{}
	require.NoError(t, s.ScanCandidates(ctx, 1, func(batch []Voter) error {
		for _, v := range batch {
			seen[v.EPICNumber] = true
		}
		return nil
	}))
	assert.True(t, seen[epics[0]])
	assert.True(t, seen[epics[1]])

	found, err := s.SearchVoters(ctx, "100%", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, epics[0], found[0].EPICNumber)

	found, err = s.SearchVoters(ctx, epics[1], 10)
	require.NoError(t, err)
	require.NotEmpty(t, found)
}

func TestGormStoreImports(t *testing.T) {
	s := requireDB(t)
	ctx := context.Background()

	run := &ImportRun{ID: uuid.New(), AdminID: "test", Source: "test.pdf", Status: StatusSucceeded}
	require.NoError(t, s.RecordImport(ctx, run))
	t.Cleanup(func() { integrationDB.Delete(&ImportRun{}, "id = ?", run.ID) })

	runs, err := s.ListImports(ctx, 5)
	require.NoError(t, err)
	require.NotEmpty(t, runs)
	assert.Equal(t, run.ID, runs[0].ID)
}
