package seeds

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmpoweredVote/ward-backend/internal/textmatch"
	"github.com/EmpoweredVote/ward-backend/internal/voters"
)

type recorder struct{ got []voters.Voter }

func (r *recorder) UpsertVoters(ctx context.Context, batch []voters.Voter) error {
	r.got = append(r.got, batch...)
	return nil
}

func TestSeedAll(t *testing.T) {
	rec := &recorder{}
	n, err := SeedAll(context.Background(), rec, "26")
	require.NoError(t, err)
	require.Len(t, rec.got, n)

	for _, v := range rec.got {
		assert.Equal(t, "26", v.WardNumber)
		// The roll stores EPICs in normalized form.
		assert.Equal(t, textmatch.NormalizeEPIC(v.EPICNumber), v.EPICNumber)
		assert.NotEmpty(t, v.VoterName)
	}
}
