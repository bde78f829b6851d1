package voters

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/EmpoweredVote/ward-backend/internal/cache"
	"github.com/EmpoweredVote/ward-backend/internal/config"
	"github.com/EmpoweredVote/ward-backend/internal/textmatch"
)

var ErrNameRequired = errors.New("name is required for voter verification")

// MatchType says which path verified the voter.
type MatchType string

const (
	MatchEPIC MatchType = "epic"
	MatchName MatchType = "name"
	MatchNone MatchType = "none"
)

const msgUnavailable = "Unable to verify. Voter database unavailable."

// MatchedVoter is the public part of a roll entry returned on a match.
type MatchedVoter struct {
	EPICNumber        string `json:"epic_number"`
	VoterName         string `json:"voter_name"`
	FatherHusbandName string `json:"father_husband_name,omitempty"`
	HouseNo           string `json:"house_no,omitempty"`
}

// Result is the outcome of one verification. A failed match is a Result with
// Verified false, never an error.
type Result struct {
	Verified     bool          `json:"verified"`
	MatchType    MatchType     `json:"matchType"`
	Confidence   float64       `json:"confidence"`
	MatchedVoter *MatchedVoter `json:"matchedVoter,omitempty"`
	Message      string        `json:"message"`
	// AlreadyRegistered reports that the matched EPIC is bound to a portal
	// account. It is looked up on every call and never cached.
	AlreadyRegistered bool `json:"alreadyRegistered"`
	// Unavailable marks an empty or unreadable roll, as opposed to a
	// genuine no-match.
	Unavailable bool `json:"-"`

	// degraded is set when part of the roll could not be read, so the answer
	// may change once the store recovers.
	degraded bool
}

func (r Result) cacheable() bool { return !r.Unavailable && !r.degraded }

type Matcher struct {
	store Store
	cache cache.Cache
	cfg   config.MatchingConfig
	ward  string
	log   *zap.Logger
}

func NewMatcher(store Store, c cache.Cache, cfg config.MatchingConfig, ward string, log *zap.Logger) *Matcher {
	if c == nil {
		c = cache.Nop{}
	}
	return &Matcher{store: store, cache: c, cfg: cfg, ward: ward, log: log}
}

// Verify checks a claimed identity against the roll: an exact EPIC lookup
// first, then a fuzzy scan of every voter name.
func (m *Matcher) Verify(ctx context.Context, name, epic string) (Result, error) {
	if strings.TrimSpace(name) == "" {
		return Result{}, ErrNameRequired
	}

	key := cacheKey(name, epic)
	var res Result
	hit, err := m.cache.Get(ctx, key, &res)
	if err != nil {
		m.log.Warn("verification cache read failed", zap.Error(err))
		hit = false
	}

	if !hit {
		res, err = m.verify(ctx, name, epic)
		if err != nil {
			return Result{}, err
		}
		if res.cacheable() {
			if err := m.cache.Set(ctx, key, res); err != nil {
				m.log.Warn("verification cache write failed", zap.Error(err))
			}
		}
	}

	res.AlreadyRegistered = m.claimed(ctx, res)
	return res, nil
}

// claimed reports whether the matched roll entry already belongs to a portal
// account. Lookup failures are logged and treated as unclaimed.
func (m *Matcher) claimed(ctx context.Context, res Result) bool {
	if !res.Verified || res.MatchedVoter == nil {
		return false
	}
	ok, err := m.store.EPICClaimed(ctx, res.MatchedVoter.EPICNumber)
	if err != nil {
		m.log.Warn("epic claim lookup failed", zap.String("epic", res.MatchedVoter.EPICNumber), zap.Error(err))
		return false
	}
	return ok
}

func (m *Matcher) verify(ctx context.Context, name, epic string) (Result, error) {
	if normalized := textmatch.NormalizeEPIC(epic); normalized != "" {
		v, err := m.store.FindByEPIC(ctx, normalized)
		switch {
		case err == nil:
			return Result{
				Verified:     true,
				MatchType:    MatchEPIC,
				Confidence:   1,
				MatchedVoter: matched(v),
				Message:      fmt.Sprintf("Voter verified! EPIC number %s matched.", normalized),
			}, nil
		case ctx.Err() != nil:
			return Result{}, ctx.Err()
		case !errors.Is(err, ErrVoterNotFound):
			m.log.Warn("epic lookup failed", zap.String("epic", normalized), zap.Error(err))
			res, err := m.matchName(ctx, name)
			res.degraded = true
			return res, err
		}
	}

	return m.matchName(ctx, name)
}

func (m *Matcher) matchName(ctx context.Context, name string) (Result, error) {
	claimed := textmatch.Normalize(name)
	claimedParts := textmatch.NameParts(claimed)

	var (
		best      *Voter
		bestScore float64
		scanned   int
	)

	err := m.store.ScanCandidates(ctx, m.cfg.CandidateBatch, func(batch []Voter) error {
		for i := range batch {
			scanned++
			candidate := textmatch.Normalize(batch[i].VoterName)

			if score := textmatch.Similarity(claimed, candidate); score > bestScore {
				bestScore = score
				best = &batch[i]
			}

			if score := m.partScore(claimedParts, textmatch.NameParts(candidate)); score > bestScore && score >= m.cfg.PartFloor {
				bestScore = score
				best = &batch[i]
			}
		}
		// The batch slice is reused by the next batch.
		if best != nil {
			v := *best
			best = &v
		}
		return nil
	})
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}
	if err != nil || scanned == 0 {
		if err != nil {
			m.log.Error("voter roll scan failed", zap.Error(err))
		}
		return Result{
			MatchType:   MatchNone,
			Message:     msgUnavailable,
			Unavailable: true,
		}, nil
	}

	if best != nil && bestScore >= m.cfg.Accept {
		return Result{
			Verified:     true,
			MatchType:    MatchName,
			Confidence:   bestScore,
			MatchedVoter: matched(best),
			Message:      fmt.Sprintf("Voter verified! Name matched with %d%% confidence.", int(math.Round(bestScore*100))),
		}, nil
	}

	return Result{
		MatchType:  MatchNone,
		Confidence: bestScore,
		Message:    fmt.Sprintf("Verification failed. Your name/EPIC number was not found in Ward %s voter list.", m.ward),
	}, nil
}

// partScore is the fraction of claimed parts that closely match some part of
// the candidate name.
func (m *Matcher) partScore(claimed, candidate []string) float64 {
	if len(claimed) == 0 {
		return 0
	}
	found := 0
	for _, part := range claimed {
		for _, cp := range candidate {
			if textmatch.Similarity(part, cp) > m.cfg.PartSimilarity {
				found++
				break
			}
		}
	}
	return float64(found) / float64(len(claimed))
}

func matched(v *Voter) *MatchedVoter {
	return &MatchedVoter{
		EPICNumber:        v.EPICNumber,
		VoterName:         v.VoterName,
		FatherHusbandName: v.FatherHusbandName,
		HouseNo:           v.HouseNo,
	}
}

func cacheKey(name, epic string) string {
	sum := sha256.Sum256([]byte(textmatch.Normalize(name) + "\x00" + textmatch.NormalizeEPIC(epic)))
	return hex.EncodeToString(sum[:])
}
