package voters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/EmpoweredVote/ward-backend/internal/pdftext"
	"github.com/EmpoweredVote/ward-backend/internal/utils"
)

// memStore is an in-memory Store. ScanCandidates reuses one batch slice the
// way gorm's FindInBatches does.
type memStore struct {
	mu      sync.Mutex
	rows    map[string]Voter
	imports []ImportRun

	upsertErr func(batch []Voter) error
	scanErr   error
	findCalls int
	// findErrs are returned by successive FindByEPIC calls before the
	// store answers normally.
	findErrs []error
	claimed  map[string]bool
	claimErr error
}

func newMemStore(voters ...Voter) *memStore {
	s := &memStore{rows: map[string]Voter{}}
	for _, v := range voters {
		s.rows[v.EPICNumber] = v
	}
	return s
}

func (s *memStore) FindByEPIC(ctx context.Context, epic string) (*Voter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	if len(s.findErrs) > 0 {
		err := s.findErrs[0]
		s.findErrs = s.findErrs[1:]
		return nil, err
	}
	v, ok := s.rows[epic]
	if !ok {
		return nil, ErrVoterNotFound
	}
	return &v, nil
}

func (s *memStore) ScanCandidates(ctx context.Context, batchSize int, fn func([]Voter) error) error {
	if s.scanErr != nil {
		return s.scanErr
	}
	s.mu.Lock()
	keys := make([]string, 0, len(s.rows))
	for k := range s.rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s.mu.Unlock()

	batch := make([]Voter, 0, batchSize)
	for i := 0; i < len(keys); i += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch = batch[:0]
		s.mu.Lock()
		for _, k := range keys[i:min(i+batchSize, len(keys))] {
			batch = append(batch, s.rows[k])
		}
		s.mu.Unlock()
		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}

func (s *memStore) CountVoters(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.rows)), nil
}

func (s *memStore) UpsertVoters(ctx context.Context, batch []Voter) error {
	if s.upsertErr != nil {
		if err := s.upsertErr(batch); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range batch {
		s.rows[v.EPICNumber] = v
	}
	return nil
}

func (s *memStore) ExistingEPICs(ctx context.Context, epics []string) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := map[string]struct{}{}
	for _, e := range epics {
		if _, ok := s.rows[e]; ok {
			found[e] = struct{}{}
		}
	}
	return found, nil
}

func (s *memStore) SearchVoters(ctx context.Context, query string, limit int) ([]Voter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Voter
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return out, nil
	}
	for _, v := range s.rows {
		if strings.Contains(strings.ToLower(v.VoterName), q) || strings.HasPrefix(v.EPICNumber, strings.ToUpper(q)) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VoterName < out[j].VoterName })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) RecordImport(ctx context.Context, run *ImportRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imports = append(s.imports, *run)
	return nil
}

func (s *memStore) ListImports(ctx context.Context, limit int) ([]ImportRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ImportRun, 0, len(s.imports))
	for i := len(s.imports) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.imports[i])
	}
	return out, nil
}

func (s *memStore) EPICClaimed(ctx context.Context, epic string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claimed[epic], s.claimErr
}

type fakeExtractor struct {
	doc pdftext.Document
	err error
}

func (f fakeExtractor) Extract(ctx context.Context, data []byte) (pdftext.Document, error) {
	return f.doc, f.err
}

// memCache mimics the generation-keyed Redis cache.
type memCache struct {
	mu   sync.Mutex
	gen  int64
	data map[string][]byte
	sets int
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) key(k string) string { return fmt.Sprintf("%d:%s", c.gen, k) }

func (c *memCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[c.key(key)]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *memCache) Set(ctx context.Context, key string, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.sets++
	c.data[c.key(key)] = raw
	return nil
}

func (c *memCache) Bump(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	return c.gen, nil
}

type fakeAdmins map[string]utils.UserData

func (f fakeAdmins) FindUserByID(ctx context.Context, id string) (utils.UserData, error) {
	u, ok := f[id]
	if !ok {
		return utils.UserData{}, errors.New("record not found")
	}
	return u, nil
}

// rollText renders n voter cards with EPICs AAA0000001.. in roll layout.
func rollText(n int) string {
	var b strings.Builder
	b.WriteString("मतदार यादी\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "AAA%07d\nName: Voter Number %d\nAge: %d Gender: Male\n", i, i, 20+i%60)
	}
	return b.String()
}
