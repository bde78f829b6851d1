package voters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EmpoweredVote/ward-backend/internal/cache"
	"github.com/EmpoweredVote/ward-backend/internal/config"
	"github.com/EmpoweredVote/ward-backend/internal/logging"
	"github.com/EmpoweredVote/ward-backend/internal/pdftext"
	"github.com/EmpoweredVote/ward-backend/internal/rollparse"
)

var (
	ErrFetch       = errors.New("failed to fetch PDF")
	ErrPDFTooLarge = errors.New("PDF exceeds the size limit")
)

// Source is one roll PDF to import.
type Source struct {
	Data    []byte
	Name    string
	AdminID string
}

// Summary reports an import. Count is the number of rows written; TotalFound
// is the number of distinct voters parsed out of the PDF.
type Summary struct {
	Count         int       `json:"count"`
	TotalFound    int       `json:"total_found"`
	Pages         int       `json:"pages"`
	NewVoters     int       `json:"new_voters"`
	FailedBatches int       `json:"failed_batches"`
	RunID         uuid.UUID `json:"run_id"`
}

type Importer struct {
	store     Store
	extractor pdftext.Extractor
	cache     cache.Cache
	ward      string
	batchSize int
	maxFetch  int64
	client    *http.Client
	log       *zap.Logger
}

func NewImporter(store Store, extractor pdftext.Extractor, c cache.Cache, ward string, cfg config.ImportConfig, log *zap.Logger) *Importer {
	if c == nil {
		c = cache.Nop{}
	}
	return &Importer{
		store:     store,
		extractor: extractor,
		cache:     c,
		ward:      ward,
		batchSize: cfg.BatchSize,
		maxFetch:  cfg.MaxFetchMB << 20,
		client:    &http.Client{Timeout: cfg.FetchTimeout},
		log:       log,
	}
}

// Import extracts, parses and upserts a roll PDF. Failed batches are logged
// and skipped; the rest of the roll is still written. Parse failures come
// back as *pdftext.ParseError or rollparse.ErrNoVotersFound.
func (im *Importer) Import(ctx context.Context, src Source) (Summary, error) {
	start := time.Now()
	run := &ImportRun{
		ID:      uuid.New(),
		AdminID: src.AdminID,
		Source:  src.Name,
		Status:  StatusFailed,
	}
	sum := Summary{RunID: run.ID}

	doc, err := im.extractor.Extract(ctx, src.Data)
	if err != nil {
		im.finish(ctx, run, start, err)
		return sum, err
	}
	run.Pages, sum.Pages = doc.PageCount, doc.PageCount

	parsed, err := rollparse.Parse(doc.Text, im.ward)
	if err != nil {
		im.finish(ctx, run, start, err)
		return sum, err
	}
	run.EPICsSeen = parsed.EPICsSeen
	sum.TotalFound = len(parsed.Records)

	rows := toVoters(parsed.Records)
	epics := make([]string, len(rows))
	for i := range rows {
		epics[i] = rows[i].EPICNumber
	}
	existing, err := im.store.ExistingEPICs(ctx, epics)
	if err != nil {
		im.log.Warn("existing voter probe failed; new voter count unavailable", zap.Error(err))
		existing = nil
	}

	for i, batchNo := 0, 1; i < len(rows); i, batchNo = i+im.batchSize, batchNo+1 {
		if err := ctx.Err(); err != nil {
			im.finish(ctx, run, start, err)
			return sum, err
		}

		batch := rows[i:min(i+im.batchSize, len(rows))]
		if err := im.store.UpsertVoters(ctx, batch); err != nil {
			logging.LogBatchError(im.log, batchNo, len(batch), err)
			sum.FailedBatches++
			continue
		}
		sum.Count += len(batch)
		if existing != nil {
			for _, v := range batch {
				if _, ok := existing[v.EPICNumber]; !ok {
					sum.NewVoters++
				}
			}
		}
	}

	run.TotalFound = sum.TotalFound
	run.Inserted = sum.Count
	run.NewVoters = sum.NewVoters
	run.FailedBatches = sum.FailedBatches
	switch {
	case sum.FailedBatches == 0:
		run.Status = StatusSucceeded
	case sum.Count > 0:
		run.Status = StatusPartial
	}
	im.finish(ctx, run, start, nil)

	if sum.Count > 0 {
		if _, err := im.cache.Bump(ctx); err != nil {
			im.log.Warn("verification cache bump failed", zap.Error(err))
		}
	}
	logging.LogUpsert(im.log, src.Name, sum.Count, time.Since(start))
	return sum, nil
}

func (im *Importer) finish(ctx context.Context, run *ImportRun, start time.Time, cause error) {
	run.DurationMS = time.Since(start).Milliseconds()
	if cause != nil {
		run.Error = cause.Error()
	}
	// Record the run even when the request context is already cancelled.
	if err := im.store.RecordImport(context.WithoutCancel(ctx), run); err != nil {
		im.log.Error("failed to record import run", zap.String("run_id", run.ID.String()), zap.Error(err))
	}
}

func toVoters(records []rollparse.Record) []Voter {
	out := make([]Voter, 0, len(records))
	for _, r := range records {
		v := Voter{
			EPICNumber:        r.EPIC,
			VoterName:         r.Name,
			FatherHusbandName: r.FatherOrHusband,
			HouseNo:           r.HouseNo,
			Age:               r.Age,
			WardNumber:        r.Ward,
		}
		if r.Gender != "" {
			g := string(r.Gender)
			v.Gender = &g
		}
		out = append(out, v)
	}
	return out
}

// FetchPDF downloads a roll PDF over http(s), capped at the configured size.
func (im *Importer) FetchPDF(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid url %q", ErrFetch, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	resp, err := im.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, im.maxFetch+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if int64(len(data)) > im.maxFetch {
		return nil, ErrPDFTooLarge
	}
	return data, nil
}
