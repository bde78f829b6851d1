package voters

import (
	"context"
	"errors"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/EmpoweredVote/ward-backend/internal/textmatch"
	"github.com/EmpoweredVote/ward-backend/internal/utils"
)

var ErrVoterNotFound = errors.New("voter not found")

// Store is the roll repository the matcher, importer and handlers share.
type Store interface {
	FindByEPIC(ctx context.Context, epic string) (*Voter, error)
	// ScanCandidates calls fn for every roll row, batchSize rows at a time,
	// in primary-key order. An error from fn stops the scan.
	ScanCandidates(ctx context.Context, batchSize int, fn func([]Voter) error) error
	CountVoters(ctx context.Context) (int64, error)
	UpsertVoters(ctx context.Context, batch []Voter) error
	ExistingEPICs(ctx context.Context, epics []string) (map[string]struct{}, error)
	SearchVoters(ctx context.Context, query string, limit int) ([]Voter, error)
	RecordImport(ctx context.Context, run *ImportRun) error
	ListImports(ctx context.Context, limit int) ([]ImportRun, error)
	// EPICClaimed reports whether a portal account is already registered
	// with epic.
	EPICClaimed(ctx context.Context, epic string) (bool, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

func (s *GormStore) FindByEPIC(ctx context.Context, epic string) (*Voter, error) {
	var v Voter
	err := s.db.WithContext(ctx).First(&v, "epic_number = ?", epic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVoterNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *GormStore) ScanCandidates(ctx context.Context, batchSize int, fn func([]Voter) error) error {
	var batch []Voter
	return s.db.WithContext(ctx).
		Select("epic_number", "voter_name", "father_husband_name", "house_no").
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(batch)
		}).Error
}

func (s *GormStore) CountVoters(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Voter{}).Count(&n).Error
	return n, err
}

// UpsertVoters inserts the batch, overwriting existing rows by EPIC number.
func (s *GormStore) UpsertVoters(ctx context.Context, batch []Voter) error {
	if len(batch) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "epic_number"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"voter_name", "father_husband_name", "house_no", "age", "gender", "ward_number", "updated_at",
		}),
	}).Create(&batch).Error
}

func (s *GormStore) ExistingEPICs(ctx context.Context, epics []string) (map[string]struct{}, error) {
	found := make(map[string]struct{}, len(epics))
	if len(epics) == 0 {
		return found, nil
	}

	var rows []string
	if err := s.db.WithContext(ctx).Raw(`
		SELECT epic_number FROM roll.voter_list WHERE epic_number = ANY(?)
	`, pq.Array(epics)).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, e := range rows {
		found[e] = struct{}{}
	}
	return found, nil
}

// SearchVoters matches a case-insensitive name substring or an EPIC prefix.
func (s *GormStore) SearchVoters(ctx context.Context, query string, limit int) ([]Voter, error) {
	query = strings.TrimSpace(query)
	var out []Voter
	if query == "" {
		return out, nil
	}

	name := "%" + likeEscape(query) + "%"
	epic := likeEscape(textmatch.NormalizeEPIC(query))
	q := s.db.WithContext(ctx).Where("voter_name ILIKE ?", name)
	if epic != "" {
		q = q.Or("epic_number LIKE ?", epic+"%")
	}
	err := q.Order("voter_name").Limit(limit).Find(&out).Error
	return out, err
}

func likeEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *GormStore) RecordImport(ctx context.Context, run *ImportRun) error {
	return s.db.WithContext(ctx).Create(run).Error
}

func (s *GormStore) ListImports(ctx context.Context, limit int) ([]ImportRun, error) {
	var runs []ImportRun
	err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

func (s *GormStore) EPICClaimed(ctx context.Context, epic string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&PortalUser{}).
		Where("UPPER(TRIM(epic_number)) = ?", epic).
		Count(&n).Error
	return n > 0, err
}

// UserInfo resolves admin ids against the portal users table.
type UserInfo struct {
	db *gorm.DB
}

func NewUserInfo(db *gorm.DB) UserInfo { return UserInfo{db: db} }

func (u UserInfo) FindUserByID(ctx context.Context, id string) (utils.UserData, error) {
	var user PortalUser
	if err := u.db.WithContext(ctx).Select("id", "phone", "role").First(&user, "id = ?", id).Error; err != nil {
		return utils.UserData{}, err
	}
	return utils.UserData{
		UserID: user.ID,
		Phone:  user.Phone,
		Role:   user.Role,
	}, nil
}
