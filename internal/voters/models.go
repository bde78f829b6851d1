package voters

import (
	"time"

	"github.com/google/uuid"
)

type Voter struct {
	EPICNumber        string    `gorm:"column:epic_number;primaryKey" json:"epic_number"`
	VoterName         string    `gorm:"column:voter_name;not null;index" json:"voter_name"`
	FatherHusbandName string    `gorm:"column:father_husband_name" json:"father_husband_name,omitempty"`
	HouseNo           string    `gorm:"column:house_no" json:"house_no,omitempty"`
	Age               *int      `gorm:"column:age" json:"age,omitempty"`
	Gender            *string   `gorm:"column:gender" json:"gender,omitempty"`
	WardNumber        string    `gorm:"column:ward_number;not null;default:'26'" json:"ward_number"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Import run statuses.
const (
	StatusSucceeded = "succeeded"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// ImportRun is one roll upload, successful or not.
type ImportRun struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AdminID       string    `gorm:"column:admin_id;index" json:"admin_id"`
	Source        string    `gorm:"column:source" json:"source"`
	Pages         int       `gorm:"column:pages" json:"pages"`
	EPICsSeen     int       `gorm:"column:epics_seen" json:"epics_seen"`
	TotalFound    int       `gorm:"column:total_found" json:"total_found"`
	Inserted      int       `gorm:"column:inserted" json:"inserted"`
	NewVoters     int       `gorm:"column:new_voters" json:"new_voters"`
	FailedBatches int       `gorm:"column:failed_batches" json:"failed_batches"`
	Status        string    `gorm:"column:status;not null" json:"status"`
	Error         string    `gorm:"column:error" json:"error,omitempty"`
	DurationMS    int64     `gorm:"column:duration_ms" json:"duration_ms"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

// PortalUser is the read-only view of the portal's users table used by the
// admin gate and the EPIC claim check. The portal owns the table; it is never
// migrated here.
type PortalUser struct {
	ID         string  `gorm:"column:id;primaryKey"`
	Phone      string  `gorm:"column:phone"`
	Role       string  `gorm:"column:role"`
	EPICNumber *string `gorm:"column:epic_number"`
}

func (Voter) TableName() string      { return "roll.voter_list" }
func (ImportRun) TableName() string  { return "roll.voter_imports" }
func (PortalUser) TableName() string { return "users" }
