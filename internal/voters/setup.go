package voters

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/EmpoweredVote/ward-backend/internal/db"
)

// Init creates the roll schema and migrates its tables.
func Init(gdb *gorm.DB) error {
	if err := db.EnsureSchema(gdb, "roll"); err != nil {
		return fmt.Errorf("create roll schema: %w", err)
	}

	if err := gdb.AutoMigrate(&Voter{}, &ImportRun{}); err != nil {
		return fmt.Errorf("auto-migrate roll tables: %w", err)
	}
	return nil
}
