package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// Migrate creates or updates every table owned by this service.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Blog{},
		&BlogLike{},
		&Comment{},
		&Challenge{},
		&ChallengeParticipant{},
	)
}

func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
