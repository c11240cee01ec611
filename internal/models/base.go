package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel contains common columns for all tables
type BaseModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if base.ID == "" {
		base.ID = uuid.New().String()
	}
	return nil
}

// Database connection instance
var DB *gorm.DB

// InitDB initializes the database connection and runs migrations.
// TranslateError is enabled so unique-index violations surface as
// gorm.ErrDuplicatedKey on every supported driver; the appointment
// slot constraint depends on that.
func InitDB(dialector gorm.Dialector) (*gorm.DB, error) {
	var err error

	DB, err = gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	err = DB.AutoMigrate(
		&User{},
		&ProviderProfile{},
		&Appointment{},
	)
	if err != nil {
		return nil, err
	}

	return DB, nil
}
