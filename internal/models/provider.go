package models

// ProviderProfile holds the directory entry for a healthcare provider.
// One profile exists per provider user; it is created empty at
// registration and filled in by its owner.
type ProviderProfile struct {
	BaseModel
	UserID        string `gorm:"size:36;uniqueIndex" json:"userId"`
	Specialty     string `gorm:"size:100" json:"specialty"`
	OfficeAddress string `gorm:"size:255" json:"officeAddress"`
	Bio           string `gorm:"type:text" json:"bio"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
