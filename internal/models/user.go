package models

import "gorm.io/gorm"

type User struct {
	gorm.Model

	Username     string `gorm:"uniqueIndex;size:150;not null"`
	PasswordHash string `gorm:"not null"`
	IsAdmin      bool   `gorm:"not null;default:false"`

	// Relationships
	Profile  Profile   `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Notices  []Notice  `gorm:"foreignKey:OwnerID"`
	Comments []Comment `gorm:"foreignKey:TenantID;constraint:OnUpdate:Cascade,OnDelete:SET NULL"`
}
