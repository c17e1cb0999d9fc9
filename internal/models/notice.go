package models

import "gorm.io/gorm"

// Notice is an owner-authored, building-scoped message. The owner and
// building references are immutable after creation, and an existing
// notice blocks deletion of both its building and its author.
type Notice struct {
	gorm.Model

	OwnerID    uint   `gorm:"not null;index"`
	BuildingID uint   `gorm:"not null;index"`
	Body       string `gorm:"column:notice;size:256;not null"`

	// Relationships
	Owner    User     `gorm:"foreignKey:OwnerID"`
	Building Building `gorm:"foreignKey:BuildingID"`
}
