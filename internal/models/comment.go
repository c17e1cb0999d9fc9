package models

import "gorm.io/gorm"

// Comment is a tenant-authored, building-scoped message. The tenant
// reference survives as NULL if the author is deleted; the comment is
// removed with its building.
type Comment struct {
	gorm.Model

	TenantID   *uint  `gorm:"index"`
	BuildingID uint   `gorm:"not null;index"`
	Body       string `gorm:"column:comment;size:256;not null"`

	// Relationships
	Tenant   *User    `gorm:"foreignKey:TenantID;constraint:OnUpdate:Cascade,OnDelete:SET NULL"`
	Building Building `gorm:"foreignKey:BuildingID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
