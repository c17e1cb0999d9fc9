package models

import "time"

const (
	RelationshipOwner  = "owner"
	RelationshipTenant = "tenant"
)

func ValidRelationship(relationship string) bool {
	return relationship == RelationshipOwner || relationship == RelationshipTenant
}

// UserBuilding is the relationship ledger: one row ties a profile to a
// building as either owner or tenant. A profile holds at most one row
// per building, and a building always keeps at least one owner row.
// Rows are hard-deleted so a removed tie can be re-added without
// tripping the unique index.
type UserBuilding struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	ProfileID    uint   `gorm:"not null;uniqueIndex:idx_profile_building"`
	BuildingID   uint   `gorm:"not null;uniqueIndex:idx_profile_building"`
	Relationship string `gorm:"not null;check:relationship IN ('owner','tenant')"`

	// Relationships
	Profile  Profile  `gorm:"foreignKey:ProfileID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Building Building `gorm:"foreignKey:BuildingID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
