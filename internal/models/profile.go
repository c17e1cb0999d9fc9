package models

import "gorm.io/gorm"

// Profile holds a user's contact details and anchors the building ties.
// Created alongside the user at registration.
type Profile struct {
	gorm.Model

	UserID  uint   `gorm:"not null;uniqueIndex"`
	Phone   string `gorm:"size:20"`
	Address string `gorm:"size:100"`

	// Relationships. The back-reference is a pointer so User and
	// Profile do not contain each other by value.
	User *User          `gorm:"foreignKey:UserID"`
	Ties []UserBuilding `gorm:"foreignKey:ProfileID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
