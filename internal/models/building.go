package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/rentals-dev/rentals/internal/geo"
)

type Building struct {
	gorm.Model

	Comment        string         `gorm:"size:255"`
	County         string         `gorm:"size:255"`
	District       string         `gorm:"size:255"`
	Rent           string         `gorm:"type:decimal(8,2)"`
	PaymentDetails datatypes.JSON `gorm:"type:jsonb"`
	Occupancy      bool
	Location       geo.Point `gorm:"type:geometry(Point,4326);not null"`

	// Relationships
	Ties     []UserBuilding `gorm:"foreignKey:BuildingID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Notices  []Notice       `gorm:"foreignKey:BuildingID"`
	Comments []Comment      `gorm:"foreignKey:BuildingID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
