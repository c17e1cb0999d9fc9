package types

import (
	"encoding/json"
	"time"

	"github.com/rentals-dev/rentals/internal/geo"
	"github.com/rentals-dev/rentals/internal/models"
)

type UserResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

type ProfileResponse struct {
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type UserWithProfileResponse struct {
	UserResponse
	Profile ProfileResponse `json:"profile"`
}

type BuildingResponse struct {
	ID             uint            `json:"id"`
	Building       geo.Point       `json:"building"`
	Comment        string          `json:"comment"`
	County         string          `json:"county"`
	District       string          `json:"district"`
	Rent           string          `json:"rent"`
	PaymentDetails json.RawMessage `json:"payment_details,omitempty"`
	Occupancy      bool            `json:"occupancy"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type NoticeResponse struct {
	ID         uint      `json:"id"`
	OwnerID    uint      `json:"owner"`
	BuildingID uint      `json:"building"`
	Notice     string    `json:"notice"`
	CreatedAt  time.Time `json:"created_at"`
}

type CommentResponse struct {
	ID         uint      `json:"id"`
	TenantID   *uint     `json:"tenant"`
	BuildingID uint      `json:"building"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

// Feature and FeatureCollection shape the bulk-geometry listing mode.
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   geo.Point              `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

func NewUserResponse(user models.User) UserResponse {
	return UserResponse{ID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin}
}

func NewProfileResponse(profile models.Profile) ProfileResponse {
	return ProfileResponse{Phone: profile.Phone, Address: profile.Address}
}

func NewBuildingResponse(building models.Building) BuildingResponse {
	return BuildingResponse{
		ID:             building.ID,
		Building:       building.Location,
		Comment:        building.Comment,
		County:         building.County,
		District:       building.District,
		Rent:           building.Rent,
		PaymentDetails: json.RawMessage(building.PaymentDetails),
		Occupancy:      building.Occupancy,
		CreatedAt:      building.CreatedAt,
		UpdatedAt:      building.UpdatedAt,
	}
}

func NewNoticeResponse(notice models.Notice) NoticeResponse {
	return NoticeResponse{
		ID:         notice.ID,
		OwnerID:    notice.OwnerID,
		BuildingID: notice.BuildingID,
		Notice:     notice.Body,
		CreatedAt:  notice.CreatedAt,
	}
}

func NewCommentResponse(comment models.Comment) CommentResponse {
	return CommentResponse{
		ID:         comment.ID,
		TenantID:   comment.TenantID,
		BuildingID: comment.BuildingID,
		Comment:    comment.Body,
		CreatedAt:  comment.CreatedAt,
	}
}

func NewFeatureCollection(buildings []models.Building) FeatureCollection {
	features := make([]Feature, 0, len(buildings))
	for _, building := range buildings {
		features = append(features, Feature{
			Type:     "Feature",
			Geometry: building.Location,
			Properties: map[string]interface{}{
				"pk":        building.ID,
				"county":    building.County,
				"district":  building.District,
				"rent":      building.Rent,
				"occupancy": building.Occupancy,
			},
		})
	}
	return FeatureCollection{Type: "FeatureCollection", Features: features}
}
