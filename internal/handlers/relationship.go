package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rentals-dev/rentals/db"
	"github.com/rentals-dev/rentals/internal/apperrors"
	"github.com/rentals-dev/rentals/internal/authz"
	"github.com/rentals-dev/rentals/internal/models"
	"github.com/rentals-dev/rentals/internal/pagination"
	"github.com/rentals-dev/rentals/internal/services"
	"github.com/rentals-dev/rentals/internal/types"
)

type AddTieRequest struct {
	UserID       uint   `json:"user_id"`
	Relationship string `json:"relationship"`
}

// ListBuildingUsers returns the profiles tied to a building, optionally
// filtered by relationship kind. Anyone linked to the building (or an
// admin) may look.
func ListBuildingUsers(ctx *gin.Context) {
	current, ok := currentUser(ctx)
	if !ok {
		return
	}

	buildingID, err := paramID(ctx, "building_id", "Building does not exist")
	if err != nil {
		fail(ctx, err)
		return
	}

	if _, err := services.GetBuilding(db.DB, buildingID); err != nil {
		fail(ctx, apperrors.NotFound("Building does not exist"))
		return
	}

	tie, err := services.TieForUser(db.DB, current.ID, buildingID)
	if err != nil {
		fail(ctx, err)
		return
	}
	if err := authz.CanViewBuildingScoped(current.Actor(), tie); err != nil {
		fail(ctx, err)
		return
	}

	filter := ctx.Query("relationship")
	if filter != "" && !models.ValidRelationship(filter) {
		fail(ctx, apperrors.BadRequest("relationship must be either owner or tenant"))
		return
	}

	page := pagination.FromRequest(ctx)

	base := db.DB.Model(&models.UserBuilding{}).Where("building_id = ?", buildingID)
	if filter != "" {
		base = base.Where("relationship = ?", filter)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		fail(ctx, err)
		return
	}

	var ties []models.UserBuilding
	err = base.Preload("Profile").Preload("Profile.User").
		Order("id").Offset(page.Offset()).Limit(page.Size).
		Find(&ties).Error
	if err != nil {
		fail(ctx, err)
		return
	}

	results := make([]gin.H, 0, len(ties))
	for _, t := range ties {
		var user types.UserResponse
		if t.Profile.User != nil {
			user = types.NewUserResponse(*t.Profile.User)
		}
		results = append(results, gin.H{"user": types.UserWithProfileResponse{
			UserResponse: user,
			Profile:      types.NewProfileResponse(t.Profile),
		}, "relationship": t.Relationship})
	}

	envelope, err := page.Envelope(ctx, total, results)
	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, envelope)
}

// AddBuildingUser links another profile to the building. Only an
// existing owner (or admin) may manage the ledger.
func AddBuildingUser(ctx *gin.Context) {
	current, ok := currentUser(ctx)
	if !ok {
		return
	}

	buildingID, err := paramID(ctx, "building_id", "building does not exist")
	if err != nil {
		fail(ctx, err)
		return
	}

	var body AddTieRequest
	if err := ctx.BindJSON(&body); err != nil || body.UserID == 0 || body.Relationship == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "must provide user id and relationship to building"})
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		building, err := services.GetBuilding(tx, buildingID)
		if err != nil {
			return err
		}

		tie, err := services.TieForUser(tx, current.ID, building.ID)
		if err != nil {
			return err
		}
		if err := authz.CanManageTies(current.Actor(), tie); err != nil {
			return err
		}

		target, err := services.GetUser(tx, body.UserID)
		if err != nil {
			return err
		}
		targetProfile, err := services.GetProfile(tx, target.ID)
		if err != nil {
			return err
		}

		return services.AddTie(tx, targetProfile.ID, building.ID, body.Relationship)
	})

	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("profile with user id %d successfully added to building id %d", body.UserID, buildingID),
	})
}

// RemoveBuildingUser unlinks a profile from the building, refusing to
// remove the last owner.
func RemoveBuildingUser(ctx *gin.Context) {
	current, ok := currentUser(ctx)
	if !ok {
		return
	}

	buildingID, err := paramID(ctx, "building_id", "building does not exist")
	if err != nil {
		fail(ctx, err)
		return
	}

	userID, err := paramID(ctx, "user_id", "user does not exist")
	if err != nil {
		fail(ctx, err)
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		building, err := services.GetBuilding(tx, buildingID)
		if err != nil {
			return err
		}

		tie, err := services.TieForUser(tx, current.ID, building.ID)
		if err != nil {
			return err
		}
		if err := authz.CanManageTies(current.Actor(), tie); err != nil {
			return err
		}

		target, err := services.GetUser(tx, userID)
		if err != nil {
			return err
		}
		targetProfile, err := services.GetProfile(tx, target.ID)
		if err != nil {
			return err
		}

		return services.RemoveTie(tx, targetProfile.ID, building.ID)
	})

	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("profile with user id %d removed from building id %d", userID, buildingID),
	})
}
