package handlers

import (
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

type UpdateProfileRequest struct {
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

func GetProfile(ctx *gin.Context) {
	current, ok := currentUser(ctx)
	if !ok {
		return
	}

	userID, err := paramID(ctx, "user_id", "user does not exist")
	if err != nil {
		fail(ctx, err)
		return
	}

	if err := authz.CanManageUser(current.Actor(), userID); err != nil {
		fail(ctx, err)
		return
	}

	user, err := services.GetUser(db.DB, userID)
	if err != nil {
		fail(ctx, err)
		return
	}

	profile, err := services.GetProfile(db.DB, user.ID)
	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": types.UserWithProfileResponse{
		UserResponse: types.NewUserResponse(user),
		Profile:      types.NewProfileResponse(profile),
	}})
}

func UpdateProfile(ctx *gin.Context) {
	current, ok := currentUser(ctx)
	if !ok {
		return
	}

	userID, err := paramID(ctx, "user_id", "user does not exist")
	if err != nil {
		fail(ctx, err)
		return
	}

	if err := authz.CanManageUser(current.Actor(), userID); err != nil {
		fail(ctx, err)
		return
	}

	var body UpdateProfileRequest
	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	var profile models.Profile
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		user, err := services.GetUser(tx, userID)
		if err != nil {
			return err
		}

		profile, err = services.GetProfile(tx, user.ID)
		if err != nil {
			return err
		}

		updates := make(map[string]interface{})
		if body.Phone != nil {
			updates["phone"] = *body.Phone
		}
		if body.Address != nil {
			updates["address"] = *body.Address
		}

		if len(updates) > 0 {
			return tx.Model(&profile).Updates(updates).Error
		}
		return nil
	})

	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"profile": types.NewProfileResponse(profile)})
}

// DeleteProfile removes the profile and any building left orphaned by
// it. A building still carrying a notice aborts the whole request with
// a conflict.
func DeleteProfile(ctx *gin.Context) {
	current, ok := currentUser(ctx)
	if !ok {
		return
	}

	userID, err := paramID(ctx, "user_id", "user does not exist")
	if err != nil {
		fail(ctx, err)
		return
	}

	if err := authz.CanManageUser(current.Actor(), userID); err != nil {
		fail(ctx, err)
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		user, err := services.GetUser(tx, userID)
		if err != nil {
			return err
		}
		profile, err := services.GetProfile(tx, user.ID)
		if err != nil {
			return err
		}
		return services.DeleteProfile(tx, profile)
	})

	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "profile successfully deleted"})
}

// UserBuildings lists the buildings a user is tied to in one category,
// owner or tenant.
func UserBuildings(ctx *gin.Context) {
	current, ok := currentUser(ctx)
	if !ok {
		return
	}

	userID, err := paramID(ctx, "user_id", "user does not exist")
	if err != nil {
		fail(ctx, err)
		return
	}

	if err := authz.CanManageUser(current.Actor(), userID); err != nil {
		fail(ctx, err)
		return
	}

	category := ctx.Query("category")
	if !models.ValidRelationship(category) {
		fail(ctx, apperrors.BadRequest("category must be either owner or tenant"))
		return
	}

	user, err := services.GetUser(db.DB, userID)
	if err != nil {
		fail(ctx, err)
		return
	}

	profile, err := services.GetProfile(db.DB, user.ID)
	if err != nil {
		fail(ctx, err)
		return
	}

	page := pagination.FromRequest(ctx)

	base := db.DB.Model(&models.Building{}).
		Joins("JOIN user_buildings ON user_buildings.building_id = buildings.id").
		Where("user_buildings.profile_id = ? AND user_buildings.relationship = ?", profile.ID, category)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		fail(ctx, err)
		return
	}

	var buildings []models.Building
	if err := base.Order("buildings.id").Offset(page.Offset()).Limit(page.Size).Find(&buildings).Error; err != nil {
		fail(ctx, err)
		return
	}

	results := make([]types.BuildingResponse, 0, len(buildings))
	for _, building := range buildings {
		results = append(results, types.NewBuildingResponse(building))
	}

	envelope, err := page.Envelope(ctx, total, results)
	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, envelope)
}

// UserNotices lists notices authored by a user.
func UserNotices(ctx *gin.Context) {
	current, ok := currentUser(ctx)
	if !ok {
		return
	}

	userID, err := paramID(ctx, "user_id", "user does not exist")
	if err != nil {
		fail(ctx, err)
		return
	}

	if err := authz.CanManageUser(current.Actor(), userID); err != nil {
		fail(ctx, err)
		return
	}

	if _, err := services.GetUser(db.DB, userID); err != nil {
		fail(ctx, err)
		return
	}

	page := pagination.FromRequest(ctx)

	var total int64
	if err := db.DB.Model(&models.Notice{}).Where("owner_id = ?", userID).Count(&total).Error; err != nil {
		fail(ctx, err)
		return
	}

	var notices []models.Notice
	if err := db.DB.Where("owner_id = ?", userID).Order("id").Offset(page.Offset()).Limit(page.Size).Find(&notices).Error; err != nil {
		fail(ctx, err)
		return
	}

	results := make([]types.NoticeResponse, 0, len(notices))
	for _, notice := range notices {
		results = append(results, types.NewNoticeResponse(notice))
	}

	envelope, err := page.Envelope(ctx, total, results)
	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, envelope)
}

// UserComments lists comments authored by a user.
func UserComments(ctx *gin.Context) {
	current, ok := currentUser(ctx)
	if !ok {
		return
	}

	userID, err := paramID(ctx, "user_id", "user does not exist")
	if err != nil {
		fail(ctx, err)
		return
	}

	if err := authz.CanManageUser(current.Actor(), userID); err != nil {
		fail(ctx, err)
		return
	}

	if _, err := services.GetUser(db.DB, userID); err != nil {
		fail(ctx, err)
		return
	}

	page := pagination.FromRequest(ctx)

	var total int64
	if err := db.DB.Model(&models.Comment{}).Where("tenant_id = ?", userID).Count(&total).Error; err != nil {
		fail(ctx, err)
		return
	}

	var comments []models.Comment
	if err := db.DB.Where("tenant_id = ?", userID).Order("id").Offset(page.Offset()).Limit(page.Size).Find(&comments).Error; err != nil {
		fail(ctx, err)
		return
	}

	results := make([]types.CommentResponse, 0, len(comments))
	for _, comment := range comments {
		results = append(results, types.NewCommentResponse(comment))
	}

	envelope, err := page.Envelope(ctx, total, results)
	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, envelope)
}
