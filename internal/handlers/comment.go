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

type CreateCommentRequest struct {
	Tenant   uint   `json:"tenant" binding:"required"`
	Building uint   `json:"building" binding:"required"`
	Comment  string `json:"comment" binding:"required"`
}

type UpdateCommentRequest struct {
	Tenant   *uint   `json:"tenant"`
	Building *uint   `json:"building"`
	Comment  *string `json:"comment"`
}

// ListComments returns every comment in the system, admin only.
func ListComments(ctx *gin.Context) {
	current, ok := currentUser(ctx)
	if !ok {
		return
	}

	if err := authz.CanListAdminData(current.Actor()); err != nil {
		fail(ctx, err)
		return
	}

	page := pagination.FromRequest(ctx)

	var total int64
	if err := db.DB.Model(&models.Comment{}).Count(&total).Error; err != nil {
		fail(ctx, err)
		return
	}

	var comments []models.Comment
	if err := db.DB.Order("id").Offset(page.Offset()).Limit(page.Size).Find(&comments).Error; err != nil {
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

// CreateComment authors a tenant announcement on a building. The
// requester must be the named tenant and hold a tenant tie.
func CreateComment(ctx *gin.Context) {
	current, ok := currentUser(ctx)
	if !ok {
		return
	}

	var body CreateCommentRequest
	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "must provide tenant, building and comment"})
		return
	}

	if body.Tenant != current.ID {
		fail(ctx, apperrors.Forbidden("user not authorized to perform this action"))
		return
	}

	var comment models.Comment
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		building, err := services.GetBuilding(tx, body.Building)
		if err != nil {
			return err
		}
		tenant, err := services.GetUser(tx, body.Tenant)
		if err != nil {
			return err
		}
		profile, err := services.GetProfile(tx, tenant.ID)
		if err != nil {
			return err
		}

		tie, err := services.TieForProfile(tx, profile.ID, building.ID)
		if err != nil {
			return err
		}
		if err := authz.CanAuthorComment(tie); err != nil {
			return err
		}

		comment, err = services.CreateComment(tx, tenant.ID, building.ID, body.Comment)
		return err
	})

	if err != nil {
		fail(ctx, err)
		return
	}

	BroadcastAnnouncement(comment.BuildingID, "comment", types.NewCommentResponse(comment))

	ctx.JSON(http.StatusCreated, types.NewCommentResponse(comment))
}

func GetComment(ctx *gin.Context) {
	current, ok := currentUser(ctx)
	if !ok {
		return
	}

	commentID, err := paramID(ctx, "comment_id", "comment does not exist")
	if err != nil {
		fail(ctx, err)
		return
	}

	comment, err := services.GetComment(db.DB, commentID)
	if err != nil {
		fail(ctx, err)
		return
	}

	if err := authz.CanTouchAnnouncement(current.Actor(), comment.TenantID); err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, types.NewCommentResponse(comment))
}

// UpdateComment edits the comment body. Tenant and building references
// are immutable once the comment exists.
func UpdateComment(ctx *gin.Context) {
	current, ok := currentUser(ctx)
	if !ok {
		return
	}

	commentID, err := paramID(ctx, "comment_id", "comment does not exist")
	if err != nil {
		fail(ctx, err)
		return
	}

	var body UpdateCommentRequest
	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if body.Tenant != nil {
		fail(ctx, apperrors.BadRequest("cannot change user"))
		return
	}
	if body.Building != nil {
		fail(ctx, apperrors.BadRequest("cannot change building"))
		return
	}

	var comment models.Comment
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		comment, err = services.GetComment(tx, commentID)
		if err != nil {
			return err
		}

		if err := authz.CanTouchAnnouncement(current.Actor(), comment.TenantID); err != nil {
			return err
		}

		if body.Comment != nil {
			comment.Body = *body.Comment
			return tx.Save(&comment).Error
		}
		return nil
	})

	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, types.NewCommentResponse(comment))
}

func DeleteComment(ctx *gin.Context) {
	current, ok := currentUser(ctx)
	if !ok {
		return
	}

	commentID, err := paramID(ctx, "comment_id", "comment does not exist")
	if err != nil {
		fail(ctx, err)
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		comment, err := services.GetComment(tx, commentID)
		if err != nil {
			return err
		}
		if err := authz.CanTouchAnnouncement(current.Actor(), comment.TenantID); err != nil {
			return err
		}
		return tx.Delete(&comment).Error
	})

	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"comment_id": commentID, "message": "successfully deleted"})
}

// BuildingComments lists a building's comments for anyone linked to it.
func BuildingComments(ctx *gin.Context) {
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

	page := pagination.FromRequest(ctx)

	var total int64
	if err := db.DB.Model(&models.Comment{}).Where("building_id = ?", buildingID).Count(&total).Error; err != nil {
		fail(ctx, err)
		return
	}

	var comments []models.Comment
	if err := db.DB.Where("building_id = ?", buildingID).Order("id").Offset(page.Offset()).Limit(page.Size).Find(&comments).Error; err != nil {
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
