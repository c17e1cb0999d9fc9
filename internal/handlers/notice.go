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

type CreateNoticeRequest struct {
	Owner    uint   `json:"owner" binding:"required"`
	Building uint   `json:"building" binding:"required"`
	Notice   string `json:"notice" binding:"required"`
}

type UpdateNoticeRequest struct {
	Owner    *uint   `json:"owner"`
	Building *uint   `json:"building"`
	Notice   *string `json:"notice"`
}

// ListNotices returns every notice in the system, admin only.
func ListNotices(ctx *gin.Context) {
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
	if err := db.DB.Model(&models.Notice{}).Count(&total).Error; err != nil {
		fail(ctx, err)
		return
	}

	var notices []models.Notice
	if err := db.DB.Order("id").Offset(page.Offset()).Limit(page.Size).Find(&notices).Error; err != nil {
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

// CreateNotice authors an owner announcement on a building. The
// requester must be the named owner and hold an owner tie.
func CreateNotice(ctx *gin.Context) {
	current, ok := currentUser(ctx)
	if !ok {
		return
	}

	var body CreateNoticeRequest
	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "must provide owner, building and notice"})
		return
	}

	if body.Owner != current.ID {
		fail(ctx, apperrors.Forbidden("user not authorized to perform this action"))
		return
	}

	var notice models.Notice
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		building, err := services.GetBuilding(tx, body.Building)
		if err != nil {
			return err
		}
		owner, err := services.GetUser(tx, body.Owner)
		if err != nil {
			return err
		}
		profile, err := services.GetProfile(tx, owner.ID)
		if err != nil {
			return err
		}

		tie, err := services.TieForProfile(tx, profile.ID, building.ID)
		if err != nil {
			return err
		}
		if err := authz.CanAuthorNotice(tie); err != nil {
			return err
		}

		notice, err = services.CreateNotice(tx, owner.ID, building.ID, body.Notice)
		return err
	})

	if err != nil {
		fail(ctx, err)
		return
	}

	BroadcastAnnouncement(notice.BuildingID, "notice", types.NewNoticeResponse(notice))

	ctx.JSON(http.StatusCreated, types.NewNoticeResponse(notice))
}

func GetNotice(ctx *gin.Context) {
	current, ok := currentUser(ctx)
	if !ok {
		return
	}

	noticeID, err := paramID(ctx, "notice_id", "notice does not exist")
	if err != nil {
		fail(ctx, err)
		return
	}

	notice, err := services.GetNotice(db.DB, noticeID)
	if err != nil {
		fail(ctx, err)
		return
	}

	if err := authz.CanTouchAnnouncement(current.Actor(), &notice.OwnerID); err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, types.NewNoticeResponse(notice))
}

// UpdateNotice edits the notice body. Owner and building references are
// immutable once the notice exists.
func UpdateNotice(ctx *gin.Context) {
	current, ok := currentUser(ctx)
	if !ok {
		return
	}

	noticeID, err := paramID(ctx, "notice_id", "notice does not exist")
	if err != nil {
		fail(ctx, err)
		return
	}

	var body UpdateNoticeRequest
	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if body.Owner != nil {
		fail(ctx, apperrors.BadRequest("cannot change user"))
		return
	}
	if body.Building != nil {
		fail(ctx, apperrors.BadRequest("cannot change building"))
		return
	}

	var notice models.Notice
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		notice, err = services.GetNotice(tx, noticeID)
		if err != nil {
			return err
		}

		if err := authz.CanTouchAnnouncement(current.Actor(), &notice.OwnerID); err != nil {
			return err
		}

		if body.Notice != nil {
			notice.Body = *body.Notice
			return tx.Save(&notice).Error
		}
		return nil
	})

	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, types.NewNoticeResponse(notice))
}

// DeleteNotice resolves a notice; this is what ultimately unblocks
// deletion of its building.
func DeleteNotice(ctx *gin.Context) {
	current, ok := currentUser(ctx)
	if !ok {
		return
	}

	noticeID, err := paramID(ctx, "notice_id", "notice does not exist")
	if err != nil {
		fail(ctx, err)
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		notice, err := services.GetNotice(tx, noticeID)
		if err != nil {
			return err
		}
		if err := authz.CanTouchAnnouncement(current.Actor(), &notice.OwnerID); err != nil {
			return err
		}
		return tx.Delete(&notice).Error
	})

	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"notice_id": noticeID, "message": "successfully deleted"})
}

// BuildingNotices lists a building's notices for anyone linked to it.
func BuildingNotices(ctx *gin.Context) {
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
	if err := db.DB.Model(&models.Notice{}).Where("building_id = ?", buildingID).Count(&total).Error; err != nil {
		fail(ctx, err)
		return
	}

	var notices []models.Notice
	if err := db.DB.Where("building_id = ?", buildingID).Order("id").Offset(page.Offset()).Limit(page.Size).Find(&notices).Error; err != nil {
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
