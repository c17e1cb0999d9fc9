package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/rentals-dev/rentals/db"
	"github.com/rentals-dev/rentals/internal/apperrors"
	"github.com/rentals-dev/rentals/internal/authz"
	"github.com/rentals-dev/rentals/internal/models"
	"github.com/rentals-dev/rentals/internal/pagination"
	"github.com/rentals-dev/rentals/internal/password"
	"github.com/rentals-dev/rentals/internal/services"
	"github.com/rentals-dev/rentals/internal/types"
)

type UpdateUserRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

// ListUsers returns every account with its profile, admin only.
func ListUsers(ctx *gin.Context) {
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
	if err := db.DB.Model(&models.User{}).Count(&total).Error; err != nil {
		fail(ctx, err)
		return
	}

	var users []models.User
	if err := db.DB.Preload("Profile").Order("id").Offset(page.Offset()).Limit(page.Size).Find(&users).Error; err != nil {
		fail(ctx, err)
		return
	}

	results := make([]gin.H, 0, len(users))
	for _, user := range users {
		results = append(results, gin.H{"user": types.UserWithProfileResponse{
			UserResponse: types.NewUserResponse(user),
			Profile:      types.NewProfileResponse(user.Profile),
		}})
	}

	envelope, err := page.Envelope(ctx, total, results)
	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, envelope)
}

func GetUser(ctx *gin.Context) {
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

	var user models.User
	if err := db.DB.Preload("Profile").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(ctx, apperrors.NotFound("user does not exist"))
			return
		}
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, types.UserWithProfileResponse{
		UserResponse: types.NewUserResponse(user),
		Profile:      types.NewProfileResponse(user.Profile),
	})
}

func UpdateUser(ctx *gin.Context) {
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

	var body UpdateUserRequest
	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if body.Username == nil && body.Password == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "no valid fields to update"})
		return
	}

	updates := make(map[string]interface{})

	if body.Password != nil {
		if unmet := password.Validate(*body.Password); len(unmet) > 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"password": gin.H{"error": unmet}})
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*body.Password), bcrypt.DefaultCost)
		if err != nil {
			fail(ctx, err)
			return
		}
		updates["password_hash"] = string(hash)
	}

	var user models.User
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		user, err = services.GetUser(tx, userID)
		if err != nil {
			return err
		}

		if body.Username != nil {
			username := strings.TrimSpace(*body.Username)
			var existing models.User
			err := tx.Where("username = ? AND id != ?", username, user.ID).First(&existing).Error
			if err == nil {
				return apperrors.BadRequest("username already exists")
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			updates["username"] = username
		}

		return tx.Model(&user).Updates(updates).Error
	})

	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": user.Username + " successfully updated",
		"updates": types.NewUserResponse(user),
	})
}

func DeleteUser(ctx *gin.Context) {
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
		return services.DeleteUser(tx, user)
	})

	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "user successfully deleted"})
}
