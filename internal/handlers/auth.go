package handlers

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/rentals-dev/rentals/db"
	"github.com/rentals-dev/rentals/internal/auth"
	"github.com/rentals-dev/rentals/internal/models"
	"github.com/rentals-dev/rentals/internal/password"
	"github.com/rentals-dev/rentals/internal/services"
	"github.com/rentals-dev/rentals/internal/types"
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

var (
	Domain = os.Getenv("DOMAIN")
)

func Register(ctx *gin.Context) {
	var body RegisterRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "must provide username and password"})
		return
	}

	body.Username = strings.TrimSpace(body.Username)

	if unmet := password.Validate(body.Password); len(unmet) > 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"password": gin.H{"error": unmet}})
		return
	}

	var existing models.User
	err := db.DB.Where("username = ?", body.Username).First(&existing).Error

	if err == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "username already exists"})
		return
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		fail(ctx, err)
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)

	if err != nil {
		fail(ctx, err)
		return
	}

	var user models.User
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		user, err = services.RegisterUser(tx, body.Username, string(passwordHash))
		return err
	})

	if err != nil {
		fail(ctx, err)
		return
	}

	log.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("user registered")

	ctx.JSON(http.StatusCreated, types.UserWithProfileResponse{
		UserResponse: types.NewUserResponse(user),
		Profile:      types.NewProfileResponse(user.Profile),
	})
}

func Login(ctx *gin.Context) {
	var body LoginRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "must provide username and password"})
		return
	}

	var user models.User

	err := db.DB.Where("username = ?", body.Username).First(&user).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Same message as a wrong password so the response does not
			// reveal which half failed.
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid login credentials"})
			return
		}
		fail(ctx, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid login credentials"})
		return
	}

	access, refresh, err := auth.IssueTokens(user.ID, user.Username, user.IsAdmin)

	if err != nil {
		fail(ctx, err)
		return
	}

	setRefreshCookie(ctx, refresh, int(auth.RefreshTokenTTL.Seconds()))

	ctx.JSON(http.StatusOK, gin.H{"access": access})
}

func Refresh(ctx *gin.Context) {
	refreshToken, err := ctx.Cookie(types.RefreshTokenCookie)

	if err != nil || refreshToken == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "refresh token required"})
		return
	}

	access, err := auth.RefreshAccessToken(refreshToken)

	if err != nil {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "invalid or expired token"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"access": access})
}

func Logout(ctx *gin.Context) {
	setRefreshCookie(ctx, "", -1)
	ctx.JSON(http.StatusOK, gin.H{"message": "successfully logged out"})
}

func setRefreshCookie(ctx *gin.Context, value string, maxAge int) {
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     types.RefreshTokenCookie,
		Value:    value,
		Path:     "/",
		Domain:   Domain,
		MaxAge:   maxAge,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
