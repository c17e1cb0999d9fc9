package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/rentals-dev/rentals/internal/apperrors"
	"github.com/rentals-dev/rentals/internal/middleware"
	"github.com/rentals-dev/rentals/internal/utils"
)

// fail writes the error body for any failure. Errors outside the
// taxonomy are logged and masked as a 500.
func fail(ctx *gin.Context, err error) {
	status := apperrors.StatusOf(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", ctx.FullPath()).Str("method", ctx.Request.Method).Msg("request failed")
	}
	ctx.JSON(status, gin.H{"error": apperrors.MessageOf(err)})
}

// currentUser pulls the authenticated identity set by the auth
// middleware, aborting with a 401 if it is somehow absent.
func currentUser(ctx *gin.Context) (middleware.AuthenticatedUser, bool) {
	user, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return middleware.AuthenticatedUser{}, false
	}
	return user, true
}

// paramID parses a numeric path parameter; anything non-numeric reads
// as a reference to a record that cannot exist.
func paramID(ctx *gin.Context, name, missingMessage string) (uint, error) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil {
		return 0, apperrors.NotFound(missingMessage)
	}
	return uint(id), nil
}
