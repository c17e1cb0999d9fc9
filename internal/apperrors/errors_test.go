package apperrors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusOf(NotFound("building does not exist")))
	assert.Equal(t, http.StatusForbidden, StatusOf(Forbidden("nope")))
	assert.Equal(t, http.StatusUnauthorized, StatusOf(Unauthenticated("nope")))
	assert.Equal(t, http.StatusBadRequest, StatusOf(BadRequest("nope")))
	assert.Equal(t, http.StatusConflict, StatusOf(Conflict("nope")))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(fmt.Errorf("boom")))
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "building does not exist", MessageOf(NotFound("building does not exist")))

	// Unrecognized errors are masked.
	assert.Equal(t, "internal server error", MessageOf(fmt.Errorf("pq: connection refused")))
}

func TestWrappedErrorsUnwrap(t *testing.T) {
	wrapped := fmt.Errorf("removing tie: %w", Conflict("cannot delete building only owner"))
	assert.Equal(t, http.StatusConflict, StatusOf(wrapped))
	assert.Equal(t, "cannot delete building only owner", MessageOf(wrapped))
}
