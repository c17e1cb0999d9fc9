package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentals-dev/rentals/db"
	"github.com/rentals-dev/rentals/internal/auth"
	"github.com/rentals-dev/rentals/internal/router"
)

const testPassword = "Str0ng!pass"

// setupAPI wires the full router against the TEST_DATABASE_URL
// database, skipping when it is unset.
func setupAPI(t *testing.T) *gin.Engine {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping API integration test")
	}

	t.Setenv("JWT_SECRET", "test-secret")
	require.NoError(t, auth.InitJWTSecret())

	require.NoError(t, db.ConnectDatabase(dsn))
	require.NoError(t, db.MigrateDatabase())
	require.NoError(t, db.DB.Exec(
		"TRUNCATE users, profiles, buildings, user_buildings, notices, comments RESTART IDENTITY CASCADE",
	).Error)

	gin.SetMode(gin.TestMode)
	return router.NewRouter()
}

func doJSON(t *testing.T, r *gin.Engine, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var payload *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewBuffer(data)
	} else {
		payload = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, target, payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "body: %s", rec.Body.String())
	return body
}

// registerAndLogin creates an account through the API and returns the
// user id and a live access token.
func registerAndLogin(t *testing.T, r *gin.Engine, username string) (uint, string) {
	t.Helper()

	rec := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": username,
		"password": testPassword,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	userID := uint(decodeBody(t, rec)["id"].(float64))

	rec = doJSON(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"username": username,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token := decodeBody(t, rec)["access"].(string)
	require.NotEmpty(t, token)

	return userID, token
}

func createBuilding(t *testing.T, r *gin.Engine, token string, ownerID uint) uint {
	t.Helper()
	rec := doJSON(t, r, http.MethodPost, "/api/v1/buildings", token, gin.H{
		"user_id":  ownerID,
		"building": "-1.2921, 36.8219",
		"county":   "Nairobi",
		"district": "Westlands",
		"rent":     "1500.00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return uint(decodeBody(t, rec)["id"].(float64))
}

func TestRegisterValidation(t *testing.T) {
	r := setupAPI(t)

	t.Run("weak password lists every unmet rule", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
			"username": "weakling",
			"password": "abc",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var body struct {
			Password struct {
				Error []string `json:"error"`
			} `json:"password"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Len(t, body.Password.Error, 4)
	})

	t.Run("duplicate username", func(t *testing.T) {
		registerAndLogin(t, r, "dupe")
		rec := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
			"username": "dupe",
			"password": testPassword,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "username already exists", decodeBody(t, rec)["error"])
	})
}

func TestLoginAndRefresh(t *testing.T) {
	r := setupAPI(t)
	registerAndLogin(t, r, "refresher")

	t.Run("wrong password", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{
			"username": "refresher",
			"password": "Wr0ng!pass",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid login credentials", decodeBody(t, rec)["error"])
	})

	t.Run("unknown username gets the same message", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{
			"username": "nobody",
			"password": testPassword,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid login credentials", decodeBody(t, rec)["error"])
	})

	t.Run("refresh without a cookie", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/api/v1/auth/refresh", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "refresh token required", decodeBody(t, rec)["error"])
	})

	t.Run("refresh with a garbage cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "garbage"})
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "invalid or expired token", decodeBody(t, rec)["error"])
	})

	t.Run("refresh with the login cookie", func(t *testing.T) {
		login := doJSON(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{
			"username": "refresher",
			"password": testPassword,
		})
		require.Equal(t, http.StatusOK, login.Code)

		var refreshCookie *http.Cookie
		for _, cookie := range login.Result().Cookies() {
			if cookie.Name == "refresh_token" {
				refreshCookie = cookie
			}
		}
		require.NotNil(t, refreshCookie)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/refresh", nil)
		req.AddCookie(refreshCookie)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, decodeBody(t, rec)["access"])
	})
}

func TestAuthMiddleware(t *testing.T) {
	r := setupAPI(t)

	rec := doJSON(t, r, http.MethodGet, "/api/v1/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/v1/users", "bogus-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid or expired token", decodeBody(t, rec)["error"])
}

func TestBuildingLifecycleFlow(t *testing.T) {
	r := setupAPI(t)

	ownerID, ownerToken := registerAndLogin(t, r, "landlord")
	tenantID, tenantToken := registerAndLogin(t, r, "renter")
	buildingID := createBuilding(t, r, ownerToken, ownerID)

	t.Run("single building read is public", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/buildings/%d", buildingID), "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		building := decodeBody(t, rec)["building"].(map[string]interface{})
		geometry := building["building"].(map[string]interface{})
		coords := geometry["coordinates"].([]interface{})
		assert.InDelta(t, 36.8219, coords[0].(float64), 1e-9)
		assert.InDelta(t, -1.2921, coords[1].(float64), 1e-9)
	})

	t.Run("stranger cannot modify the building", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/v1/buildings/%d", buildingID), tenantToken, gin.H{
			"county": "Mombasa",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "user profile is not linked to the building", decodeBody(t, rec)["error"])
	})

	t.Run("owner links the tenant", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/v1/buildings/%d/users", buildingID), ownerToken, gin.H{
			"user_id":      tenantID,
			"relationship": "tenant",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t,
			fmt.Sprintf("profile with user id %d successfully added to building id %d", tenantID, buildingID),
			decodeBody(t, rec)["message"])
	})

	t.Run("tenant still cannot modify, different reason", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/v1/buildings/%d", buildingID), tenantToken, gin.H{
			"county": "Mombasa",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "user does not have permission to modify this building", decodeBody(t, rec)["error"])
	})

	t.Run("tenant cannot author a notice", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/api/v1/notices", tenantToken, gin.H{
			"owner":    tenantID,
			"building": buildingID,
			"notice":   "posing as an owner",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "cannot create notice if not owner", decodeBody(t, rec)["error"])
	})

	t.Run("owner cannot comment", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/api/v1/comments", ownerToken, gin.H{
			"tenant":   ownerID,
			"building": buildingID,
			"comment":  "posing as a tenant",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "cannot comment if not tenant", decodeBody(t, rec)["error"])
	})

	var noticeID uint
	t.Run("owner posts a notice", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/api/v1/notices", ownerToken, gin.H{
			"owner":    ownerID,
			"building": buildingID,
			"notice":   "water off on Friday",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		noticeID = uint(decodeBody(t, rec)["id"].(float64))
	})

	t.Run("tenant posts a comment", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/api/v1/comments", tenantToken, gin.H{
			"tenant":   tenantID,
			"building": buildingID,
			"comment":  "gate lock is broken",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("owner edits the notice body", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/v1/notices/%d", noticeID), ownerToken, gin.H{
			"notice": "water off on Saturday instead",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "water off on Saturday instead", decodeBody(t, rec)["notice"])

		rec = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/notices/%d", noticeID), ownerToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "water off on Saturday instead", decodeBody(t, rec)["notice"])
	})

	t.Run("notice references are immutable", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/v1/notices/%d", noticeID), ownerToken, gin.H{
			"building": buildingID + 1,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "cannot change building", decodeBody(t, rec)["error"])
	})

	t.Run("unresolved notice blocks deletion", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/buildings/%d", buildingID), ownerToken, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "building has an unresolved notice", decodeBody(t, rec)["error"])
	})

	t.Run("last owner cannot be removed", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodDelete,
			fmt.Sprintf("/api/v1/buildings/%d/users/%d", buildingID, ownerID), ownerToken, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "cannot delete building only owner", decodeBody(t, rec)["error"])
	})

	t.Run("resolved notice unblocks deletion", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/notices/%d", noticeID), ownerToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/buildings/%d", buildingID), ownerToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "successfully deleted", decodeBody(t, rec)["status"])

		rec = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/buildings/%d", buildingID), "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "building does not exist", decodeBody(t, rec)["error"])
	})
}

func TestUserAccessControl(t *testing.T) {
	r := setupAPI(t)

	aliceID, _ := registerAndLogin(t, r, "alice_owner")
	_, bobToken := registerAndLogin(t, r, "bob_tenant")

	t.Run("users cannot read each other", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", aliceID), bobToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "user not authorized to perform this action", decodeBody(t, rec)["error"])
	})

	t.Run("listing is admin only", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/api/v1/users", bobToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "user lacks permission to access this data", decodeBody(t, rec)["error"])
	})
}

func TestProfileAndUserUpdates(t *testing.T) {
	r := setupAPI(t)

	aliceID, aliceToken := registerAndLogin(t, r, "alice_update")
	registerAndLogin(t, r, "bob_update")

	t.Run("profile update persists", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/v1/users/%d/profile", aliceID), aliceToken, gin.H{
			"phone": "0712345678",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/users/%d/profile", aliceID), aliceToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		user := decodeBody(t, rec)["user"].(map[string]interface{})
		profile := user["profile"].(map[string]interface{})
		assert.Equal(t, "0712345678", profile["phone"])
	})

	t.Run("username collision is rejected", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/v1/users/%d", aliceID), aliceToken, gin.H{
			"username": "bob_update",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "username already exists", decodeBody(t, rec)["error"])
	})

	t.Run("username change persists", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/v1/users/%d", aliceID), aliceToken, gin.H{
			"username": "alice_renamed",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", aliceID), aliceToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "alice_renamed", decodeBody(t, rec)["username"])
	})

	t.Run("empty update is rejected", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/v1/users/%d", aliceID), aliceToken, gin.H{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "no valid fields to update", decodeBody(t, rec)["error"])
	})
}

func TestBuildingFeed(t *testing.T) {
	r := setupAPI(t)

	ownerID, ownerToken := registerAndLogin(t, r, "feeder")
	buildingID := createBuilding(t, r, ownerToken, ownerID)

	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + fmt.Sprintf("/api/v1/buildings/%d/feed", buildingID)
	header := http.Header{
		"Authorization": {"Bearer " + ownerToken},
		"Origin":        {"http://localhost:3000"},
	}

	baseline := runtime.NumGoroutine()

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}

	var hello map[string]string
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "connected", hello["type"])

	rec := doJSON(t, r, http.MethodPost, "/api/v1/notices", ownerToken, gin.H{
		"owner":    ownerID,
		"building": buildingID,
		"notice":   "pool closed for maintenance",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event map[string]interface{}
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "notice", event["type"])

	require.NoError(t, conn.Close())

	// Disconnecting tears down both the handler and its ping
	// goroutine; the count settles back near the baseline.
	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= baseline+2
	}, 5*time.Second, 50*time.Millisecond)
}

func TestBuildingListModes(t *testing.T) {
	r := setupAPI(t)

	ownerID, ownerToken := registerAndLogin(t, r, "lister")
	for i := 0; i < 7; i++ {
		createBuilding(t, r, ownerToken, ownerID)
	}

	t.Run("paginated envelope", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/api/v1/buildings", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Len(t, body["results"], 5)
		require.NotNil(t, body["next"])
		assert.Contains(t, body["next"].(string), "page=2")
		assert.Nil(t, body["previous"])
	})

	t.Run("page past the end", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/api/v1/buildings?page=5", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "invalid page", decodeBody(t, rec)["error"])
	})

	t.Run("geojson bulk mode", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/api/v1/buildings?geojson=true", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var collection struct {
			Type     string `json:"type"`
			Features []struct {
				Type       string                 `json:"type"`
				Properties map[string]interface{} `json:"properties"`
			} `json:"features"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &collection))
		assert.Equal(t, "FeatureCollection", collection.Type)
		assert.Len(t, collection.Features, 7)
		assert.Equal(t, "Nairobi", collection.Features[0].Properties["county"])
	})
}
