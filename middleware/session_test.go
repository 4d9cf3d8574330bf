package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gatsishub/gatsishub-api/config"
	"github.com/gatsishub/gatsishub-api/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSessionDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err, "Failed to connect to test database")
	require.NoError(t, db.AutoMigrate(&models.User{}))

	config.SetDB(db)
	t.Cleanup(func() { config.SetDB(nil) })
	return db
}

func sessionRouter(auth0ID string, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	handlers := []gin.HandlerFunc{func(c *gin.Context) {
		if auth0ID != "" {
			c.Set("user_id", auth0ID)
		}
		c.Next()
	}, LoadCurrentUser()}
	handlers = append(handlers, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": user.ID, "role": user.Role})
	})

	router.GET("/whoami", handlers...)
	return router
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestLoadCurrentUser(t *testing.T) {
	db := setupSessionDB(t)
	customer := models.User{Auth0ID: "auth0|customer", Name: "Acme", Email: "acme@example.com", Role: models.RoleCustomer}
	require.NoError(t, db.Create(&customer).Error)

	t.Run("resolves the account once", func(t *testing.T) {
		w := httptest.NewRecorder()
		sessionRouter(customer.Auth0ID).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, float64(customer.ID), body["id"])
		assert.Equal(t, models.RoleCustomer, body["role"])
	})

	t.Run("unknown principal", func(t *testing.T) {
		w := httptest.NewRecorder()
		sessionRouter("auth0|nobody").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "USER_NOT_FOUND", errorCode(t, w))
	})

	t.Run("no principal", func(t *testing.T) {
		w := httptest.NewRecorder()
		sessionRouter("").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	db := setupSessionDB(t)
	customer := models.User{Auth0ID: "auth0|customer", Name: "Acme", Email: "acme@example.com", Role: models.RoleCustomer}
	admin := models.User{Auth0ID: "auth0|admin", Name: "Ops", Email: "ops@gatsishub.com", Role: models.RoleAdmin}
	require.NoError(t, db.Create(&customer).Error)
	require.NoError(t, db.Create(&admin).Error)

	tests := []struct {
		name       string
		auth0ID    string
		roles      []string
		wantStatus int
	}{
		{"admin passes admin gate", admin.Auth0ID, []string{models.RoleAdmin}, http.StatusOK},
		{"customer blocked by admin gate", customer.Auth0ID, []string{models.RoleAdmin}, http.StatusForbidden},
		{"customer passes customer gate", customer.Auth0ID, []string{models.RoleCustomer}, http.StatusOK},
		{"any listed role passes", admin.Auth0ID, []string{models.RoleCustomer, models.RoleAdmin}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			sessionRouter(tt.auth0ID, RequireRole(tt.roles...)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusForbidden {
				assert.Equal(t, "FORBIDDEN", errorCode(t, w))
			}
		})
	}
}

func TestRequireRole_WithoutSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	RequireRole(models.RoleAdmin)(c)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSetCurrentUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := CurrentUser(c)
	assert.False(t, ok)

	SetCurrentUser(c, &models.User{ID: 7, Role: models.RoleAdmin})
	user, ok := CurrentUser(c)
	require.True(t, ok)
	assert.Equal(t, uint(7), user.ID)
}
