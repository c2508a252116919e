package middleware

import (
	"net/http"
	"net/http/httptest"
	"peak_pulse/internal/db"
	"peak_pulse/internal/domain"
	"peak_pulse/internal/utils"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

// whoAmI echoes what the middleware put in the context
func whoAmI(c *gin.Context) {
	id, _ := c.Get("userID")
	role, _ := c.Get("role")
	c.JSON(http.StatusOK, gin.H{"user_id": id, "role": role})
}

func request(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/", JWTAuthMiddleware(testSecret), whoAmI)

	w := request(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = request(r, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := utils.GenerateJWT(7, domain.RoleEditor, testSecret, time.Hour)
	require.NoError(t, err)
	w = request(r, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7,"role":"editor"}`, w.Body.String())
}

func TestOptionalAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/", OptionalAuthMiddleware(testSecret), whoAmI)

	w := request(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":null,"role":null}`, w.Body.String())

	token, err := utils.GenerateJWT(3, domain.RoleUser, testSecret, time.Hour)
	require.NoError(t, err)
	w = request(r, token)
	assert.JSONEq(t, `{"user_id":3,"role":"user"}`, w.Body.String())
}

func TestRequireRole_ReadsRoleFromDatabase(t *testing.T) {
	database := db.NewTestDB(t)
	user := domain.User{Email: "staff@peakpulse.com", Password: "x", FullName: "Staff", Role: domain.RoleUser}
	require.NoError(t, database.Create(&user).Error)

	r := gin.New()
	r.GET("/", JWTAuthMiddleware(testSecret), AdminOnlyMiddleware(database), whoAmI)

	// The token claims admin but the account is a plain user
	token, err := utils.GenerateJWT(user.ID, domain.RoleAdmin, testSecret, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, request(r, token).Code)

	require.NoError(t, database.Model(&user).Update("role", domain.RoleAdmin).Error)
	w := request(r, token)
	assert.Equal(t, http.StatusOK, w.Code)

	// Unknown accounts are refused
	ghost, err := utils.GenerateJWT(user.ID+100, domain.RoleAdmin, testSecret, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, request(r, ghost).Code)
}

func TestStaffMiddleware_AllowsEditors(t *testing.T) {
	database := db.NewTestDB(t)
	editor := domain.User{Email: "editor@peakpulse.com", Password: "x", FullName: "Ed", Role: domain.RoleEditor}
	require.NoError(t, database.Create(&editor).Error)

	r := gin.New()
	r.GET("/", JWTAuthMiddleware(testSecret), StaffMiddleware(database), whoAmI)
	token, err := utils.GenerateJWT(editor.ID, domain.RoleEditor, testSecret, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, request(r, token).Code)

	r = gin.New()
	r.GET("/", JWTAuthMiddleware(testSecret), AdminOnlyMiddleware(database), whoAmI)
	assert.Equal(t, http.StatusForbidden, request(r, token).Code)
}

func TestIPRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(0.001, 2)
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.2"), "clients have separate buckets")

	r := gin.New()
	r.GET("/", NewIPRateLimiter(0.001, 1).Middleware(), whoAmI)
	assert.Equal(t, http.StatusOK, request(r, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, request(r, "").Code)
}

func TestRequestLogger_AssignsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/", func(c *gin.Context) {
		id, _ := c.Get("requestID")
		c.String(http.StatusOK, id.(string))
	})

	w := request(r, "")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}
