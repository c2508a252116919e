package utils

import (
	"context"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT(42, "admin", "secret-for-tests", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret-for-tests")
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestParseJWT_RejectsWrongSecretAndExpiry(t *testing.T) {
	token, err := GenerateJWT(1, "user", "secret-a", time.Hour)
	require.NoError(t, err)
	_, err = ParseJWT(token, "secret-b")
	assert.Error(t, err)

	expired, err := GenerateJWT(1, "user", "secret-a", -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, "secret-a")
	assert.Error(t, err)
}

func TestNilCacheIsNoop(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	var dest map[string]any
	found, err := c.Get(ctx, "k", &dest)
	assert.False(t, found)
	assert.NoError(t, err)
	assert.NoError(t, c.Set(ctx, "k", 1, time.Minute))
	assert.NoError(t, c.Delete(ctx, "k"))
	assert.NoError(t, c.DeletePrefix(ctx, "k"))
	assert.Nil(t, NewCache(nil, time.Minute))
}

func TestParsePage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		query string
		want  Page
	}{
		{"", Page{1, 20}},
		{"?page=3&page_size=50", Page{3, 50}},
		{"?page=0&page_size=1000", Page{1, 20}},
		{"?page=abc", Page{1, 20}},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/"+tc.query, nil)
		assert.Equal(t, tc.want, ParsePage(c), tc.query)
	}

	p := Page{Page: 3, PageSize: 20}
	assert.Equal(t, 40, p.Offset())
	assert.Equal(t, 3, p.TotalPages(41))
	assert.Equal(t, 0, p.TotalPages(0))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "peak-pulse-hoodie", Slugify("  Peak Pulse Hoodie! "))
	assert.Equal(t, "summit-2026-tee", Slugify("Summit -- 2026 / Tee"))
	assert.Equal(t, "", Slugify("!!!"))
}

func TestCodes(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^PP-[0-9A-F]{8}$`), NewOrderNumber())
	assert.Regexp(t, regexp.MustCompile(`^PP[A-Z2-9]{6}$`), NewAffiliateCode())
	assert.NotEqual(t, NewOrderNumber(), NewOrderNumber())
}

func TestSetupLogger_RejectsUnknownLevel(t *testing.T) {
	assert.Error(t, SetupLogger(LogOptions{Level: "loud"}))
	assert.NoError(t, SetupLogger(LogOptions{Level: "debug"}))
}
