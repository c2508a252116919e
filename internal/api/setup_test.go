package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"peak_pulse/internal/db"
	"peak_pulse/internal/domain"
	"peak_pulse/internal/events"
	"peak_pulse/internal/notify"
	"peak_pulse/internal/utils"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testSecret = "api-test-secret-0123456789"

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// obj is a JSON object literal
type obj = map[string]any

type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	pub    *recordingPublisher
}

// newTestEnv builds the full router over a seeded in-memory database
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database := db.NewTestDB(t)
	require.NoError(t, db.Seed(database))

	pub := &recordingPublisher{}
	r := gin.New()
	SetupRoutes(r, Deps{
		DB:        database,
		Events:    pub,
		Mailer:    notify.NopMailer{},
		JWTSecret: testSecret,
		TokenTTL:  time.Hour,
		Shipping:  domain.ShippingPolicy{FreeThreshold: 5000, FlatFee: 150},
	})
	return &testEnv{t: t, db: database, router: r, pub: pub}
}

// user creates an account with the given role and returns it with a token
func (e *testEnv) user(email, role string) (domain.User, string) {
	e.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(e.t, err)
	u := domain.User{Email: email, Password: string(hash), FullName: "Test " + role, Role: role}
	require.NoError(e.t, e.db.Create(&u).Error)
	token, err := utils.GenerateJWT(u.ID, u.Role, testSecret, time.Hour)
	require.NoError(e.t, err)
	return u, token
}

// product stores an active product
func (e *testEnv) product(name string, price float64, stock int, sizes string) domain.Product {
	e.t.Helper()
	p := domain.Product{
		Name:     name,
		Slug:     utils.Slugify(name),
		Price:    price,
		Stock:    stock,
		Sizes:    sizes,
		IsActive: true,
	}
	require.NoError(e.t, e.db.Create(&p).Error)
	return p
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// decode unmarshals the response body into v
func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func stockOf(t *testing.T, database *gorm.DB, id uint) int {
	t.Helper()
	var p domain.Product
	require.NoError(t, database.First(&p, id).Error)
	return p.Stock
}
