package api

import (
	"net/http"
	"peak_pulse/internal/domain"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type productPage struct {
	Products []domain.Product `json:"products"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

func names(products []domain.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Name
	}
	return out
}

// seedCatalog stores two active products and one hidden one
func seedCatalog(t *testing.T, env *testEnv) (hoodie, tee domain.Product) {
	var men domain.Category
	require.NoError(t, env.db.Where("slug = ?", "men").First(&men).Error)

	hoodie = env.product("Summit Hoodie", 3000, 10, "S,M,L")
	require.NoError(t, env.db.Model(&hoodie).Updates(map[string]any{
		"category_id": men.ID, "description": "Heavy fleece hoodie", "is_featured": true,
	}).Error)

	tee = env.product("Ridge Tee", 1200, 20, "M,XL")
	require.NoError(t, env.db.Model(&tee).Update("sale_price", 900.0).Error)

	hat := env.product("Trail Cap", 500, 5, "")
	require.NoError(t, env.db.Model(&hat).Update("is_active", false).Error)
	return hoodie, tee
}

func TestListProducts_Filters(t *testing.T) {
	env := newTestEnv(t)
	seedCatalog(t, env)

	cases := []struct {
		query string
		want  []string
	}{
		{"", []string{"Ridge Tee", "Summit Hoodie"}},
		{"?sort=price_asc", []string{"Ridge Tee", "Summit Hoodie"}},
		{"?sort=price_desc", []string{"Summit Hoodie", "Ridge Tee"}},
		{"?sort=name", []string{"Ridge Tee", "Summit Hoodie"}},
		{"?min_price=1000", []string{"Summit Hoodie"}},
		{"?max_price=1000", []string{"Ridge Tee"}},
		{"?size=xl", []string{"Ridge Tee"}},
		{"?size=L", []string{"Summit Hoodie"}},
		{"?q=FLEECE", []string{"Summit Hoodie"}},
		{"?category=men", []string{"Summit Hoodie"}},
		{"?featured=true", []string{"Summit Hoodie"}},
		{"?q=cap", []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			w := env.do(http.MethodGet, "/api/products"+tc.query, "", nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var page productPage
			decode(t, w, &page)
			if tc.query == "" {
				assert.ElementsMatch(t, tc.want, names(page.Products))
			} else {
				assert.Equal(t, tc.want, names(page.Products))
			}
			assert.Equal(t, int64(len(tc.want)), page.Total)
		})
	}
}

func TestListProducts_Pagination(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 5; i++ {
		env.product("Beanie "+strconv.Itoa(i), 400, 3, "")
	}
	w := env.do(http.MethodGet, "/api/products?page=2&page_size=2&sort=name", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page productPage
	decode(t, w, &page)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, []string{"Beanie 2", "Beanie 3"}, names(page.Products))
}

func TestCategoryProductsAndDetail(t *testing.T) {
	env := newTestEnv(t)
	seedCatalog(t, env)

	w := env.do(http.MethodGet, "/api/categories/men/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page productPage
	decode(t, w, &page)
	assert.Equal(t, []string{"Summit Hoodie"}, names(page.Products))

	w = env.do(http.MethodGet, "/api/products/summit-hoodie", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"slug":"men"`)

	w = env.do(http.MethodGet, "/api/products/trail-cap", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/api/categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "outerwear")
}

func TestAdminProductLifecycle(t *testing.T) {
	env := newTestEnv(t)
	_, customer := env.user("shopper@example.com", domain.RoleUser)
	_, editor := env.user("editor@example.com", domain.RoleEditor)

	body := obj{"name": "Glacier Jacket", "price": 8500, "stock": 4, "sizes": []string{"M", "L"}, "description": "Insulated shell. Packs small."}
	w := env.do(http.MethodPost, "/api/admin/products", customer, body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodPost, "/api/admin/products", editor, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Product domain.Product `json:"product"`
	}
	decode(t, w, &created)
	assert.Equal(t, "glacier-jacket", created.Product.Slug)
	assert.Equal(t, "M,L", created.Product.Sizes)
	assert.True(t, created.Product.IsActive)

	// A second product with the same name gets a fresh slug, an explicit clash is refused
	w = env.do(http.MethodPost, "/api/admin/products", editor, body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"slug":"glacier-jacket-2"`)
	body["slug"] = "glacier-jacket"
	w = env.do(http.MethodPost, "/api/admin/products", editor, body)
	assert.Equal(t, http.StatusConflict, w.Code)

	path := "/api/admin/products/" + strconv.Itoa(int(created.Product.ID))
	w = env.do(http.MethodPatch, path+"/stock", editor, obj{"delta": -10})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = env.do(http.MethodPatch, path+"/stock", editor, obj{"delta": 6})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, stockOf(t, env.db, created.Product.ID))

	w = env.do(http.MethodPost, path+"/summary", editor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Insulated shell. Packs small.")

	// Deleting is reserved to admins
	w = env.do(http.MethodDelete, path, editor, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	_, admin := env.user("admin@example.com", domain.RoleAdmin)
	w = env.do(http.MethodDelete, path, admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodGet, "/api/products/glacier-jacket", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteCategory_RefusedWhileInUse(t *testing.T) {
	env := newTestEnv(t)
	seedCatalog(t, env)
	_, admin := env.user("admin@example.com", domain.RoleAdmin)

	var men, women domain.Category
	require.NoError(t, env.db.Where("slug = ?", "men").First(&men).Error)
	require.NoError(t, env.db.Where("slug = ?", "women").First(&women).Error)

	w := env.do(http.MethodDelete, "/api/admin/categories/"+strconv.Itoa(int(men.ID)), admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(http.MethodDelete, "/api/admin/categories/"+strconv.Itoa(int(women.ID)), admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
