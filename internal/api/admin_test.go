package api

import (
	"fmt"
	"net/http"
	"peak_pulse/internal/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachePrefixes_CoverAdminUsers(t *testing.T) {
	assert.Contains(t, signupCachePrefixes, cacheUsers, "new accounts appear in the user list")
	assert.Contains(t, signupCachePrefixes, cacheDashboard, "new accounts change the customer count")
	assert.Contains(t, orderCachePrefixes, cacheUsers, "order totals are listed per user")
	assert.Contains(t, orderCachePrefixes, cacheCatalog, "checkout and cancellation move stock")
	assert.Contains(t, orderCachePrefixes, cacheDashboard)
}

func TestAdminUsers(t *testing.T) {
	env := newTestEnv(t)
	admin, adminToken := env.user("admin@example.com", domain.RoleAdmin)
	buyer, buyerToken := env.user("buyer@example.com", domain.RoleUser)
	env.user("quiet@example.com", domain.RoleUser)
	hoodie := env.product("Summit Hoodie", 3000, 10, "M")
	checkout(t, env, buyerToken, hoodie.ID, 1, nil)
	cancelled := checkout(t, env, buyerToken, hoodie.ID, 1, nil)
	w := env.do(http.MethodPost, "/api/orders/"+cancelled.Number+"/cancel", buyerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/api/admin/users", buyerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodGet, "/api/admin/users?q=BUYER", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	var list struct {
		Users []UserAdminResponse `json:"users"`
		Total int64               `json:"total"`
	}
	decode(t, w, &list)
	require.Len(t, list.Users, 1)
	assert.Equal(t, buyer.ID, list.Users[0].ID)
	assert.Equal(t, int64(1), list.Users[0].OrderCount, "cancelled orders are excluded")
	assert.Equal(t, 3150.0, list.Users[0].TotalSpent)

	w = env.do(http.MethodGet, "/api/admin/users?role=user", adminToken, nil)
	decode(t, w, &list)
	assert.Equal(t, int64(2), list.Total)

	rolePath := fmt.Sprintf("/api/admin/users/%d/role", buyer.ID)
	w = env.do(http.MethodPatch, rolePath, adminToken, obj{"role": "owner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(http.MethodPatch, fmt.Sprintf("/api/admin/users/%d/role", admin.ID), adminToken, obj{"role": "user"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "admins cannot demote themselves")
	w = env.do(http.MethodPatch, "/api/admin/users/999/role", adminToken, obj{"role": "editor"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPatch, rolePath, adminToken, obj{"role": "editor"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"editor"`)

	// The promotion takes effect on the next request with the same token
	w = env.do(http.MethodGet, "/api/admin/promos", buyerToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.user("admin@example.com", domain.RoleAdmin)
	_, buyerToken := env.user("buyer@example.com", domain.RoleUser)
	tee := env.product("Ridge Tee", 1200, 10, "")

	w := env.do(http.MethodGet, "/api/settings", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"shipping.flat_fee":"150"`)

	w = env.do(http.MethodPut, "/api/admin/settings", adminToken, obj{
		"shipping.flat_fee":  "200",
		"site.tagline":       "Gear for the hills",
		"ops.restock_vendor": "Himal Textiles",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "ops.restock_vendor")

	w = env.do(http.MethodGet, "/api/settings", "", nil)
	var public struct {
		Settings map[string]string `json:"settings"`
	}
	decode(t, w, &public)
	assert.Equal(t, "200", public.Settings[domain.SettingFlatShippingFee])
	assert.Equal(t, "Gear for the hills", public.Settings["site.tagline"])
	assert.NotContains(t, public.Settings, "ops.restock_vendor", "only storefront keys are public")

	w = env.do(http.MethodPut, "/api/admin/settings", adminToken, []string{"nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(http.MethodPut, "/api/admin/settings", buyerToken, obj{"site.name": "Mine"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Checkout prices shipping from the stored settings
	w = env.do(http.MethodPost, "/api/cart", buyerToken, obj{"product_id": tee.ID})
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodGet, "/api/cart", buyerToken, nil)
	var cart struct {
		Totals domain.CartTotals `json:"totals"`
	}
	decode(t, w, &cart)
	assert.Equal(t, 200.0, cart.Totals.ShippingFee)
	assert.Equal(t, 1400.0, cart.Totals.Total)
}

func TestSettings_ScalarValues(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.user("admin@example.com", domain.RoleAdmin)
	_, buyerToken := env.user("buyer@example.com", domain.RoleUser)
	tee := env.product("Ridge Tee", 1200, 10, "M")

	w := env.do(http.MethodPut, "/api/admin/settings", adminToken, obj{
		domain.SettingFlatShippingFee: 200,
		"shipping.express_fee":        12.5,
		"site.maintenance":            false,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var saved struct {
		Settings map[string]string `json:"settings"`
	}
	decode(t, w, &saved)
	assert.Equal(t, "200", saved.Settings[domain.SettingFlatShippingFee])
	assert.Equal(t, "12.5", saved.Settings["shipping.express_fee"])
	assert.Equal(t, "false", saved.Settings["site.maintenance"])

	for _, bad := range []any{nil, obj{"amount": 1}, []int{1, 2}} {
		w = env.do(http.MethodPut, "/api/admin/settings", adminToken, obj{"site.tagline": bad})
		assert.Equal(t, http.StatusBadRequest, w.Code, "%v", bad)
	}

	addLine(t, env, buyerToken, tee.ID, 1)
	cart := fetchCart(t, env, buyerToken)
	assert.Equal(t, 200.0, cart.Totals.ShippingFee)
	assert.Equal(t, 1400.0, cart.Totals.Total)
}

func TestPaymentGateways(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.user("admin@example.com", domain.RoleAdmin)

	w := env.do(http.MethodGet, "/api/payment-gateways", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var public struct {
		Gateways []PublicGateway `json:"gateways"`
	}
	decode(t, w, &public)
	require.Len(t, public.Gateways, 1)
	assert.Equal(t, domain.PaymentCOD, public.Gateways[0].Code)

	w = env.do(http.MethodPost, "/api/admin/payment-gateways", adminToken, obj{"name": "Cash"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(http.MethodPost, "/api/admin/payment-gateways", adminToken, obj{"name": "Cash", "code": "cod"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(http.MethodPost, "/api/admin/payment-gateways", adminToken, obj{
		"name":       "IME Pay",
		"code":       "imepay",
		"enabled":    true,
		"secret_key": "s3cr3t",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "s3cr3t")
	assert.Contains(t, w.Body.String(), `"has_secret":true`)

	var khalti domain.PaymentGateway
	require.NoError(t, env.db.Where("code = ?", "khalti").First(&khalti).Error)
	w = env.do(http.MethodPut, fmt.Sprintf("/api/admin/payment-gateways/%d", khalti.ID), adminToken, obj{"enabled": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodGet, "/api/payment-gateways", "", nil)
	decode(t, w, &public)
	codes := make([]string, len(public.Gateways))
	for i, g := range public.Gateways {
		codes[i] = g.Code
	}
	assert.ElementsMatch(t, []string{"cod", "khalti", "imepay"}, codes)
	assert.NotContains(t, w.Body.String(), "s3cr3t")

	// Enabled gateways are accepted at checkout
	_, buyerToken := env.user("buyer@example.com", domain.RoleUser)
	hoodie := env.product("Summit Hoodie", 3000, 10, "M")
	order := checkout(t, env, buyerToken, hoodie.ID, 1, obj{"payment_method": "khalti"})
	assert.Equal(t, domain.PaymentPending, order.PaymentStatus)

	w = env.do(http.MethodDelete, fmt.Sprintf("/api/admin/payment-gateways/%d", khalti.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodDelete, fmt.Sprintf("/api/admin/payment-gateways/%d", khalti.ID), adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLoans(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.user("admin@example.com", domain.RoleAdmin)
	_, editorToken := env.user("editor@example.com", domain.RoleEditor)

	w := env.do(http.MethodGet, "/api/admin/loans", editorToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "loans are admin only")

	w = env.do(http.MethodPost, "/api/admin/loans", adminToken, obj{
		"lender": "Himal Bank", "principal": 100000, "interest_rate": 10,
		"issued_at": "2026-01-01T00:00:00Z", "due_at": "2025-12-01T00:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "due before issue")

	w = env.do(http.MethodPost, "/api/admin/loans", adminToken, obj{
		"lender": "Himal Bank", "principal": 100000, "interest_rate": 10,
		"issued_at": "2026-01-01T00:00:00Z", "due_at": "2027-01-01T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Loan LoanResponse `json:"loan"`
	}
	decode(t, w, &created)
	loan := created.Loan
	assert.Equal(t, domain.LoanActive, loan.Status)
	assert.Equal(t, 10000.0, loan.Balance.Interest)
	assert.Equal(t, 110000.0, loan.Balance.AmountDue)

	// An older loan that is already past due
	w = env.do(http.MethodPost, "/api/admin/loans", adminToken, obj{
		"lender": "Supplier credit", "principal": 5000,
		"issued_at": "2025-01-01T00:00:00Z", "due_at": "2025-06-01T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	repay := fmt.Sprintf("/api/admin/loans/%d/repayments", loan.ID)
	w = env.do(http.MethodPost, repay, adminToken, obj{"amount": 60000})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = env.do(http.MethodPost, repay, adminToken, obj{"amount": 60000})
	assert.Equal(t, http.StatusBadRequest, w.Code, "overpayment")
	w = env.do(http.MethodPost, repay, adminToken, obj{"amount": -5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPut, fmt.Sprintf("/api/admin/loans/%d", loan.ID), adminToken, obj{
		"lender": "Himal Bank", "principal": 50000,
		"issued_at": "2026-01-01T00:00:00Z", "due_at": "2027-01-01T00:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "terms below the amount repaid")

	w = env.do(http.MethodGet, "/api/admin/loans/summary", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary struct {
		Summary LoanSummary `json:"summary"`
	}
	decode(t, w, &summary)
	assert.Equal(t, LoanSummary{
		Loans:            2,
		TotalPrincipal:   105000,
		TotalRepaid:      60000,
		TotalOutstanding: 55000,
		OverdueCount:     1,
	}, summary.Summary)

	w = env.do(http.MethodPost, repay, adminToken, obj{"amount": 50000, "note": "Final"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var repaid struct {
		Loan LoanResponse `json:"loan"`
	}
	decode(t, w, &repaid)
	assert.Equal(t, domain.LoanSettled, repaid.Loan.Status)
	assert.Zero(t, repaid.Loan.Balance.Outstanding)

	w = env.do(http.MethodGet, fmt.Sprintf("/api/admin/loans/%d", loan.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fetched struct {
		Loan LoanResponse `json:"loan"`
	}
	decode(t, w, &fetched)
	assert.Len(t, fetched.Loan.Repayments, 2)

	w = env.do(http.MethodDelete, fmt.Sprintf("/api/admin/loans/%d", loan.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var repayments int64
	require.NoError(t, env.db.Model(&domain.LoanRepayment{}).Where("loan_id = ?", loan.ID).Count(&repayments).Error)
	assert.Zero(t, repayments)
}

func TestPromosAndCollabs(t *testing.T) {
	env := newTestEnv(t)
	_, editorToken := env.user("editor@example.com", domain.RoleEditor)
	_, buyerToken := env.user("buyer@example.com", domain.RoleUser)
	now := time.Now().UTC()

	w := env.do(http.MethodPost, "/api/admin/promos", buyerToken, obj{"title": "x", "placement": "home_hero"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodPost, "/api/admin/promos", editorToken, obj{
		"title": "Broken", "placement": "home_hero",
		"starts_at": now.Format(time.RFC3339), "ends_at": now.Add(-time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	promos := []obj{
		{"title": "Dashain Sale", "placement": "home_hero", "starts_at": now.Add(-time.Hour).Format(time.RFC3339), "ends_at": now.Add(time.Hour).Format(time.RFC3339)},
		{"title": "Tihar Teaser", "placement": "home_hero", "starts_at": now.Add(24 * time.Hour).Format(time.RFC3339)},
		{"title": "Hidden", "placement": "home_strip", "is_active": false},
		{"title": "Always On", "placement": "home_strip"},
	}
	for _, p := range promos {
		w = env.do(http.MethodPost, "/api/admin/promos", editorToken, p)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	titles := func(path string) []string {
		w := env.do(http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Promos []domain.PromoPost `json:"promos"`
		}
		decode(t, w, &resp)
		out := make([]string, len(resp.Promos))
		for i, p := range resp.Promos {
			out[i] = p.Title
		}
		return out
	}
	assert.ElementsMatch(t, []string{"Dashain Sale", "Always On"}, titles("/api/promos"))
	assert.Equal(t, []string{"Always On"}, titles("/api/promos?placement=home_strip"))

	w = env.do(http.MethodGet, "/api/admin/promos", editorToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Hidden")

	w = env.do(http.MethodPost, "/api/admin/collabs", editorToken, obj{"title": "Yeti x Peak", "designer": "Sonam Design"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Collab domain.DesignCollab `json:"collab"`
	}
	decode(t, w, &created)
	assert.Equal(t, "yeti-x-peak", created.Collab.Slug)
	assert.True(t, created.Collab.IsActive)

	w = env.do(http.MethodPut, fmt.Sprintf("/api/admin/collabs/%d", created.Collab.ID), editorToken, obj{
		"title": "Yeti x Peak Pulse", "designer": "Sonam Design",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodGet, "/api/collabs/yeti-x-peak", "", nil)
	require.Equal(t, http.StatusOK, w.Code, "edits keep the published slug")
	assert.Contains(t, w.Body.String(), "Yeti x Peak Pulse")

	w = env.do(http.MethodPut, fmt.Sprintf("/api/admin/collabs/%d", created.Collab.ID), editorToken, obj{
		"title": "Yeti x Peak Pulse", "designer": "Sonam Design", "is_active": false,
	})
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodGet, "/api/collabs/yeti-x-peak", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.user("admin@example.com", domain.RoleAdmin)
	_, buyerToken := env.user("buyer@example.com", domain.RoleUser)
	hoodie := env.product("Summit Hoodie", 3000, 4, "M")
	env.product("Ridge Tee", 1200, 40, "M")

	delivered := checkout(t, env, buyerToken, hoodie.ID, 1, nil)
	for _, status := range []string{"confirmed", "processing", "shipped", "delivered"} {
		w := env.do(http.MethodPatch, "/api/admin/orders/"+delivered.Number+"/status", adminToken, obj{"status": status})
		require.Equal(t, http.StatusOK, w.Code)
	}
	checkout(t, env, buyerToken, hoodie.ID, 1, nil)

	w := env.do(http.MethodGet, "/api/admin/dashboard", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var dash struct {
		Revenue        float64           `json:"revenue"`
		Orders         int64             `json:"orders"`
		OrdersByStatus map[string]int64  `json:"orders_by_status"`
		Customers      int64             `json:"customers"`
		Products       int64             `json:"products"`
		LowStock       []LowStockProduct `json:"low_stock"`
		RecentOrders   []domain.Order    `json:"recent_orders"`
	}
	decode(t, w, &dash)
	assert.Equal(t, 3150.0, dash.Revenue, "only delivered or paid orders count")
	assert.Equal(t, int64(2), dash.Orders)
	assert.Equal(t, int64(1), dash.OrdersByStatus[domain.OrderDelivered])
	assert.Equal(t, int64(1), dash.OrdersByStatus[domain.OrderPending])
	assert.Contains(t, dash.OrdersByStatus, domain.OrderReturned)
	assert.Equal(t, int64(1), dash.Customers)
	assert.Equal(t, int64(2), dash.Products)
	require.Len(t, dash.LowStock, 1)
	assert.Equal(t, hoodie.ID, dash.LowStock[0].ID)
	assert.Equal(t, 2, dash.LowStock[0].Stock)
	assert.Len(t, dash.RecentOrders, 2)

	w = env.do(http.MethodGet, "/api/admin/dashboard?low_stock=50", adminToken, nil)
	decode(t, w, &dash)
	assert.Len(t, dash.LowStock, 2)
}
