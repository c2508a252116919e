package api

import (
	"net/http"
	"net/url"
	"peak_pulse/internal/domain"
	"peak_pulse/internal/events"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type orderResponse struct {
	Order domain.Order `json:"order"`
}

var shippingBody = obj{
	"shipping_name":    "Pemba Sherpa",
	"shipping_phone":   "9800000000",
	"shipping_address": "Lazimpat 12",
	"shipping_city":    "Kathmandu",
	"payment_method":   "cod",
}

func checkoutWith(overrides obj) obj {
	body := obj{}
	for k, v := range shippingBody {
		body[k] = v
	}
	for k, v := range overrides {
		body[k] = v
	}
	return body
}

func TestCartTotals(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user("buyer@example.com", domain.RoleUser)
	tee := env.product("Ridge Tee", 1200, 20, "M,XL")
	require.NoError(t, env.db.Model(&tee).Update("sale_price", 900.0).Error)

	w := env.do(http.MethodPost, "/api/cart", token, obj{"product_id": tee.ID, "size": "xl", "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	// The same line merges
	w = env.do(http.MethodPost, "/api/cart", token, obj{"product_id": tee.ID, "size": "XL"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/api/cart", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cart struct {
		Items  []domain.CartItem `json:"items"`
		Totals domain.CartTotals `json:"totals"`
	}
	decode(t, w, &cart)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "XL", cart.Items[0].Size)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, domain.CartTotals{ItemCount: 3, Subtotal: 2700, Discount: 900, ShippingFee: 150, Total: 2850}, cart.Totals)
}

func TestAddToCart_Rejections(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user("buyer@example.com", domain.RoleUser)
	hoodie := env.product("Summit Hoodie", 3000, 2, "S,M,L")

	w := env.do(http.MethodPost, "/api/cart", token, obj{"product_id": hoodie.ID, "size": "XXL"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/cart", token, obj{"product_id": hoodie.ID, "size": "M", "quantity": 3})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"available":2`)

	w = env.do(http.MethodPost, "/api/cart", token, obj{"product_id": 9999, "size": "M"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, env.db.Model(&hoodie).Update("is_active", false).Error)
	w = env.do(http.MethodPost, "/api/cart", token, obj{"product_id": hoodie.ID, "size": "M"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCheckout_PlacesOrderAndDecrementsStock(t *testing.T) {
	env := newTestEnv(t)
	buyer, token := env.user("buyer@example.com", domain.RoleUser)
	hoodie := env.product("Summit Hoodie", 3000, 5, "S,M,L")

	w := env.do(http.MethodPost, "/api/cart", token, obj{"product_id": hoodie.ID, "size": "M", "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/api/orders", token, checkoutWith(obj{"note": "Leave at the gate"}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var placed orderResponse
	decode(t, w, &placed)
	order := placed.Order
	assert.Regexp(t, `^PP-[0-9A-F]{8}$`, order.Number)
	assert.Equal(t, buyer.ID, order.UserID)
	assert.Equal(t, domain.OrderPending, order.Status)
	assert.Equal(t, domain.PaymentUnpaid, order.PaymentStatus)
	assert.Equal(t, 6000.0, order.Subtotal)
	assert.Equal(t, 0.0, order.ShippingFee, "above the free shipping threshold")
	assert.Equal(t, 6000.0, order.Total)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Summit Hoodie", order.Items[0].Name)
	assert.Equal(t, 3000.0, order.Items[0].UnitPrice)

	assert.Equal(t, 3, stockOf(t, env.db, hoodie.ID))

	var cartLines int64
	require.NoError(t, env.db.Model(&domain.CartItem{}).Where("user_id = ?", buyer.ID).Count(&cartLines).Error)
	assert.Zero(t, cartLines)

	assert.Eventually(t, func() bool {
		types := env.pub.types()
		return len(types) == 1 && types[0] == events.OrderPlaced
	}, time.Second, 10*time.Millisecond)

	// Price changes do not touch the snapshot
	require.NoError(t, env.db.Model(&hoodie).Update("price", 9999.0).Error)
	w = env.do(http.MethodGet, "/api/orders/"+order.Number, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fetched orderResponse
	decode(t, w, &fetched)
	assert.Equal(t, 3000.0, fetched.Order.Items[0].UnitPrice)

	w = env.do(http.MethodGet, "/api/orders", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), order.Number)
	assert.Contains(t, w.Body.String(), `"total":1`)
}

func TestCheckout_Failures(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user("buyer@example.com", domain.RoleUser)
	hoodie := env.product("Summit Hoodie", 3000, 2, "M")

	w := env.do(http.MethodPost, "/api/orders", token, shippingBody)
	assert.Equal(t, http.StatusConflict, w.Code, "empty cart")

	w = env.do(http.MethodPost, "/api/cart", token, obj{"product_id": hoodie.ID, "size": "M", "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/api/orders", token, checkoutWith(obj{"payment_method": "esewa"}))
	assert.Equal(t, http.StatusBadRequest, w.Code, "seeded esewa gateway is disabled")
	w = env.do(http.MethodPost, "/api/orders", token, checkoutWith(obj{"payment_method": "bitcoin"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Someone else bought the stock meanwhile
	require.NoError(t, env.db.Model(&hoodie).Update("stock", 1).Error)
	w = env.do(http.MethodPost, "/api/orders", token, shippingBody)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Summit Hoodie")

	// Nothing was written
	assert.Equal(t, 1, stockOf(t, env.db, hoodie.ID))
	var orders int64
	require.NoError(t, env.db.Model(&domain.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
	var lines int64
	require.NoError(t, env.db.Model(&domain.CartItem{}).Count(&lines).Error)
	assert.Equal(t, int64(1), lines)
}

func TestCheckout_CartBecomesOneOrder(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user("buyer@example.com", domain.RoleUser)
	hoodie := env.product("Summit Hoodie", 3000, 10, "M")
	checkout(t, env, token, hoodie.ID, 2, nil)

	w := env.do(http.MethodPost, "/api/orders", token, shippingBody)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), domain.ErrEmptyCart.Error())

	var orders int64
	require.NoError(t, env.db.Model(&domain.Order{}).Count(&orders).Error)
	assert.Equal(t, int64(1), orders)
	assert.Equal(t, 8, stockOf(t, env.db, hoodie.ID))
}

func TestCheckout_BacksOutWhenCartClaimedElsewhere(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user("buyer@example.com", domain.RoleUser)
	hoodie := env.product("Summit Hoodie", 3000, 5, "M")
	tee := env.product("Ridge Tee", 1200, 5, "M")
	addLine(t, env, token, hoodie.ID, 1)
	addLine(t, env, token, tee.ID, 1)

	// A competing checkout takes the tee line after this one has read the cart
	taken := false
	err := env.db.Callback().Delete().Before("gorm:delete").Register("test:take_cart_line", func(tx *gorm.DB) {
		if taken || tx.Statement.Table != "cart_items" {
			return
		}
		taken = true
		tx.Session(&gorm.Session{NewDB: true}).Exec("DELETE FROM cart_items WHERE product_id = ?", tee.ID)
	})
	require.NoError(t, err)

	w := env.do(http.MethodPost, "/api/orders", token, shippingBody)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.True(t, taken)

	// The whole checkout rolled back
	var orders int64
	require.NoError(t, env.db.Model(&domain.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
	assert.Equal(t, 5, stockOf(t, env.db, hoodie.ID))
	assert.Equal(t, 5, stockOf(t, env.db, tee.ID))
}

func checkout(t *testing.T, env *testEnv, token string, productID uint, qty int, extra obj) domain.Order {
	t.Helper()
	w := env.do(http.MethodPost, "/api/cart", token, obj{"product_id": productID, "size": "M", "quantity": qty})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = env.do(http.MethodPost, "/api/orders", token, checkoutWith(extra))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var placed orderResponse
	decode(t, w, &placed)
	return placed.Order
}

func TestCancelOrder_Restocks(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user("buyer@example.com", domain.RoleUser)
	_, other := env.user("other@example.com", domain.RoleUser)
	hoodie := env.product("Summit Hoodie", 3000, 5, "M")
	order := checkout(t, env, token, hoodie.ID, 2, nil)
	require.Equal(t, 3, stockOf(t, env.db, hoodie.ID))

	w := env.do(http.MethodPost, "/api/orders/"+order.Number+"/cancel", other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "orders are private")

	w = env.do(http.MethodPost, "/api/orders/"+order.Number+"/cancel", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 5, stockOf(t, env.db, hoodie.ID))

	w = env.do(http.MethodPost, "/api/orders/"+order.Number+"/cancel", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 5, stockOf(t, env.db, hoodie.ID), "no double restock")
}

func TestAdminOrderWorkflow(t *testing.T) {
	env := newTestEnv(t)
	buyer, token := env.user("buyer@example.com", domain.RoleUser)
	_, admin := env.user("admin@example.com", domain.RoleAdmin)
	hoodie := env.product("Summit Hoodie", 3000, 5, "M")
	order := checkout(t, env, token, hoodie.ID, 1, nil)
	path := "/api/admin/orders/" + order.Number

	w := env.do(http.MethodPatch, path+"/status", token, obj{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodPatch, path+"/status", admin, obj{"status": "shipped"})
	assert.Equal(t, http.StatusConflict, w.Code, "pending cannot skip to shipped")

	for _, status := range []string{"confirmed", "processing", "shipped", "delivered"} {
		w = env.do(http.MethodPatch, path+"/status", admin, obj{"status": status})
		require.Equal(t, http.StatusOK, w.Code, status+": "+w.Body.String())
	}
	w = env.do(http.MethodPatch, path+"/status", admin, obj{"status": "cancelled"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(http.MethodPatch, path+"/payment", admin, obj{"payment_status": "settled"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(http.MethodPatch, path+"/payment", admin, obj{"payment_status": "paid"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPatch, path+"/status", admin, obj{"status": "returned"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, stockOf(t, env.db, hoodie.ID), "returns go back on the shelf")

	w = env.do(http.MethodGet, path, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"returned"`)
	assert.Contains(t, w.Body.String(), buyer.Email)

	assert.Eventually(t, func() bool { return len(env.pub.types()) == 6 }, time.Second, 10*time.Millisecond)
}

func TestAdminListOrders_Filters(t *testing.T) {
	env := newTestEnv(t)
	buyer, token := env.user("buyer@example.com", domain.RoleUser)
	_, other := env.user("other@example.com", domain.RoleUser)
	_, admin := env.user("admin@example.com", domain.RoleAdmin)
	hoodie := env.product("Summit Hoodie", 3000, 10, "M")
	first := checkout(t, env, token, hoodie.ID, 1, nil)
	checkout(t, env, other, hoodie.ID, 1, obj{"shipping_name": "Dawa Lama"})

	w := env.do(http.MethodPatch, "/api/admin/orders/"+first.Number+"/status", admin, obj{"status": "confirmed"})
	require.Equal(t, http.StatusOK, w.Code)

	count := func(query string) int64 {
		w := env.do(http.MethodGet, "/api/admin/orders"+query, admin, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var page struct {
			Total int64 `json:"total"`
		}
		decode(t, w, &page)
		return page.Total
	}
	assert.Equal(t, int64(2), count(""))
	assert.Equal(t, int64(1), count("?status=confirmed"))
	assert.Equal(t, int64(1), count("?user_id="+strconv.Itoa(int(buyer.ID))))
	assert.Equal(t, int64(1), count("?q=dawa"))
	assert.Equal(t, int64(1), count("?q="+first.Number))
	assert.Equal(t, int64(2), count("?from="+url.QueryEscape(time.Now().Add(-time.Hour).Format(time.RFC3339))))
	assert.Equal(t, int64(0), count("?to="+url.QueryEscape(time.Now().Add(-time.Hour).Format(time.RFC3339))))

	w = env.do(http.MethodGet, "/api/admin/orders?status=lost", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAffiliateReferrals(t *testing.T) {
	env := newTestEnv(t)
	partner, partnerToken := env.user("partner@example.com", domain.RoleUser)
	_, buyerToken := env.user("buyer@example.com", domain.RoleUser)
	_, admin := env.user("admin@example.com", domain.RoleAdmin)
	hoodie := env.product("Summit Hoodie", 3000, 10, "M")

	w := env.do(http.MethodPost, "/api/affiliate/apply", partnerToken, obj{"payout_details": "eSewa 9800000001"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var applied struct {
		Affiliate domain.Affiliate `json:"affiliate"`
	}
	decode(t, w, &applied)
	assert.Regexp(t, `^PP[A-Z0-9]{6}$`, applied.Affiliate.Code)
	assert.Equal(t, domain.AffiliatePending, applied.Affiliate.Status)
	assert.Equal(t, partner.ID, applied.Affiliate.UserID)

	w = env.do(http.MethodPost, "/api/affiliate/apply", partnerToken, obj{"payout_details": "again"})
	assert.Equal(t, http.StatusConflict, w.Code)

	code := applied.Affiliate.Code
	// Pending affiliates earn nothing
	pendingOrder := checkout(t, env, buyerToken, hoodie.ID, 1, obj{"affiliate_code": code})
	assert.Empty(t, pendingOrder.AffiliateCode)

	path := "/api/admin/affiliates/" + strconv.Itoa(int(applied.Affiliate.ID))
	w = env.do(http.MethodPatch, path, admin, obj{"commission_rate": 75})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(http.MethodPatch, path, admin, obj{"status": "approved", "commission_rate": 10})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	referred := checkout(t, env, buyerToken, hoodie.ID, 2, obj{"affiliate_code": code})
	assert.Equal(t, code, referred.AffiliateCode)
	// Self referrals are ignored
	self := checkout(t, env, partnerToken, hoodie.ID, 1, obj{"affiliate_code": code})
	assert.Empty(t, self.AffiliateCode)

	w = env.do(http.MethodGet, "/api/affiliate/me", partnerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		Stats domain.AffiliateStats `json:"stats"`
	}
	decode(t, w, &me)
	assert.Equal(t, domain.AffiliateStats{Referrals: 1, TotalSales: 6000, TotalCommission: 600}, me.Stats)

	// Cancelled orders drop out of the stats
	w = env.do(http.MethodPost, "/api/orders/"+referred.Number+"/cancel", buyerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodGet, "/api/affiliate/me", partnerToken, nil)
	decode(t, w, &me)
	assert.Equal(t, int64(0), me.Stats.Referrals)

	w = env.do(http.MethodGet, "/api/admin/affiliates?status=approved", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), code)
}
