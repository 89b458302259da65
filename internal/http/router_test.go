package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rohitsengarppv-gif/multimallpro/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, secret []byte, subject string, role domain.Role, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func newTestRouter(addresses *addressServiceMock, orders *orderStatusMock) http.Handler {
	return NewRouter(
		RouterConfig{JWTSecret: testSecret, RequestTimeout: 5 * time.Second, Logger: zap.NewNop()},
		NewAddressHandler(addresses, time.Second),
		NewCouponHandler(&couponServiceMock{}, time.Second),
		NewOrdersHandler(&checkoutMock{}, orders, time.Second),
	)
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(&addressServiceMock{}, &orderStatusMock{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestRouter_Authentication(t *testing.T) {
	router := newTestRouter(&addressServiceMock{}, &orderStatusMock{})
	hour := time.Now().Add(time.Hour)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"not bearer", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, []byte("other"), "user-1", domain.RoleCustomer, hour), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, testSecret, "user-1", domain.RoleCustomer, time.Now().Add(-time.Minute)), http.StatusUnauthorized},
		{"no subject", "Bearer " + signToken(t, testSecret, "", domain.RoleCustomer, hour), http.StatusUnauthorized},
		{"unknown role", "Bearer " + signToken(t, testSecret, "user-1", "superuser", hour), http.StatusUnauthorized},
		{"customer", "Bearer " + signToken(t, testSecret, "user-1", domain.RoleCustomer, hour), http.StatusOK},
		{"role defaults to customer", "Bearer " + signToken(t, testSecret, "user-1", "", hour), http.StatusOK},
		{"vendor", "Bearer " + signToken(t, testSecret, "vendor-1", domain.RoleVendor, hour), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/addresses", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRouter_PassesActorToOrders(t *testing.T) {
	orders := &orderStatusMock{}
	router := newTestRouter(&addressServiceMock{}, orders)

	req := httptest.NewRequest("PATCH", "/orders/o1", nil)
	req.Body = http.NoBody
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "ops", domain.RoleAdmin, time.Now().Add(time.Hour)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest("GET", "/orders/o1", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "ops", domain.RoleAdmin, time.Now().Add(time.Hour)))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.Actor{ID: "ops", Role: domain.RoleAdmin}, orders.gotActor)
}

func TestRouter_CouponCreationNeedsVendorOrAdmin(t *testing.T) {
	router := newTestRouter(&addressServiceMock{}, &orderStatusMock{})

	req := httptest.NewRequest("POST", "/coupons", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "user-1", domain.RoleCustomer, time.Now().Add(time.Hour)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
