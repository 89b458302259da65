package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rohitsengarppv-gif/multimallpro/internal/domain"
	"go.uber.org/zap"
)

type RouterConfig struct {
	JWTSecret      []byte
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

// NewRouter mounts every endpoint behind request logging and JWT auth.
// /health is left unauthenticated.
func NewRouter(cfg RouterConfig, addresses *AddressHandler, coupons *CouponHandler, orders *OrdersHandler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(JWTAuth(cfg.JWTSecret))

		r.Route("/addresses", func(r chi.Router) {
			r.Use(RequireRole(domain.RoleCustomer))
			r.Get("/", addresses.ListAddresses)
			r.Post("/", addresses.AddAddress)
			r.Get("/{address_id}", addresses.GetAddress)
			r.Patch("/{address_id}", addresses.UpdateAddress)
			r.Delete("/{address_id}", addresses.RemoveAddress)
			r.Patch("/{address_id}/default", addresses.SetDefaultAddress)
		})

		r.Route("/coupons", func(r chi.Router) {
			r.Get("/", coupons.ListCoupons)
			r.With(RequireRole(domain.RoleVendor, domain.RoleAdmin)).Post("/", coupons.CreateCoupon)
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(RequireRole(domain.RoleCustomer)).Post("/", orders.PlaceOrder)
			r.With(RequireRole(domain.RoleCustomer)).Post("/quote", orders.QuoteOrder)
			r.Get("/", orders.ListOrders)
			r.Get("/{order_id}", orders.GetOrder)
			r.Patch("/{order_id}", orders.UpdateOrder)
		})
	})

	return r
}
