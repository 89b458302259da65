package http

import (
	"context"
	"net/http"
	"time"

	"github.com/rohitsengarppv-gif/multimallpro/internal/domain"
	"github.com/shopspring/decimal"
)

type CouponService interface {
	ListActive(ctx context.Context, vendorID string) ([]domain.Coupon, error)
	Create(ctx context.Context, coupon *domain.Coupon) error
}

type CouponHandler struct {
	coupons CouponService
	timeout time.Duration
}

func NewCouponHandler(coupons CouponService, timeout time.Duration) *CouponHandler {
	return &CouponHandler{coupons: coupons, timeout: timeout}
}

type CreateCouponRequestDTO struct {
	VendorID               string              `json:"vendor_id"`
	Code                   string              `json:"code"`
	Description            string              `json:"description"`
	Kind                   domain.CouponKind   `json:"kind"`
	Value                  decimal.Decimal     `json:"value"`
	MinOrderAmount         *decimal.Decimal    `json:"min_order_amount"`
	MaxDiscountCap         *decimal.Decimal    `json:"max_discount_cap"`
	UsageLimit             *int64              `json:"usage_limit"`
	FirstTimeCustomersOnly bool                `json:"first_time_customers_only"`
	ProductIDs             []string            `json:"product_ids"`
	CategoryIDs            []string            `json:"category_ids"`
	StartDate              time.Time           `json:"start_date"`
	EndDate                time.Time           `json:"end_date"`
	Status                 domain.CouponStatus `json:"status"`
}

// GET /coupons?vendor=&status=active
func (h *CouponHandler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	if status := q.Get("status"); status != "" && status != string(domain.CouponStatusActive) {
		respondError(w, http.StatusBadRequest, "invalid_status", "only status=active can be listed")
		return
	}

	coupons, err := h.coupons.ListActive(ctx, q.Get("vendor"))
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	if coupons == nil {
		coupons = []domain.Coupon{}
	}
	respondJSON(w, http.StatusOK, coupons)
}

// POST /coupons
// Vendors create coupons for themselves; admins name the vendor.
func (h *CouponHandler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, string(domain.ReasonUnauthorized), "missing user authentication")
		return
	}

	var req CreateCouponRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body", Code: "invalid_request", Details: err.Error()})
		return
	}

	if actor.Role == domain.RoleVendor {
		if req.VendorID != "" && req.VendorID != actor.ID {
			respondError(w, http.StatusForbidden, string(domain.ReasonForbidden), "vendors may only create their own coupons")
			return
		}
		req.VendorID = actor.ID
	}

	coupon := &domain.Coupon{
		VendorID:               req.VendorID,
		Code:                   req.Code,
		Description:            req.Description,
		Kind:                   req.Kind,
		Value:                  req.Value,
		MinOrderAmount:         req.MinOrderAmount,
		MaxDiscountCap:         req.MaxDiscountCap,
		UsageLimit:             req.UsageLimit,
		FirstTimeCustomersOnly: req.FirstTimeCustomersOnly,
		ProductIDs:             req.ProductIDs,
		CategoryIDs:            req.CategoryIDs,
		StartDate:              req.StartDate,
		EndDate:                req.EndDate,
		Status:                 req.Status,
	}
	if err := h.coupons.Create(ctx, coupon); err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusCreated, coupon)
}
