package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rohitsengarppv-gif/multimallpro/internal/domain"
	"github.com/rohitsengarppv-gif/multimallpro/internal/service"
)

const (
	idempotencyHeader = "Idempotency-Key"
	maxListLimit      = 200
)

type CheckoutService interface {
	Finalize(ctx context.Context, req service.FinalizeRequest) (*service.FinalizeResult, error)
	Quote(ctx context.Context, req service.FinalizeRequest) (*service.Quote, error)
}

type OrderStatusService interface {
	Get(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error)
	List(ctx context.Context, actor domain.Actor, limit int64) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, actor domain.Actor, orderID string, upd service.StatusUpdate) (*domain.Order, error)
}

type OrdersHandler struct {
	checkout CheckoutService
	orders   OrderStatusService
	timeout  time.Duration
}

func NewOrdersHandler(checkout CheckoutService, orders OrderStatusService, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{checkout: checkout, orders: orders, timeout: timeout}
}

type PlaceOrderRequestDTO struct {
	IdempotencyKey string                `json:"idempotency_key"`
	Lines          []domain.CartLineItem `json:"lines"`
	AddressID      string                `json:"address_id"`
	CouponCode     string                `json:"coupon_code"`
	CouponVendorID string                `json:"coupon_vendor_id"`
	PaymentMethod  domain.PaymentMethod  `json:"payment_method"`
}

type UpdateOrderRequestDTO struct {
	Status   domain.OrderStatus `json:"status"`
	Tracking *domain.Tracking   `json:"tracking"`
}

func (d PlaceOrderRequestDTO) toRequest(ownerID string) service.FinalizeRequest {
	return service.FinalizeRequest{
		OwnerID:        ownerID,
		IdempotencyKey: d.IdempotencyKey,
		Lines:          d.Lines,
		AddressID:      d.AddressID,
		CouponCode:     d.CouponCode,
		CouponVendorID: d.CouponVendorID,
		PaymentMethod:  d.PaymentMethod,
	}
}

// POST /orders
// A replayed idempotency key answers 200 with the original order.
func (h *OrdersHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, string(domain.ReasonUnauthorized), "missing user authentication")
		return
	}

	var req PlaceOrderRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body", Code: "invalid_request", Details: err.Error()})
		return
	}
	if key := r.Header.Get(idempotencyHeader); key != "" {
		req.IdempotencyKey = key
	}
	if req.IdempotencyKey == "" {
		respondError(w, http.StatusBadRequest, "missing_idempotency_key", "Idempotency-Key header or idempotency_key is required")
		return
	}

	res, err := h.checkout.Finalize(ctx, req.toRequest(actor.ID))
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	respondJSON(w, status, res.Order)
}

// POST /orders/quote
func (h *OrdersHandler) QuoteOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, string(domain.ReasonUnauthorized), "missing user authentication")
		return
	}

	var req PlaceOrderRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body", Code: "invalid_request", Details: err.Error()})
		return
	}

	quote, err := h.checkout.Quote(ctx, req.toRequest(actor.ID))
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

// GET /orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, string(domain.ReasonUnauthorized), "missing user authentication")
		return
	}

	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 || n > maxListLimit {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 200")
			return
		}
		limit = n
	}

	orders, err := h.orders.List(ctx, actor, limit)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	respondJSON(w, http.StatusOK, orders)
}

// GET /orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, string(domain.ReasonUnauthorized), "missing user authentication")
		return
	}

	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	order, err := h.orders.Get(ctx, actor, orderID)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// PATCH /orders/{order_id}
func (h *OrdersHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, string(domain.ReasonUnauthorized), "missing user authentication")
		return
	}

	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	var req UpdateOrderRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body", Code: "invalid_request", Details: err.Error()})
		return
	}
	if req.Status == "" {
		respondError(w, http.StatusBadRequest, "missing_status", "status is required")
		return
	}

	order, err := h.orders.UpdateStatus(ctx, actor, orderID, service.StatusUpdate{Status: req.Status, Tracking: req.Tracking})
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}
