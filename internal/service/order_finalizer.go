package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rohitsengarppv-gif/multimallpro/internal/coupon"
	"github.com/rohitsengarppv-gif/multimallpro/internal/domain"
	"github.com/rohitsengarppv-gif/multimallpro/internal/lock"
	"github.com/rohitsengarppv-gif/multimallpro/internal/pricing"
	"github.com/rohitsengarppv-gif/multimallpro/internal/repository"
	"github.com/rohitsengarppv-gif/multimallpro/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"

	retryBackoff = 50 * time.Millisecond
)

type FinalizeRequest struct {
	OwnerID        string
	IdempotencyKey string
	Lines          []domain.CartLineItem
	AddressID      string
	CouponCode     string
	// CouponVendorID pins the coupon lookup to one vendor. When empty the
	// code is looked up among the vendors present in the cart.
	CouponVendorID string
	PaymentMethod  domain.PaymentMethod
}

// Quote is the server-side price of a cart, computed without writes.
type Quote struct {
	Lines               []domain.OrderLineItem  `json:"lines"`
	Pricing             domain.PriceBreakdown   `json:"pricing"`
	AppliedDiscountCode *string                 `json:"applied_discount_code"`
	Currency            string                  `json:"currency"`
	ShippingAddress     *domain.ShippingAddress `json:"shipping_address,omitempty"`

	coupon *domain.Coupon
}

type FinalizeResult struct {
	Order *domain.Order
	// Replayed is set when the idempotency key matched an existing order.
	Replayed bool
}

type FinalizerConfig struct {
	Currency    string
	MaxAttempts int
}

// OrderFinalizer turns a cart into a persisted order. It re-prices every line
// from the catalog and re-validates the coupon; client totals are never used.
type OrderFinalizer struct {
	orders    repository.OrderRepository
	catalog   repository.CatalogRepository
	addresses repository.AddressRepository
	coupons   *CouponCatalog
	engine    *pricing.Engine
	locker    Locker
	cfg       FinalizerConfig
	now       func() time.Time
}

func NewOrderFinalizer(
	orders repository.OrderRepository,
	catalog repository.CatalogRepository,
	addresses repository.AddressRepository,
	coupons *CouponCatalog,
	engine *pricing.Engine,
	locker Locker,
	cfg FinalizerConfig,
) *OrderFinalizer {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &OrderFinalizer{
		orders:    orders,
		catalog:   catalog,
		addresses: addresses,
		coupons:   coupons,
		engine:    engine,
		locker:    locker,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Finalize creates the order, or returns the existing one when the
// idempotency key was already used by this owner.
func (f *OrderFinalizer) Finalize(ctx context.Context, req FinalizeRequest) (*FinalizeResult, error) {
	if req.OwnerID == "" {
		return nil, errUnauthenticated
	}
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		return nil, domain.Reject(domain.ReasonInvalidCart, "idempotency key is required")
	}
	if req.AddressID == "" {
		return nil, domain.Reject(domain.ReasonAddressNotFound, "shipping address is required")
	}
	if !req.PaymentMethod.Valid() {
		return nil, domain.Reject(domain.ReasonInvalidCart, "unsupported payment method %q", req.PaymentMethod)
	}
	lines, err := normalizeLines(req.Lines)
	if err != nil {
		return nil, err
	}
	req.Lines = lines

	log := logger.FromContext(ctx).With(
		zap.String("owner_id", req.OwnerID),
		zap.String("idempotency_key", req.IdempotencyKey))

	var result *FinalizeResult
	err = f.locker.WithLock(ctx, lock.CheckoutKey(req.OwnerID), func(ctx context.Context) error {
		existing, err := f.orders.FindByIdempotencyKey(ctx, req.OwnerID, req.IdempotencyKey)
		switch {
		case err == nil:
			log.Info("duplicate checkout request", zap.String("order_id", existing.ID))
			result = &FinalizeResult{Order: existing, Replayed: true}
			return nil
		case !errors.Is(err, repository.ErrOrderNotFound):
			return fmt.Errorf("check idempotency: %w", err)
		}

		at := f.now().UTC()
		quote, err := f.quote(ctx, req, at)
		if err != nil {
			return err
		}

		order := &domain.Order{
			ID:                  uuid.NewString(),
			OrderNumber:         "ORD-" + ulid.Make().String(),
			OwnerID:             req.OwnerID,
			IdempotencyKey:      req.IdempotencyKey,
			Lines:               quote.Lines,
			Pricing:             quote.Pricing,
			AppliedDiscountCode: quote.AppliedDiscountCode,
			Currency:            quote.Currency,
			ShippingAddress:     *quote.ShippingAddress,
			PaymentMethod:       req.PaymentMethod,
			Status:              domain.OrderStatusPending,
		}
		if quote.coupon != nil {
			order.CouponID = quote.coupon.ID
		}
		if err := order.Pricing.Verify(); err != nil {
			return err
		}

		result, err = f.persist(ctx, order)
		if err != nil {
			return err
		}
		if quote.coupon != nil && !result.Replayed {
			f.coupons.Invalidate(ctx, quote.coupon.VendorID)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			err = domain.Reject(domain.ReasonFinalizationFailed, "checkout is busy, retry later")
		}
		logFailure(ctx, "finalize order failed", err,
			zap.String("owner_id", req.OwnerID), zap.String("idempotency_key", req.IdempotencyKey))
		return nil, err
	}

	if !result.Replayed {
		log.Info("order finalized",
			zap.String("order_id", result.Order.ID),
			zap.String("order_number", result.Order.OrderNumber),
			zap.String("grand_total", result.Order.Pricing.GrandTotal.StringFixed(pricing.Places)))
	}
	return result, nil
}

// Quote runs the pricing steps of Finalize without writing anything. The
// shipping address is optional here.
func (f *OrderFinalizer) Quote(ctx context.Context, req FinalizeRequest) (*Quote, error) {
	if req.OwnerID == "" {
		return nil, errUnauthenticated
	}
	lines, err := normalizeLines(req.Lines)
	if err != nil {
		return nil, err
	}
	req.Lines = lines

	q, err := f.quote(ctx, req, f.now().UTC())
	if err != nil {
		logFailure(ctx, "quote failed", err, zap.String("owner_id", req.OwnerID))
		return nil, err
	}
	return q, nil
}

func (f *OrderFinalizer) quote(ctx context.Context, req FinalizeRequest, at time.Time) (*Quote, error) {
	priced, products, err := f.reprice(ctx, req.Lines)
	if err != nil {
		return nil, err
	}

	q := &Quote{Currency: f.cfg.Currency}
	subtotal := f.engine.Subtotal(priced)

	var discount *pricing.Discount
	if code := domain.NormalizeCode(req.CouponCode); code != "" {
		c, err := f.resolveCoupon(ctx, req.CouponVendorID, code, priced)
		if err != nil {
			return nil, err
		}

		firstTime := false
		if c != nil && c.FirstTimeCustomersOnly {
			prior, err := f.orders.HasPriorOrders(ctx, req.OwnerID)
			if err != nil {
				return nil, fmt.Errorf("check order history: %w", err)
			}
			firstTime = !prior
		}

		res := coupon.Evaluate(coupon.Input{
			Subtotal:          subtotal,
			Coupon:            c,
			FirstTimeCustomer: firstTime,
			At:                at,
			Scope:             scopeOf(priced, products),
		})
		if err := res.Err(); err != nil {
			return nil, err
		}
		discount = res.Discount()
		q.coupon = c
		q.AppliedDiscountCode = &c.Code
	}

	q.Pricing = f.engine.Price(priced, discount)
	q.Lines = snapshotLines(priced, products)

	if req.AddressID != "" {
		addr, err := f.addresses.Get(ctx, req.OwnerID, req.AddressID)
		if errors.Is(err, repository.ErrAddressNotFound) {
			return nil, domain.Reject(domain.ReasonAddressNotFound, "address %s not found", req.AddressID)
		}
		if err != nil {
			return nil, fmt.Errorf("resolve address: %w", err)
		}
		snapshot := domain.SnapshotAddress(addr)
		q.ShippingAddress = &snapshot
	}
	return q, nil
}

// reprice replaces client prices with catalog prices, rejecting lines whose
// product is gone, inactive or priced differently than the client claims.
func (f *OrderFinalizer) reprice(ctx context.Context, lines []domain.CartLineItem) ([]domain.CartLineItem, map[string]*domain.Product, error) {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}

	products, err := f.catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load products: %w", err)
	}

	priced := make([]domain.CartLineItem, len(lines))
	for i, l := range lines {
		p, ok := products[l.ProductID]
		if !ok || !p.IsActive || p.Price.IsNegative() {
			return nil, nil, domain.Reject(domain.ReasonProductUnavailable, "product %s is unavailable", l.ProductID)
		}
		if !l.UnitPrice.Equal(p.Price) {
			return nil, nil, domain.Reject(domain.ReasonPriceMismatch,
				"price of product %s is %s, not %s", l.ProductID,
				p.Price.StringFixed(pricing.Places), l.UnitPrice.StringFixed(pricing.Places))
		}

		l.UnitPrice = p.Price
		l.VendorID = p.VendorID
		priced[i] = l
	}
	return priced, products, nil
}

// resolveCoupon finds the coupon for code, either at the pinned vendor or at
// the first cart vendor (in id order) that has it. A nil coupon without error
// means no vendor knows the code.
func (f *OrderFinalizer) resolveCoupon(ctx context.Context, vendorID, code string, lines []domain.CartLineItem) (*domain.Coupon, error) {
	vendors := []string{vendorID}
	if vendorID == "" {
		vendors = cartVendors(lines)
	}

	for _, v := range vendors {
		c, err := f.coupons.FindByCode(ctx, v, code)
		if err != nil {
			return nil, err
		}
		if c != nil {
			return c, nil
		}
	}
	return nil, nil
}

// persist writes the order with its coupon increment and event, retrying
// storage failures a bounded number of times.
func (f *OrderFinalizer) persist(ctx context.Context, order *domain.Order) (*FinalizeResult, error) {
	payload, err := json.Marshal(orderCreatedEvent(order))
	if err != nil {
		return nil, fmt.Errorf("marshal order event: %w", err)
	}

	log := logger.FromContext(ctx)
	var lastErr error
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		event := &repository.OutboxEvent{
			AggregateID: order.ID,
			EventType:   EventOrderCreated,
			Payload:     payload,
		}

		err := f.orders.CreateOrder(ctx, order, event)
		switch {
		case err == nil:
			return &FinalizeResult{Order: order}, nil
		case errors.Is(err, repository.ErrUsageLimitReached):
			return nil, domain.Reject(domain.ReasonUsageLimitReached, "coupon usage limit has been reached")
		case errors.Is(err, repository.ErrDuplicateOrder):
			existing, findErr := f.orders.FindByIdempotencyKey(ctx, order.OwnerID, order.IdempotencyKey)
			if findErr != nil {
				return nil, fmt.Errorf("load replayed order: %w", findErr)
			}
			return &FinalizeResult{Order: existing, Replayed: true}, nil
		case errors.Is(err, domain.ErrInvariantViolation):
			return nil, err
		}

		lastErr = err
		log.Warn("order write failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", f.cfg.MaxAttempts),
			zap.Error(err))

		if attempt == f.cfg.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, domain.Reject(domain.ReasonFinalizationFailed, "order could not be saved: %v", ctx.Err())
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}

	log.Error("order finalization failed", zap.String("order_id", order.ID), zap.Error(lastErr))
	return nil, domain.Reject(domain.ReasonFinalizationFailed, "order could not be saved, please retry")
}

// normalizeLines validates quantities and merges lines for the same product
// and variant.
func normalizeLines(lines []domain.CartLineItem) ([]domain.CartLineItem, error) {
	if len(lines) == 0 {
		return nil, domain.Reject(domain.ReasonInvalidCart, "cart is empty")
	}

	merged := make([]domain.CartLineItem, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, l := range lines {
		if l.ProductID == "" {
			return nil, domain.Reject(domain.ReasonInvalidCart, "line without product")
		}
		if l.Quantity < 1 || l.Quantity > domain.MaxLineQuantity {
			return nil, domain.Reject(domain.ReasonInvalidCart,
				"quantity of product %s must be between 1 and %d", l.ProductID, domain.MaxLineQuantity)
		}
		if l.UnitPrice.IsNegative() {
			return nil, domain.Reject(domain.ReasonInvalidCart, "negative price for product %s", l.ProductID)
		}

		key := lineKey(l)
		if i, ok := index[key]; ok {
			if !merged[i].UnitPrice.Equal(l.UnitPrice) {
				return nil, domain.Reject(domain.ReasonPriceMismatch, "conflicting prices for product %s", l.ProductID)
			}
			merged[i].Quantity += l.Quantity
			if merged[i].Quantity > domain.MaxLineQuantity {
				return nil, domain.Reject(domain.ReasonInvalidCart,
					"quantity of product %s must be between 1 and %d", l.ProductID, domain.MaxLineQuantity)
			}
			continue
		}
		index[key] = len(merged)
		merged = append(merged, l)
	}
	return merged, nil
}

func lineKey(l domain.CartLineItem) string {
	if len(l.Variant) == 0 {
		return l.ProductID
	}
	attrs := make([]string, 0, len(l.Variant))
	for k, v := range l.Variant {
		attrs = append(attrs, k+"="+v)
	}
	sort.Strings(attrs)
	return l.ProductID + "|" + strings.Join(attrs, ";")
}

func cartVendors(lines []domain.CartLineItem) []string {
	seen := make(map[string]struct{}, len(lines))
	var vendors []string
	for _, l := range lines {
		if _, ok := seen[l.VendorID]; ok {
			continue
		}
		seen[l.VendorID] = struct{}{}
		vendors = append(vendors, l.VendorID)
	}
	sort.Strings(vendors)
	return vendors
}

func scopeOf(lines []domain.CartLineItem, products map[string]*domain.Product) []coupon.ScopeItem {
	scope := make([]coupon.ScopeItem, 0, len(lines))
	for _, l := range lines {
		scope = append(scope, coupon.ScopeItem{
			ProductID:   l.ProductID,
			VendorID:    l.VendorID,
			CategoryIDs: products[l.ProductID].CategoryIDs,
		})
	}
	return scope
}

func snapshotLines(lines []domain.CartLineItem, products map[string]*domain.Product) []domain.OrderLineItem {
	out := make([]domain.OrderLineItem, 0, len(lines))
	for _, l := range lines {
		p := products[l.ProductID]
		out = append(out, domain.OrderLineItem{
			ProductID: l.ProductID,
			Name:      p.Name,
			ImageURL:  p.ImageURL,
			VendorID:  p.VendorID,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			LineTotal: l.LineTotal().Round(pricing.Places),
			Variant:   l.Variant,
		})
	}
	return out
}

type orderCreatedPayload struct {
	OrderID       string          `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	OwnerID       string          `json:"owner_id"`
	VendorIDs     []string        `json:"vendor_ids"`
	CouponCode    *string         `json:"coupon_code"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"payment_method"`
	CreatedAt     time.Time       `json:"created_at"`
}

func orderCreatedEvent(o *domain.Order) orderCreatedPayload {
	vendors := make([]string, 0, len(o.Lines))
	seen := map[string]struct{}{}
	for _, l := range o.Lines {
		if _, ok := seen[l.VendorID]; !ok {
			seen[l.VendorID] = struct{}{}
			vendors = append(vendors, l.VendorID)
		}
	}
	return orderCreatedPayload{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		OwnerID:       o.OwnerID,
		VendorIDs:     vendors,
		CouponCode:    o.AppliedDiscountCode,
		GrandTotal:    o.Pricing.GrandTotal,
		Currency:      o.Currency,
		PaymentMethod: string(o.PaymentMethod),
		CreatedAt:     time.Now().UTC(),
	}
}
