package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rohitsengarppv-gif/multimallpro/internal/domain"
)

const (
	addressesCollection = "addresses"
	couponsCollection   = "coupons"
	ordersCollection    = "orders"
	productsCollection  = "products"
	outboxCollection    = "outbox"
)

var (
	ErrAddressNotFound   = errors.New("address not found")
	ErrCouponNotFound    = errors.New("coupon not found")
	ErrDuplicateCoupon   = errors.New("coupon code already exists for vendor")
	ErrOrderNotFound     = errors.New("order not found")
	ErrDuplicateOrder    = errors.New("order already exists for idempotency key")
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	ErrProductNotFound   = errors.New("product not found")
	ErrStatusConflict    = errors.New("order status changed concurrently")
)

// AddressRepository keeps the single-default invariant: every mutating call
// runs in one transaction and verifies the owner's default count before commit.
type AddressRepository interface {
	Insert(ctx context.Context, addr *domain.Address) error
	Get(ctx context.Context, ownerID, addressID string) (*domain.Address, error)
	List(ctx context.Context, ownerID string) ([]domain.Address, error)
	Update(ctx context.Context, ownerID, addressID string, patch domain.AddressPatch) (*domain.Address, error)
	SetDefault(ctx context.Context, ownerID, addressID string) (*domain.Address, error)
	Delete(ctx context.Context, ownerID, addressID string) error
}

type CouponRepository interface {
	Create(ctx context.Context, c *domain.Coupon) error
	GetByID(ctx context.Context, id string) (*domain.Coupon, error)
	FindByCode(ctx context.Context, vendorID, code string) (*domain.Coupon, error)
	// ListActive returns active coupons inside their window at the given
	// time whose usage is not exhausted. An empty vendorID lists all vendors.
	ListActive(ctx context.Context, vendorID string, at time.Time) ([]domain.Coupon, error)
	// IncrementUsage bumps usage_count by one iff the coupon is active and
	// below its limit. Returns ErrUsageLimitReached when nothing matched.
	IncrementUsage(ctx context.Context, id string) error
}

type OrderFilter struct {
	OwnerID  string
	VendorID string
	Limit    int64
}

type OrderRepository interface {
	FindByIdempotencyKey(ctx context.Context, ownerID, key string) (*domain.Order, error)
	// HasPriorOrders reports whether the owner has any order not cancelled.
	HasPriorOrders(ctx context.Context, ownerID string) (bool, error)
	// CreateOrder inserts the order, increments the coupon usage when
	// order.CouponID is set and writes the event, all in one transaction.
	CreateOrder(ctx context.Context, order *domain.Order, event *OutboxEvent) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]domain.Order, error)
	// UpdateStatus moves an order from one status to another. Returns
	// ErrStatusConflict if the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, tracking *domain.Tracking, event *OutboxEvent) (*domain.Order, error)
}

type CatalogRepository interface {
	GetProducts(ctx context.Context, ids []string) (map[string]*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	UpsertProduct(ctx context.Context, p *domain.Product) error
}

type OutboxRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int64) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id string) error
}

type OutboxEvent struct {
	ID          string          `bson:"_id"`
	AggregateID string          `bson:"aggregate_id"`
	EventType   string          `bson:"event_type"`
	Payload     json.RawMessage `bson:"payload"`
	CreatedAt   time.Time       `bson:"created_at"`
	ProcessedAt *time.Time      `bson:"processed_at"`
}
