package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rohitsengarppv-gif/multimallpro/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultOrderListLimit = 50

type orderRepository struct {
	db         *mongo.Database
	collection *mongo.Collection
	coupons    *mongo.Collection
	outbox     *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) OrderRepository {
	return &orderRepository{
		db:         db,
		collection: db.Collection(ordersCollection),
		coupons:    db.Collection(couponsCollection),
		outbox:     db.Collection(outboxCollection),
	}
}

func (r *orderRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "idempotency_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "order_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "lines.vendor_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}
	return nil
}

func (r *orderRepository) FindByIdempotencyKey(ctx context.Context, ownerID, key string) (*domain.Order, error) {
	return r.findOne(ctx, bson.M{"owner_id": ownerID, "idempotency_key": key})
}

func (r *orderRepository) HasPriorOrders(ctx context.Context, ownerID string) (bool, error) {
	filter := bson.M{
		"owner_id": ownerID,
		"status":   bson.M{"$ne": domain.OrderStatusCancelled},
	}
	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to count orders: %w", err)
	}
	return count > 0, nil
}

func (r *orderRepository) CreateOrder(ctx context.Context, order *domain.Order, event *OutboxEvent) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	order.CreatedAt = now
	order.UpdatedAt = now

	return runInTransaction(ctx, r.db, func(sc mongo.SessionContext) error {
		if order.CouponID != "" {
			if err := incrementCouponUsage(sc, r.coupons, order.CouponID); err != nil {
				return err
			}
		}

		if _, err := r.collection.InsertOne(sc, order); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return ErrDuplicateOrder
			}
			return fmt.Errorf("failed to insert order: %w", err)
		}

		if event != nil {
			if err := insertEvent(sc, r.outbox, event, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *orderRepository) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *orderRepository) ListOrders(ctx context.Context, f OrderFilter) ([]domain.Order, error) {
	filter := bson.M{}
	if f.OwnerID != "" {
		filter["owner_id"] = f.OwnerID
	}
	if f.VendorID != "" {
		filter["lines.vendor_id"] = f.VendorID
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultOrderListLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := []domain.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, tracking *domain.Tracking, event *OutboxEvent) (*domain.Order, error) {
	var updated domain.Order

	err := runInTransaction(ctx, r.db, func(sc mongo.SessionContext) error {
		now := time.Now().UTC().Truncate(time.Millisecond)
		set := bson.M{"status": to, "updated_at": now}
		if tracking != nil {
			set["tracking"] = tracking
		}

		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		err := r.collection.FindOneAndUpdate(sc, bson.M{"_id": id, "status": from}, bson.M{"$set": set}, opts).Decode(&updated)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return ErrStatusConflict
			}
			return fmt.Errorf("failed to update order status: %w", err)
		}

		if event != nil {
			return insertEvent(sc, r.outbox, event, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *orderRepository) findOne(ctx context.Context, filter bson.M) (*domain.Order, error) {
	var order domain.Order
	if err := r.collection.FindOne(ctx, filter).Decode(&order); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if err := order.Pricing.Verify(); err != nil {
		return nil, fmt.Errorf("order %s: %w", order.ID, err)
	}
	return &order, nil
}
