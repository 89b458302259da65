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

type couponRepository struct {
	collection *mongo.Collection
}

func NewCouponRepository(db *mongo.Database) CouponRepository {
	return &couponRepository{collection: db.Collection(couponsCollection)}
}

func (r *couponRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "vendor_id", Value: 1}, {Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "start_date", Value: 1}},
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create coupon indexes: %w", err)
	}
	return nil
}

func (r *couponRepository) Create(ctx context.Context, c *domain.Coupon) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Code = domain.NormalizeCode(c.Code)
	c.CreatedAt = now
	c.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateCoupon
		}
		return fmt.Errorf("failed to create coupon: %w", err)
	}
	return nil
}

func (r *couponRepository) GetByID(ctx context.Context, id string) (*domain.Coupon, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *couponRepository) FindByCode(ctx context.Context, vendorID, code string) (*domain.Coupon, error) {
	return r.findOne(ctx, bson.M{"vendor_id": vendorID, "code": domain.NormalizeCode(code)})
}

func (r *couponRepository) findOne(ctx context.Context, filter bson.M) (*domain.Coupon, error) {
	var c domain.Coupon
	if err := r.collection.FindOne(ctx, filter).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to get coupon: %w", err)
	}
	return &c, nil
}

func (r *couponRepository) ListActive(ctx context.Context, vendorID string, at time.Time) ([]domain.Coupon, error) {
	filter := bson.M{
		"status":     domain.CouponStatusActive,
		"start_date": bson.M{"$lte": at},
	}
	if vendorID != "" {
		filter["vendor_id"] = vendorID
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}

	var all []domain.Coupon
	if err := cursor.All(ctx, &all); err != nil {
		return nil, fmt.Errorf("failed to decode coupons: %w", err)
	}

	// open-ended windows store a zero end date, so the window and the usage
	// limit are checked here rather than in the query
	active := make([]domain.Coupon, 0, len(all))
	for i := range all {
		if all[i].RedeemableAt(at) && !all[i].Exhausted() {
			active = append(active, all[i])
		}
	}
	return active, nil
}

func (r *couponRepository) IncrementUsage(ctx context.Context, id string) error {
	return incrementCouponUsage(ctx, r.collection, id)
}

// incrementCouponUsage is shared with the order transaction so the limit is
// re-checked at write time.
func incrementCouponUsage(ctx context.Context, coll *mongo.Collection, id string) error {
	filter := bson.M{
		"_id":    id,
		"status": domain.CouponStatusActive,
		"$or": bson.A{
			bson.M{"usage_limit": nil},
			bson.M{"$expr": bson.M{"$lt": bson.A{"$usage_count", "$usage_limit"}}},
		},
	}
	update := bson.M{
		"$inc": bson.M{"usage_count": 1},
		"$set": bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)},
	}

	res, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to increment coupon usage: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrUsageLimitReached
	}
	return nil
}
