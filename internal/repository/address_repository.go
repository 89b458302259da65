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

type addressRepository struct {
	db         *mongo.Database
	collection *mongo.Collection
}

func NewAddressRepository(db *mongo.Database) AddressRepository {
	return &addressRepository{
		db:         db,
		collection: db.Collection(addressesCollection),
	}
}

func (r *addressRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			// at most one default per owner, enforced by the server
			Keys: bson.D{{Key: "owner_id", Value: 1}},
			Options: options.Index().
				SetName("one_default_per_owner").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"is_default": true}),
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create address indexes: %w", err)
	}
	return nil
}

func (r *addressRepository) Insert(ctx context.Context, addr *domain.Address) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	if addr.ID == "" {
		addr.ID = uuid.NewString()
	}
	addr.CreatedAt = now
	addr.UpdatedAt = now
	requested := addr.IsDefault

	return runInTransaction(ctx, r.db, func(sc mongo.SessionContext) error {
		count, err := r.collection.CountDocuments(sc, bson.M{"owner_id": addr.OwnerID})
		if err != nil {
			return fmt.Errorf("failed to count addresses: %w", err)
		}

		addr.IsDefault = requested || count == 0
		if addr.IsDefault && count > 0 {
			if err := r.demoteAll(sc, addr.OwnerID, now); err != nil {
				return err
			}
		}

		if _, err := r.collection.InsertOne(sc, addr); err != nil {
			return mapAddressWriteErr("insert address", err)
		}
		return r.verifyDefault(sc, addr.OwnerID)
	})
}

func (r *addressRepository) Get(ctx context.Context, ownerID, addressID string) (*domain.Address, error) {
	return r.find(ctx, ownerID, addressID)
}

func (r *addressRepository) List(ctx context.Context, ownerID string) ([]domain.Address, error) {
	opts := options.Find().SetSort(bson.D{{Key: "is_default", Value: -1}, {Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}

	addresses := []domain.Address{}
	if err := cursor.All(ctx, &addresses); err != nil {
		return nil, fmt.Errorf("failed to decode addresses: %w", err)
	}
	return addresses, nil
}

func (r *addressRepository) Update(ctx context.Context, ownerID, addressID string, patch domain.AddressPatch) (*domain.Address, error) {
	set := patchFields(patch)
	set["updated_at"] = time.Now().UTC().Truncate(time.Millisecond)

	filter := bson.M{"_id": addressID, "owner_id": ownerID}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated domain.Address
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("failed to update address: %w", err)
	}
	return &updated, nil
}

func (r *addressRepository) SetDefault(ctx context.Context, ownerID, addressID string) (*domain.Address, error) {
	var result *domain.Address

	err := runInTransaction(ctx, r.db, func(sc mongo.SessionContext) error {
		target, err := r.find(sc, ownerID, addressID)
		if err != nil {
			return err
		}
		if target.IsDefault {
			result = target
			return nil
		}

		now := time.Now().UTC().Truncate(time.Millisecond)
		if err := r.demoteAll(sc, ownerID, now); err != nil {
			return err
		}
		_, err = r.collection.UpdateOne(sc,
			bson.M{"_id": addressID, "owner_id": ownerID},
			bson.M{"$set": bson.M{"is_default": true, "updated_at": now}})
		if err != nil {
			return mapAddressWriteErr("promote address", err)
		}
		if err := r.verifyDefault(sc, ownerID); err != nil {
			return err
		}

		target.IsDefault = true
		target.UpdatedAt = now
		result = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *addressRepository) Delete(ctx context.Context, ownerID, addressID string) error {
	return runInTransaction(ctx, r.db, func(sc mongo.SessionContext) error {
		target, err := r.find(sc, ownerID, addressID)
		if err != nil {
			return err
		}

		if _, err := r.collection.DeleteOne(sc, bson.M{"_id": addressID, "owner_id": ownerID}); err != nil {
			return fmt.Errorf("failed to delete address: %w", err)
		}

		if target.IsDefault {
			var newest domain.Address
			opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
			err := r.collection.FindOne(sc, bson.M{"owner_id": ownerID}, opts).Decode(&newest)
			switch {
			case errors.Is(err, mongo.ErrNoDocuments):
				return nil
			case err != nil:
				return fmt.Errorf("failed to find promotion candidate: %w", err)
			}

			_, err = r.collection.UpdateOne(sc,
				bson.M{"_id": newest.ID},
				bson.M{"$set": bson.M{"is_default": true, "updated_at": time.Now().UTC().Truncate(time.Millisecond)}})
			if err != nil {
				return mapAddressWriteErr("promote address", err)
			}
		}

		return r.verifyDefault(sc, ownerID)
	})
}

func (r *addressRepository) find(ctx context.Context, ownerID, addressID string) (*domain.Address, error) {
	var addr domain.Address
	err := r.collection.FindOne(ctx, bson.M{"_id": addressID, "owner_id": ownerID}).Decode(&addr)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("failed to get address: %w", err)
	}
	return &addr, nil
}

func (r *addressRepository) demoteAll(ctx context.Context, ownerID string, now time.Time) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"owner_id": ownerID, "is_default": true},
		bson.M{"$set": bson.M{"is_default": false, "updated_at": now}})
	if err != nil {
		return fmt.Errorf("failed to demote addresses: %w", err)
	}
	return nil
}

// verifyDefault aborts the surrounding transaction unless the owner has
// exactly one default address, or no addresses at all.
func (r *addressRepository) verifyDefault(ctx context.Context, ownerID string) error {
	total, err := r.collection.CountDocuments(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return fmt.Errorf("failed to count addresses: %w", err)
	}
	defaults, err := r.collection.CountDocuments(ctx, bson.M{"owner_id": ownerID, "is_default": true})
	if err != nil {
		return fmt.Errorf("failed to count default addresses: %w", err)
	}

	if total > 0 && defaults != 1 {
		return fmt.Errorf("%w: owner %s has %d default addresses out of %d",
			domain.ErrInvariantViolation, ownerID, defaults, total)
	}
	return nil
}

func mapAddressWriteErr(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvariantViolation, op, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func patchFields(p domain.AddressPatch) bson.M {
	set := bson.M{}
	if p.Recipient != nil {
		set["recipient"] = *p.Recipient
	}
	if p.Phone != nil {
		set["phone"] = *p.Phone
	}
	if p.Line1 != nil {
		set["line1"] = *p.Line1
	}
	if p.Line2 != nil {
		set["line2"] = *p.Line2
	}
	if p.City != nil {
		set["city"] = *p.City
	}
	if p.State != nil {
		set["state"] = *p.State
	}
	if p.PostalCode != nil {
		set["postal_code"] = *p.PostalCode
	}
	if p.Country != nil {
		set["country"] = *p.Country
	}
	if p.Category != nil {
		set["category"] = *p.Category
	}
	return set
}
