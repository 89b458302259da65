package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rohitsengarppv-gif/multimallpro/internal/domain"
	"github.com/rohitsengarppv-gif/multimallpro/internal/lock"
	"github.com/rohitsengarppv-gif/multimallpro/internal/repository"
	"go.uber.org/zap"
)

const defaultCountry = "IN"

// AddressBook owns customer shipping addresses. Every mutation runs under the
// owner's address lock and inside a repository transaction.
type AddressBook struct {
	repo     repository.AddressRepository
	locker   Locker
	validate *validator.Validate
}

func NewAddressBook(repo repository.AddressRepository, locker Locker) *AddressBook {
	return &AddressBook{
		repo:     repo,
		locker:   locker,
		validate: newValidator(),
	}
}

func (b *AddressBook) Add(ctx context.Context, ownerID string, fields domain.AddressFields) (*domain.Address, error) {
	if ownerID == "" {
		return nil, errUnauthenticated
	}
	if err := b.validate.Struct(fields); err != nil {
		return nil, domain.Reject(domain.ReasonInvalidAddress, "%s", describeValidation(err))
	}

	addr := &domain.Address{
		OwnerID:    ownerID,
		Recipient:  fields.Recipient,
		Phone:      fields.Phone,
		Line1:      fields.Line1,
		Line2:      fields.Line2,
		City:       fields.City,
		State:      fields.State,
		PostalCode: fields.PostalCode,
		Country:    fields.Country,
		Category:   fields.Category,
		IsDefault:  fields.IsDefault,
	}
	if addr.Country == "" {
		addr.Country = defaultCountry
	}
	if addr.Category == "" {
		addr.Category = domain.AddressCategoryHome
	}

	err := b.locker.WithLock(ctx, lock.AddressKey(ownerID), func(ctx context.Context) error {
		return b.repo.Insert(ctx, addr)
	})
	if err != nil {
		return nil, b.fail(ctx, "add address", ownerID, err)
	}
	return addr, nil
}

func (b *AddressBook) Remove(ctx context.Context, ownerID, addressID string) error {
	if ownerID == "" {
		return errUnauthenticated
	}

	err := b.locker.WithLock(ctx, lock.AddressKey(ownerID), func(ctx context.Context) error {
		return b.repo.Delete(ctx, ownerID, addressID)
	})
	if err != nil {
		return b.fail(ctx, "remove address", ownerID, err)
	}
	return nil
}

func (b *AddressBook) SetDefault(ctx context.Context, ownerID, addressID string) (*domain.Address, error) {
	if ownerID == "" {
		return nil, errUnauthenticated
	}

	var addr *domain.Address
	err := b.locker.WithLock(ctx, lock.AddressKey(ownerID), func(ctx context.Context) error {
		var err error
		addr, err = b.repo.SetDefault(ctx, ownerID, addressID)
		return err
	})
	if err != nil {
		return nil, b.fail(ctx, "set default address", ownerID, err)
	}
	return addr, nil
}

// Update applies a partial update. IsDefault=true promotes the address;
// IsDefault=false is refused on the current default since no other address
// would take its place.
func (b *AddressBook) Update(ctx context.Context, ownerID, addressID string, patch domain.AddressPatch) (*domain.Address, error) {
	if ownerID == "" {
		return nil, errUnauthenticated
	}
	if patch.Empty() && patch.IsDefault == nil {
		return nil, domain.Reject(domain.ReasonInvalidAddress, "no fields to update")
	}
	if err := b.validate.Struct(patch); err != nil {
		return nil, domain.Reject(domain.ReasonInvalidAddress, "%s", describeValidation(err))
	}

	var addr *domain.Address
	err := b.locker.WithLock(ctx, lock.AddressKey(ownerID), func(ctx context.Context) error {
		current, err := b.repo.Get(ctx, ownerID, addressID)
		if err != nil {
			return err
		}
		if patch.IsDefault != nil && !*patch.IsDefault && current.IsDefault {
			return domain.Reject(domain.ReasonInvalidAddress,
				"default address cannot be unset; set another address as default instead")
		}

		addr = current
		if !patch.Empty() {
			if addr, err = b.repo.Update(ctx, ownerID, addressID, patch); err != nil {
				return err
			}
		}
		if patch.IsDefault != nil && *patch.IsDefault && !addr.IsDefault {
			if addr, err = b.repo.SetDefault(ctx, ownerID, addressID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, b.fail(ctx, "update address", ownerID, err)
	}
	return addr, nil
}

func (b *AddressBook) Get(ctx context.Context, ownerID, addressID string) (*domain.Address, error) {
	if ownerID == "" {
		return nil, errUnauthenticated
	}
	addr, err := b.repo.Get(ctx, ownerID, addressID)
	if err != nil {
		return nil, b.fail(ctx, "get address", ownerID, err)
	}
	return addr, nil
}

// List returns the owner's addresses, default first and then newest first.
func (b *AddressBook) List(ctx context.Context, ownerID string) ([]domain.Address, error) {
	if ownerID == "" {
		return nil, errUnauthenticated
	}
	list, err := b.repo.List(ctx, ownerID)
	if err != nil {
		return nil, b.fail(ctx, "list addresses", ownerID, err)
	}
	return list, nil
}

func (b *AddressBook) fail(ctx context.Context, op, ownerID string, err error) error {
	if errors.Is(err, repository.ErrAddressNotFound) {
		err = domain.Reject(domain.ReasonNotFound, "address not found")
	} else if _, ok := domain.ReasonOf(err); !ok {
		err = fmt.Errorf("%s: %w", op, err)
	}
	logFailure(ctx, op+" failed", err, zap.String("owner_id", ownerID))
	return err
}
