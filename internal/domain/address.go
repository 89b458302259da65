package domain

import "time"

type AddressCategory string

const (
	AddressCategoryHome  AddressCategory = "home"
	AddressCategoryWork  AddressCategory = "work"
	AddressCategoryOther AddressCategory = "other"
)

func (c AddressCategory) Valid() bool {
	switch c {
	case AddressCategoryHome, AddressCategoryWork, AddressCategoryOther:
		return true
	}
	return false
}

// Address is a customer's shipping address. For a given owner exactly one
// address is default whenever the owner has any address at all.
type Address struct {
	ID         string          `bson:"_id" json:"id"`
	OwnerID    string          `bson:"owner_id" json:"owner_id"`
	Recipient  string          `bson:"recipient" json:"recipient"`
	Phone      string          `bson:"phone" json:"phone"`
	Line1      string          `bson:"line1" json:"line1"`
	Line2      string          `bson:"line2,omitempty" json:"line2,omitempty"`
	City       string          `bson:"city" json:"city"`
	State      string          `bson:"state" json:"state"`
	PostalCode string          `bson:"postal_code" json:"postal_code"`
	Country    string          `bson:"country" json:"country"`
	Category   AddressCategory `bson:"category" json:"category"`
	IsDefault  bool            `bson:"is_default" json:"is_default"`
	CreatedAt  time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `bson:"updated_at" json:"updated_at"`
}

// AddressFields is the caller-supplied part of a new address.
type AddressFields struct {
	Recipient  string          `json:"recipient" validate:"required,max=100"`
	Phone      string          `json:"phone" validate:"required,max=20"`
	Line1      string          `json:"line1" validate:"required,max=200"`
	Line2      string          `json:"line2" validate:"max=200"`
	City       string          `json:"city" validate:"required,max=100"`
	State      string          `json:"state" validate:"required,max=100"`
	PostalCode string          `json:"postal_code" validate:"required,max=12"`
	Country    string          `json:"country" validate:"omitempty,max=56"`
	Category   AddressCategory `json:"category" validate:"omitempty,oneof=home work other"`
	IsDefault  bool            `json:"is_default"`
}

// AddressPatch carries a partial update. Nil fields are left untouched.
type AddressPatch struct {
	Recipient  *string          `json:"recipient,omitempty" validate:"omitempty,min=1,max=100"`
	Phone      *string          `json:"phone,omitempty" validate:"omitempty,min=1,max=20"`
	Line1      *string          `json:"line1,omitempty" validate:"omitempty,min=1,max=200"`
	Line2      *string          `json:"line2,omitempty" validate:"omitempty,max=200"`
	City       *string          `json:"city,omitempty" validate:"omitempty,min=1,max=100"`
	State      *string          `json:"state,omitempty" validate:"omitempty,min=1,max=100"`
	PostalCode *string          `json:"postal_code,omitempty" validate:"omitempty,min=1,max=12"`
	Country    *string          `json:"country,omitempty" validate:"omitempty,min=1,max=56"`
	Category   *AddressCategory `json:"category,omitempty" validate:"omitempty,oneof=home work other"`
	IsDefault  *bool            `json:"is_default,omitempty"`
}

// Empty reports whether the patch touches any stored field other than the
// default flag.
func (p AddressPatch) Empty() bool {
	return p.Recipient == nil && p.Phone == nil && p.Line1 == nil && p.Line2 == nil &&
		p.City == nil && p.State == nil && p.PostalCode == nil && p.Country == nil &&
		p.Category == nil
}

// Apply copies the non-nil fields onto a.
func (p AddressPatch) Apply(a *Address) {
	if p.Recipient != nil {
		a.Recipient = *p.Recipient
	}
	if p.Phone != nil {
		a.Phone = *p.Phone
	}
	if p.Line1 != nil {
		a.Line1 = *p.Line1
	}
	if p.Line2 != nil {
		a.Line2 = *p.Line2
	}
	if p.City != nil {
		a.City = *p.City
	}
	if p.State != nil {
		a.State = *p.State
	}
	if p.PostalCode != nil {
		a.PostalCode = *p.PostalCode
	}
	if p.Country != nil {
		a.Country = *p.Country
	}
	if p.Category != nil {
		a.Category = *p.Category
	}
}

// ShippingAddress is the denormalized copy of an Address stored on an order.
type ShippingAddress struct {
	AddressID  string          `bson:"address_id" json:"address_id"`
	Recipient  string          `bson:"recipient" json:"recipient"`
	Phone      string          `bson:"phone" json:"phone"`
	Line1      string          `bson:"line1" json:"line1"`
	Line2      string          `bson:"line2,omitempty" json:"line2,omitempty"`
	City       string          `bson:"city" json:"city"`
	State      string          `bson:"state" json:"state"`
	PostalCode string          `bson:"postal_code" json:"postal_code"`
	Country    string          `bson:"country" json:"country"`
	Category   AddressCategory `bson:"category" json:"category"`
}

func SnapshotAddress(a *Address) ShippingAddress {
	return ShippingAddress{
		AddressID:  a.ID,
		Recipient:  a.Recipient,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Category:   a.Category,
	}
}
