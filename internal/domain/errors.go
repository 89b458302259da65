package domain

import (
	"errors"
	"fmt"
)

// Reason is the stable, user-facing code of a rejected operation.
type Reason string

const (
	ReasonCouponNotApplicable Reason = "CouponNotApplicable"
	ReasonUsageLimitReached   Reason = "UsageLimitReached"
	ReasonMinimumOrderNotMet  Reason = "MinimumOrderNotMet"
	ReasonNotEligible         Reason = "NotEligible"
	ReasonPriceMismatch       Reason = "PriceMismatch"
	ReasonProductUnavailable  Reason = "ProductUnavailable"
	ReasonAddressNotFound     Reason = "AddressNotFound"
	ReasonFinalizationFailed  Reason = "FinalizationFailed"
	ReasonInvalidAddress      Reason = "InvalidAddress"
	ReasonInvalidCart         Reason = "InvalidCart"
	ReasonInvalidCoupon       Reason = "InvalidCoupon"
	ReasonUnauthorized        Reason = "Unauthorized"
	ReasonForbidden           Reason = "Forbidden"
	ReasonNotFound            Reason = "NotFound"
	ReasonIllegalTransition   Reason = "IllegalTransition"
)

// ErrInvariantViolation marks infrastructure or programming bugs such as an
// owner with two default addresses. Never returned for bad user input.
var ErrInvariantViolation = errors.New("invariant violation")

// RejectionError is returned for every failure the caller can act on.
type RejectionError struct {
	Reason  Reason
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func Reject(reason Reason, format string, args ...any) *RejectionError {
	return &RejectionError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// ReasonOf extracts the rejection reason from err, if any.
func ReasonOf(err error) (Reason, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}

// IsValidation reports client-correctable rejections, which are never logged
// as system errors.
func (r Reason) IsValidation() bool {
	switch r {
	case ReasonCouponNotApplicable, ReasonUsageLimitReached, ReasonMinimumOrderNotMet,
		ReasonNotEligible, ReasonInvalidAddress, ReasonInvalidCart, ReasonInvalidCoupon:
		return true
	}
	return false
}

// IsConsistency reports staleness detected on the server; the client should
// refresh and retry.
func (r Reason) IsConsistency() bool {
	switch r {
	case ReasonPriceMismatch, ReasonProductUnavailable, ReasonAddressNotFound:
		return true
	}
	return false
}
