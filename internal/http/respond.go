package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rohitsengarppv-gif/multimallpro/internal/domain"
	"github.com/rohitsengarppv-gif/multimallpro/pkg/logger"
	"go.uber.org/zap"
)

const maxRequestBodySize = 1 << 20

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func statusForReason(reason domain.Reason) int {
	switch reason {
	case domain.ReasonInvalidAddress, domain.ReasonInvalidCart, domain.ReasonInvalidCoupon:
		return http.StatusBadRequest
	case domain.ReasonUnauthorized:
		return http.StatusUnauthorized
	case domain.ReasonForbidden:
		return http.StatusForbidden
	case domain.ReasonNotFound, domain.ReasonAddressNotFound:
		return http.StatusNotFound
	case domain.ReasonPriceMismatch, domain.ReasonProductUnavailable, domain.ReasonIllegalTransition:
		return http.StatusConflict
	case domain.ReasonCouponNotApplicable, domain.ReasonUsageLimitReached,
		domain.ReasonMinimumOrderNotMet, domain.ReasonNotEligible:
		return http.StatusUnprocessableEntity
	case domain.ReasonFinalizationFailed:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// handleServiceError converts a service error into an HTTP response.
// Rejections keep their reason as the error code; anything else is reported
// as an internal error without details.
func handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var rej *domain.RejectionError
	if errors.As(err, &rej) {
		respondError(w, statusForReason(rej.Reason), string(rej.Reason), rej.Message)
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
		return
	}

	logger.FromContext(ctx).Error("request failed", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}
