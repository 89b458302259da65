package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rohitsengarppv-gif/multimallpro/internal/domain"
	"github.com/rohitsengarppv-gif/multimallpro/pkg/logger"
	"go.uber.org/zap"
)

// Locker serialises per-owner work across instances.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

var errUnauthenticated = domain.Reject(domain.ReasonUnauthorized, "authentication required")

// describeValidation turns validator errors into "field: rule" pairs using
// the json field names.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, ", ")
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// logFailure logs err at a level matching its category: client mistakes at
// debug, staleness at info, everything else at error.
func logFailure(ctx context.Context, msg string, err error, fields ...zap.Field) {
	log := logger.FromContext(ctx)
	fields = append(fields, zap.Error(err))

	reason, ok := domain.ReasonOf(err)
	switch {
	case ok && (reason.IsValidation() || reason == domain.ReasonNotFound ||
		reason == domain.ReasonForbidden || reason == domain.ReasonIllegalTransition):
		log.Debug(msg, fields...)
	case ok && reason.IsConsistency():
		log.Info(msg, fields...)
	default:
		log.Error(msg, fields...)
	}
}
