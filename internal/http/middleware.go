package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rohitsengarppv-gif/multimallpro/internal/domain"
	"github.com/rohitsengarppv-gif/multimallpro/pkg/logger"
	"go.uber.org/zap"
)

type ctxKey int

const actorKey ctxKey = iota

// Claims are the JWT claims issued by the identity service. Subject is the
// user id, or the vendor id for vendor tokens.
type Claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuth validates the bearer token and stores the caller in the request
// context.
func JWTAuth(secret []byte) func(http.Handler) http.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				respondError(w, http.StatusUnauthorized, string(domain.ReasonUnauthorized), "missing bearer token")
				return
			}

			var claims Claims
			if _, err := parser.ParseWithClaims(raw, &claims, keyFunc); err != nil {
				logger.FromContext(r.Context()).Debug("rejected token", zap.Error(err))
				respondError(w, http.StatusUnauthorized, string(domain.ReasonUnauthorized), "invalid token")
				return
			}

			actor, err := actorFromClaims(&claims)
			if err != nil {
				respondError(w, http.StatusUnauthorized, string(domain.ReasonUnauthorized), err.Error())
				return
			}

			ctx := withActor(r.Context(), actor)
			ctx = logger.WithLogger(ctx, logger.FromContext(ctx).With(
				zap.String("actor_id", actor.ID), zap.String("role", string(actor.Role))))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func actorFromClaims(c *Claims) (domain.Actor, error) {
	if c.Subject == "" {
		return domain.Actor{}, errors.New("token has no subject")
	}
	role := c.Role
	if role == "" {
		role = domain.RoleCustomer
	}
	if !role.Valid() {
		return domain.Actor{}, errors.New("token has an unknown role")
	}
	return domain.Actor{ID: c.Subject, Role: role}, nil
}

// RequireRole rejects callers whose role is not one of roles.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := actorFromContext(r.Context())
			if !ok {
				respondError(w, http.StatusUnauthorized, string(domain.ReasonUnauthorized), "missing user authentication")
				return
			}
			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respondError(w, http.StatusForbidden, string(domain.ReasonForbidden), "operation not allowed for role "+string(actor.Role))
		})
	}
}

// RequestLogger puts a request scoped zap logger into the context and echoes
// the request id. It must run after middleware.RequestID.
func RequestLogger(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := middleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set(middleware.RequestIDHeader, requestID)
			}

			l := base.With(
				zap.String("request_id", requestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path))
			next.ServeHTTP(w, r.WithContext(logger.WithLogger(r.Context(), l)))
		})
	}
}

func withActor(ctx context.Context, a domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

func actorFromContext(ctx context.Context) (domain.Actor, bool) {
	a, ok := ctx.Value(actorKey).(domain.Actor)
	return a, ok && a.ID != ""
}
