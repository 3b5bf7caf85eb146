package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// JWTValidator defines the interface for validating access tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	EmployeeID     string
	OrganisationID string
	Admin          bool
}

// Context keys for storing authenticated identity information.
type contextKeyEmployeeID struct{}
type contextKeyOrganisationID struct{}
type contextKeyAdmin struct{}

var (
	ContextKeyEmployeeID     = contextKeyEmployeeID{}
	ContextKeyOrganisationID = contextKeyOrganisationID{}
	ContextKeyAdmin          = contextKeyAdmin{}
)

// GetEmployeeID retrieves the authenticated employee ID from the context.
func GetEmployeeID(ctx context.Context) string {
	employeeID, ok := ctx.Value(ContextKeyEmployeeID).(string)
	if !ok {
		return ""
	}
	return employeeID
}

// GetOrganisationID retrieves the organisation ID from the context.
func GetOrganisationID(ctx context.Context) string {
	organisationID, ok := ctx.Value(ContextKeyOrganisationID).(string)
	if !ok {
		return ""
	}
	return organisationID
}

// IsAdmin reports whether the authenticated identity carries the admin claim.
func IsAdmin(ctx context.Context) bool {
	admin, ok := ctx.Value(ContextKeyAdmin).(bool)
	return ok && admin
}

// RequireAuth rejects requests without a valid bearer token and stores the
// employee identity in the request context for handlers.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				unauthorized(w)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				unauthorized(w)
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, ContextKeyEmployeeID, claims.EmployeeID)
			ctx = context.WithValue(ctx, ContextKeyOrganisationID, claims.OrganisationID)
			ctx = context.WithValue(ctx, ContextKeyAdmin, claims.Admin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects authenticated requests lacking the admin claim. Must
// run after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(r.Context()) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"code":"FORBIDDEN","message":"admin claim required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"code":"UNAUTHORIZED","message":"invalid or expired token"}`))
}
