// Package middleware holds echo middleware shared by the HTTP handlers.
package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/burgerbar/internal/entity"
	"github.com/Additional-Code/burgerbar/internal/presentation/http/response"
	authservice "github.com/Additional-Code/burgerbar/internal/service/auth"
	"github.com/Additional-Code/burgerbar/pkg/errorbank"
)

const claimsKey = "auth.claims"

// Messages returned when a request is not allowed through.
const (
	MessageMissingHeader = "Missing or invalid Authorization header"
	MessageUnauthorized  = "Unauthorized"
	MessageForbidden     = "Forbidden: insufficient permissions"
)

// Verifier validates bearer tokens.
type Verifier interface {
	Verify(token string) (*authservice.Claims, error)
}

// Authenticate requires a valid bearer token and stores its claims on the context.
func Authenticate(v Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				return response.New(c).WithError(errorbank.Unauthorized(MessageMissingHeader)).Build()
			}
			claims, err := v.Verify(strings.TrimSpace(token))
			if err != nil {
				return response.New(c).WithError(errorbank.Unauthorized(authservice.MessageInvalidToken)).Build()
			}
			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

// RequireRole lets the request through only when the caller has one of roles.
// It must run after Authenticate.
func RequireRole(roles ...entity.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFrom(c)
			if !ok {
				return response.New(c).WithError(errorbank.Unauthorized(MessageUnauthorized)).Build()
			}
			for _, role := range roles {
				if claims.Role == role {
					return next(c)
				}
			}
			return response.New(c).WithError(errorbank.Forbidden(MessageForbidden)).Build()
		}
	}
}

// ClaimsFrom returns the claims stored by Authenticate.
func ClaimsFrom(c echo.Context) (*authservice.Claims, bool) {
	claims, ok := c.Get(claimsKey).(*authservice.Claims)
	return claims, ok && claims != nil
}
