// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/amirphl/nightpulse/app/dto"
	"github.com/amirphl/nightpulse/app/services"
	"github.com/amirphl/nightpulse/config"
	"github.com/gofiber/fiber/v3"
)

// AuthMiddleware handles identity tokens, the admin allow-list and the cron secret
type AuthMiddleware struct {
	tokenService services.TokenService
	adminEmails  map[string]bool
	adminUIDs    map[string]bool
	cronSecret   string
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService, admin config.AdminConfig, cron config.CronConfig) *AuthMiddleware {
	m := &AuthMiddleware{
		tokenService: tokenService,
		adminEmails:  make(map[string]bool, len(admin.Emails)),
		adminUIDs:    make(map[string]bool, len(admin.UIDs)),
		cronSecret:   cron.Secret,
	}
	for _, e := range admin.Emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			m.adminEmails[e] = true
		}
	}
	for _, u := range admin.UIDs {
		if u = strings.TrimSpace(u); u != "" {
			m.adminUIDs[u] = true
		}
	}
	return m
}

func bearerToken(c fiber.Ctx) (string, bool) {
	authHeader := c.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}

func unauthorized(c fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: code},
	})
}

func storeClaims(c fiber.Ctx, claims *services.TokenClaims) {
	c.Locals("uid", claims.UID)
	c.Locals("email", claims.Email)
	c.Locals("token_claims", claims)
}

// Authenticate is the middleware function that validates identity tokens
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		if c.Get("Authorization") == "" {
			return unauthorized(c, "MISSING_AUTHORIZATION_HEADER", "Authorization header is required")
		}
		token, ok := bearerToken(c)
		if !ok {
			return unauthorized(c, "INVALID_AUTHORIZATION_FORMAT", "Invalid authorization header format. Expected 'Bearer <token>'")
		}

		claims, err := m.tokenService.ValidateToken(token)
		if err != nil {
			if errors.Is(err, services.ErrTokenExpired) {
				return unauthorized(c, "TOKEN_EXPIRED", "Access token has expired")
			}
			return unauthorized(c, "TOKEN_INVALID", "Invalid access token")
		}

		storeClaims(c, claims)
		return c.Next()
	}
}

// OptionalAuth validates a token if present but never rejects the request
func (m *AuthMiddleware) OptionalAuth() fiber.Handler {
	return func(c fiber.Ctx) error {
		token, ok := bearerToken(c)
		if !ok {
			return c.Next()
		}
		if claims, err := m.tokenService.ValidateToken(token); err == nil {
			storeClaims(c, claims)
		}
		return c.Next()
	}
}

// IsAdmin reports whether an identity is on an allow-list
func (m *AuthMiddleware) IsAdmin(claims *services.TokenClaims) bool {
	if claims == nil {
		return false
	}
	return m.adminUIDs[claims.UID] || (claims.Email != "" && m.adminEmails[claims.Email])
}

// RequireAdmin must run after Authenticate
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return func(c fiber.Ctx) error {
		claims, ok := GetTokenClaimsFromContext(c)
		if !ok {
			return unauthorized(c, "AUTHENTICATION_REQUIRED", "Authentication required")
		}
		if !m.IsAdmin(claims) {
			return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
				Success: false,
				Message: "Admin access required",
				Error:   dto.ErrorDetail{Code: "FORBIDDEN"},
			})
		}
		c.Locals("is_admin", true)
		return c.Next()
	}
}

// CronAuth accepts the shared secret from the key query parameter, the
// x-cron-key header or a bearer token
func (m *AuthMiddleware) CronAuth() fiber.Handler {
	return func(c fiber.Ctx) error {
		if m.cronSecret == "" {
			return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
				Success: false,
				Message: "Cron endpoints are disabled",
				Error:   dto.ErrorDetail{Code: "CRON_DISABLED"},
			})
		}

		candidates := []string{c.Query("key"), c.Get("x-cron-key")}
		if token, ok := bearerToken(c); ok {
			candidates = append(candidates, token)
		}
		for _, candidate := range candidates {
			if candidate != "" && subtle.ConstantTimeCompare([]byte(candidate), []byte(m.cronSecret)) == 1 {
				return c.Next()
			}
		}
		return unauthorized(c, "INVALID_CRON_KEY", "Invalid cron key")
	}
}

// GetUIDFromContext extracts the caller's uid from the request context
func GetUIDFromContext(c fiber.Ctx) (string, bool) {
	uid, ok := c.Locals("uid").(string)
	return uid, ok && uid != ""
}

// GetEmailFromContext extracts the caller's email from the request context
func GetEmailFromContext(c fiber.Ctx) string {
	email, _ := c.Locals("email").(string)
	return email
}

// GetTokenClaimsFromContext extracts token claims from the request context
func GetTokenClaimsFromContext(c fiber.Ctx) (*services.TokenClaims, bool) {
	claims, ok := c.Locals("token_claims").(*services.TokenClaims)
	return claims, ok && claims != nil
}
