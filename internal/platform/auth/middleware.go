package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserRolesKey contextKey = "user_roles"
)

// Dashboard roles. Admin passes every role check.
const (
	RoleAdmin   = "admin"
	RoleAnalyst = "analyst"
)

type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

type JWTConfig struct {
	Issuer     string
	Audience   string
	SigningKey []byte
}

// JWTMiddleware validates HMAC-signed bearer tokens and places the subject
// and roles on the request context.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	keyFunc := func(t *jwt.Token) (interface{}, error) {
		return cfg.SigningKey, nil
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, keyFunc, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.SetRequest(c.Request().WithContext(withIdentity(c.Request().Context(), claims.Subject, claims.Roles)))
			return next(c)
		}
	}
}

// DevAuthMiddleware grants every request the admin role. Only wired when
// AUTH_MODE resolves to "development".
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := withIdentity(c.Request().Context(), "dev-user", []string{RoleAdmin})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func withIdentity(ctx context.Context, userID string, roles []string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, UserRolesKey, roles)
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}
