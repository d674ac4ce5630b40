package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// Middleware returns echo middleware that authenticates requests with a
// Bearer access token. Tokens whose jti has been blacklisted (logout) are
// rejected. On success the verified claims are placed on the request
// context for handlers and RequireRole.
func Middleware(issuer *TokenIssuer, blacklist Blacklist) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := issuer.Parse(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			revoked, err := blacklist.IsBlacklisted(c.Request().Context(), claims.JTI())
			if err != nil {
				log.Error().Err(err).Msg("blacklist lookup failed")
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if revoked {
				return echo.NewHTTPError(http.StatusUnauthorized, "token has been revoked")
			}

			c.SetRequest(c.Request().WithContext(WithClaims(c.Request().Context(), claims)))
			return next(c)
		}
	}
}
