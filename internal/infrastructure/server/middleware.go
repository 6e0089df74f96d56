package server

import (
	"strings"

	"github.com/labstack/echo/v4"

	httpHandlers "github.com/xpresstask/core/internal/adapters/http"
	"github.com/xpresstask/core/internal/domain/entities"
	"github.com/xpresstask/core/internal/ports"
)

// authMiddleware requires a valid bearer token and stores the caller's
// identity for the handler
func (s *Server) authMiddleware(authService ports.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return entities.ErrMissingToken
			}

			tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				return entities.ErrMissingToken
			}

			identity, err := authService.Verify(strings.TrimSpace(tokenString))
			if err != nil {
				s.logger.LogSecurityEvent("invalid_token", "", c.RealIP(), map[string]interface{}{
					"error":    err.Error(),
					"endpoint": c.Request().URL.Path,
				})
				return err
			}

			httpHandlers.SetIdentity(c, *identity)

			return next(c)
		}
	}
}
