package http

import (
	"github.com/labstack/echo/v4"

	"github.com/xpresstask/core/internal/ports"
)

const identityKey = "identity"

// SetIdentity stores the verified caller on the request context
func SetIdentity(c echo.Context, identity ports.Identity) {
	c.Set(identityKey, identity)
}

// IdentityFromContext returns the caller stored by SetIdentity
func IdentityFromContext(c echo.Context) (ports.Identity, bool) {
	identity, ok := c.Get(identityKey).(ports.Identity)
	return identity, ok
}
