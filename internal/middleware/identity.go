package middleware

// identity.go resolves the reservation owner for a request. Authenticated
// users are identified by the JWT subject set by JWTAuth; anonymous shoppers
// by the X-Session-ID header their storefront session carries. The two are
// kept apart as tagged owner kinds so a user id and a session id can never
// be confused for one another.

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/stock-reservation/internal/model"
)

// sessionHeader carries the anonymous session identifier.
const sessionHeader = "X-Session-ID"

// Owner extracts the reservation owner from the request context. The JWT
// subject wins over a session header when both are present.
func Owner(c echo.Context) (model.Owner, bool) {
	if v := c.Get("user_id"); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return model.UserOwner(s), true
		}
	}
	if sid := c.Request().Header.Get(sessionHeader); sid != "" {
		return model.SessionOwner(sid), true
	}
	return model.Owner{}, false
}

// RequireOwner rejects requests that carry neither a valid access token nor
// a session id. Reservation endpoints need an owner to hold against.
func RequireOwner(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := Owner(c); !ok {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing owner identity"})
		}
		return next(c)
	}
}
