package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/field-interventions/internal/policy"
)

// Context keys set by JWTAuth.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
	ctxCaller = "caller"
)

// CallerFrom returns the authenticated caller stored by JWTAuth, or the
// anonymous zero Caller.
func CallerFrom(c echo.Context) policy.Caller {
	if v, ok := c.Get(ctxCaller).(policy.Caller); ok {
		return v
	}
	return policy.Caller{}
}

// SetCaller stores the caller on the context.  Tests use it to bypass
// token parsing.
func SetCaller(c echo.Context, caller policy.Caller) {
	c.Set(ctxCaller, caller)
	c.Set(ctxUserID, caller.ID)
	c.Set(ctxRole, string(caller.Role))
}

// userKey identifies the caller in rate-limit and cache keys: the user id,
// or "anon".
func userKey(c echo.Context) string {
	if caller := CallerFrom(c); caller.Authenticated() {
		return strconv.FormatUint(caller.ID, 10)
	}
	return "anon"
}
