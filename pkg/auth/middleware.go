package auth

import (
	"strings"

	binderr "github.com/fairtrace/fairtrace/pkg/api/binding/errors"
	"github.com/labstack/echo/v4"
)

const (
	principalKey = "fairtrace.principal"

	// ActAsHeader is the header where platform operators name the node to act for.
	ActAsHeader = "X-Fairtrace-Node"
)

// Middleware verifies bearer tokens, and puts the principal into the echo context.
func Middleware(secret []byte, issuer string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header.Get("Authorization")
			token, ok := strings.CutPrefix(h, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				return binderr.Unauthorized(`"Authorization: Bearer" is required`, nil)
			}
			p, err := Verify(secret, issuer, strings.TrimSpace(token))
			if err != nil {
				return binderr.Unauthorized("invalid token", err)
			}
			c.Set(principalKey, p)
			return next(c)
		}
	}
}

// PrincipalOf returns the principal put by Middleware.
func PrincipalOf(c echo.Context) (Principal, bool) {
	p, ok := c.Get(principalKey).(Principal)
	return p, ok
}

// WithPrincipal puts the principal into the echo context, as Middleware does.
func WithPrincipal(c echo.Context, p Principal) {
	c.Set(principalKey, p)
}

// Acting tells the node which the request acts for.
//
// It reads ActAsHeader.
func Acting(c echo.Context) (Principal, string, error) {
	p, ok := PrincipalOf(c)
	if !ok {
		return p, "", binderr.Unauthorized("not authenticated", nil)
	}
	nodeId, err := p.ActingNode(c.Request().Header.Get(ActAsHeader))
	if err != nil {
		return p, "", binderr.FromDB(err)
	}
	return p, nodeId, nil
}
