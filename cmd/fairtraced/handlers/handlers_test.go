package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	apierr "github.com/fairtrace/fairtrace/pkg/api/types/errors"
	"github.com/fairtrace/fairtrace/pkg/auth"
	"github.com/labstack/echo/v4"
)

var (
	member   = auth.Principal{User: "alice", NodeId: "node-a", Role: auth.Member}
	admin    = auth.Principal{User: "root", NodeId: "node-a", Role: auth.Admin}
	platform = auth.Principal{User: "operator", Role: auth.Platform}
)

// as puts the principal and path params into the context.
func as(c echo.Context, p auth.Principal, params ...string) echo.Context {
	auth.WithPrincipal(c, p)
	names, values := []string{}, []string{}
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	return c
}

// codeOf is the status code of the error returned by handlers. 0 if it is not *echo.HTTPError.
func codeOf(err error) int {
	herr := new(echo.HTTPError)
	if errors.As(err, &herr) {
		return herr.Code
	}
	return 0
}

// messageOf is the error message in the body of an *echo.HTTPError.
func messageOf(t *testing.T, err error) apierr.ErrorMessage {
	t.Helper()
	herr := new(echo.HTTPError)
	if !errors.As(err, &herr) {
		t.Fatalf("not an HTTPError: %v", err)
	}
	msg, ok := herr.Message.(apierr.ErrorMessage)
	if !ok {
		t.Fatalf("unexpected message: %#v", herr.Message)
	}
	return msg
}

func body[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	out := new(T)
	if err := json.Unmarshal(resp.Body.Bytes(), out); err != nil {
		t.Fatalf("response is not json: %s (%s)", err, resp.Body.String())
	}
	return *out
}
