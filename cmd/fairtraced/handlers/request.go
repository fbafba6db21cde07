package handlers

import (
	"encoding/json"
	"mime"
	"strconv"
	"time"

	binderr "github.com/fairtrace/fairtrace/pkg/api/binding/errors"
	bindledger "github.com/fairtrace/fairtrace/pkg/api/binding/ledger"
	"github.com/fairtrace/fairtrace/pkg/auth"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/labstack/echo/v4"
)

// decode the request body as json into v.
//
// The returned error is an *echo.HTTPError.
func decode(c echo.Context, v any) error {
	req := c.Request()
	mt, _, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if err != nil || mt != "application/json" {
		return binderr.BadRequest("unexpected content type. it should be application/json", err)
	}
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		return binderr.BadRequest("can not understand the requested json", err)
	}
	return nil
}

// admin returns the principal if it may manage shared definitions.
func admin(c echo.Context) (auth.Principal, error) {
	p, ok := auth.PrincipalOf(c)
	if !ok {
		return p, binderr.Unauthorized("not authenticated", nil)
	}
	if !p.IsAdmin() {
		return p, binderr.Forbidden("admin or platform role is required", nil)
	}
	return p, nil
}

// allowed checks the principal may see records of the node.
func allowed(c echo.Context, nodeId string) error {
	p, ok := auth.PrincipalOf(c)
	if !ok {
		return binderr.Unauthorized("not authenticated", nil)
	}
	if !p.Can(nodeId) {
		return binderr.FromDB(fdb.NewErrForbidden(p.NodeId, "read records of node "+nodeId))
	}
	return nil
}

// nodeQuery reads the node from the query. It defaults to the acting node.
func nodeQuery(c echo.Context, name string) (string, error) {
	_, acting, err := auth.Acting(c)
	if err != nil {
		return "", err
	}
	nodeId := c.QueryParam(name)
	if nodeId == "" {
		return acting, nil
	}
	if err := allowed(c, nodeId); err != nil {
		return "", err
	}
	return nodeId, nil
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, binderr.BadRequest(name+" should be an integer", err)
	}
	return i, nil
}

func queryTime(c echo.Context, name string) (*time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	t, err := bindledger.ParseDate(v)
	if err != nil {
		return nil, binderr.BadRequest(name+" should be 2006-01-02 or RFC3339", err)
	}
	return &t, nil
}
