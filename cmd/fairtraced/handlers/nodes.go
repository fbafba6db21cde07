package handlers

import (
	"context"
	"net/http"

	binderr "github.com/fairtrace/fairtrace/pkg/api/binding/errors"
	bindnodes "github.com/fairtrace/fairtrace/pkg/api/binding/nodes"
	apinodes "github.com/fairtrace/fairtrace/pkg/api/types/nodes"
	"github.com/fairtrace/fairtrace/pkg/auth"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/fairtrace/fairtrace/pkg/network"
	"github.com/fairtrace/fairtrace/pkg/utils"
	"github.com/labstack/echo/v4"
)

const (
	// depth of networks when the request does not tell.
	DefaultNetworkDepth = 3

	// networks deeper than this are refused.
	MaxNetworkDepth = 10
)

func CreateSupplyChainHandler(dbnodes fdb.NodeInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := admin(c); err != nil {
			return err
		}
		spec := apinodes.SupplyChainSpec{}
		if err := decode(c, &spec); err != nil {
			return err
		}
		if spec.Name == "" {
			return binderr.BadRequest("name is required", nil)
		}
		sc, err := dbnodes.CreateSupplyChain(c.Request().Context(), spec.Name)
		if err != nil {
			return binderr.FromDB(err)
		}
		return c.JSON(http.StatusOK, bindnodes.ComposeSupplyChain(sc))
	}
}

func ListSupplyChainsHandler(dbnodes fdb.NodeInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		scs, err := dbnodes.SupplyChains(c.Request().Context())
		if err != nil {
			return binderr.FromDB(err)
		}
		return c.JSON(http.StatusOK, utils.Map(scs, bindnodes.ComposeSupplyChain))
	}
}

func CreateProductHandler(dbnodes fdb.NodeInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := admin(c); err != nil {
			return err
		}
		spec := apinodes.ProductSpec{}
		if err := decode(c, &spec); err != nil {
			return err
		}
		if spec.SupplyChainId == "" {
			return binderr.BadRequest("supplyChainId is required", nil)
		}
		if spec.Name == "" {
			return binderr.BadRequest("name is required", nil)
		}
		p, err := dbnodes.CreateProduct(c.Request().Context(), spec.SupplyChainId, spec.Name)
		if err != nil {
			return binderr.FromDB(err)
		}
		return c.JSON(http.StatusOK, bindnodes.ComposeProduct(p))
	}
}

func ListProductsHandler(dbnodes fdb.NodeInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ps, err := dbnodes.Products(c.Request().Context(), c.QueryParam("supply_chain"))
		if err != nil {
			return binderr.FromDB(err)
		}
		return c.JSON(http.StatusOK, utils.Map(ps, bindnodes.ComposeProduct))
	}
}

// CreateNodeHandler registers companies or verifiers.
func CreateNodeHandler(dbnodes fdb.NodeInterface, typ fdb.NodeType) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := admin(c); err != nil {
			return err
		}
		spec := apinodes.NodeSpec{}
		if err := decode(c, &spec); err != nil {
			return err
		}
		param, err := bindnodes.ParseNodeSpec(typ, spec).Validate()
		if err != nil {
			return binderr.FromDB(err)
		}
		n, err := dbnodes.Create(c.Request().Context(), param)
		if err != nil {
			return binderr.FromDB(err)
		}
		return c.JSON(http.StatusOK, bindnodes.ComposeNode(n))
	}
}

// CreateFarmerHandler registers a farmer supplying the acting node.
func CreateFarmerHandler(dbnodes fdb.NodeInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		_, acting, err := auth.Acting(c)
		if err != nil {
			return err
		}
		spec := apinodes.FarmerSpec{}
		if err := decode(c, &spec); err != nil {
			return err
		}
		if spec.SupplyChainId == "" {
			return binderr.BadRequest("supplyChainId is required", nil)
		}
		param, err := bindnodes.ParseNodeSpec(fdb.Farmer, spec.NodeSpec).Validate()
		if err != nil {
			return binderr.FromDB(err)
		}
		n, err := dbnodes.CreateFarmer(c.Request().Context(), acting, spec.SupplyChainId, param)
		if err != nil {
			return binderr.FromDB(err)
		}
		return c.JSON(http.StatusOK, bindnodes.ComposeNode(n))
	}
}

func FindNodesHandler(dbnodes fdb.NodeInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		q := fdb.NodeQuery{
			Name:          c.QueryParam("name"),
			SupplyChainId: c.QueryParam("supply_chain"),
		}
		if t := c.QueryParam("type"); t != "" {
			typ, err := fdb.AsNodeType(t)
			if err != nil {
				return binderr.FromDB(err)
			}
			q.Type = typ
		}
		nodes, err := dbnodes.Find(c.Request().Context(), q)
		if err != nil {
			return binderr.FromDB(err)
		}
		return c.JSON(http.StatusOK, utils.Map(nodes, bindnodes.ComposeNode))
	}
}

func GetNodeHandler(dbnodes fdb.NodeInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		nodeId := c.Param(param)
		nodes, err := dbnodes.Get(c.Request().Context(), []string{nodeId})
		if err != nil {
			return binderr.FromDB(err)
		}
		n, ok := nodes[nodeId]
		if !ok {
			return binderr.NotFound()
		}
		return c.JSON(http.StatusOK, bindnodes.ComposeNode(n))
	}
}

// NetworkHandler maps the supply chain around the node.
func NetworkHandler(dbnodes fdb.NodeInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		nodeId := c.Param(param)
		if err := allowed(c, nodeId); err != nil {
			return err
		}
		sc := c.QueryParam("supply_chain")
		if sc == "" {
			return binderr.BadRequest("supply_chain is required", nil)
		}
		depth, err := queryInt(c, "depth", DefaultNetworkDepth)
		if err != nil {
			return err
		}
		if depth < 1 || MaxNetworkDepth < depth {
			return binderr.BadRequest("depth should be in 1..10", nil)
		}

		net, err := network.Map(
			ctx, nodeId, depth,
			func(ctx context.Context, ids []string, d fdb.Direction) ([]fdb.Connection, error) {
				return dbnodes.Neighbors(ctx, sc, ids, d)
			},
		)
		if err != nil {
			return binderr.FromDB(err)
		}

		ids := []string{}
		for _, tier := range net.Tiers {
			ids = append(ids, tier...)
		}
		nodes, err := dbnodes.Get(ctx, ids)
		if err != nil {
			return binderr.FromDB(err)
		}
		return c.JSON(http.StatusOK, bindnodes.ComposeNetwork(net, nodes))
	}
}

// NeighborsHandler lists suppliers (Upstream) or buyers (Downstream) of the node.
func NeighborsHandler(dbnodes fdb.NodeInterface, param string, direction fdb.Direction) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		nodeId := c.Param(param)
		if err := allowed(c, nodeId); err != nil {
			return err
		}
		sc := c.QueryParam("supply_chain")
		if sc == "" {
			return binderr.BadRequest("supply_chain is required", nil)
		}

		conns, err := dbnodes.Neighbors(ctx, sc, []string{nodeId}, direction)
		if err != nil {
			return binderr.FromDB(err)
		}
		ids := utils.Map(conns, func(conn fdb.Connection) string {
			if direction == fdb.Upstream {
				return conn.SupplierId
			}
			return conn.BuyerId
		})
		nodes, err := dbnodes.Get(ctx, ids)
		if err != nil {
			return binderr.FromDB(err)
		}

		resp := []apinodes.Node{}
		for _, id := range utils.Uniq(ids) {
			if n, ok := nodes[id]; ok {
				resp = append(resp, bindnodes.ComposeNode(n))
			}
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func InviteHandler(dbnodes fdb.NodeInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		_, acting, err := auth.Acting(c)
		if err != nil {
			return err
		}
		spec := apinodes.InvitationSpec{}
		if err := decode(c, &spec); err != nil {
			return err
		}
		param, err := bindnodes.ParseInvitationSpec(acting, spec)
		if err != nil {
			return binderr.FromDB(err)
		}
		if param.InviteeId == "" {
			if param.Invitee, err = param.Invitee.Validate(); err != nil {
				return binderr.FromDB(err)
			}
		}
		inv, err := dbnodes.Invite(c.Request().Context(), param)
		if err != nil {
			return binderr.FromDB(err)
		}
		return c.JSON(http.StatusOK, bindnodes.ComposeInvitation(inv))
	}
}

func AcceptHandler(dbnodes fdb.NodeInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		_, acting, err := auth.Acting(c)
		if err != nil {
			return err
		}
		inv, err := dbnodes.Accept(c.Request().Context(), c.Param(param), acting)
		if err != nil {
			return binderr.FromDB(err)
		}
		return c.JSON(http.StatusOK, bindnodes.ComposeInvitation(inv))
	}
}
