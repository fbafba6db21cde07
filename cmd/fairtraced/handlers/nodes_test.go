package handlers_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/fairtrace/fairtrace/cmd/fairtraced/handlers"
	httptestutil "github.com/fairtrace/fairtrace/internal/testutils/http"
	apinodes "github.com/fairtrace/fairtrace/pkg/api/types/nodes"
	"github.com/fairtrace/fairtrace/pkg/auth"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/fairtrace/fairtrace/pkg/db/mocks"
	"github.com/google/go-cmp/cmp"
	"github.com/labstack/echo/v4"
)

func TestCreateSupplyChainHandler(t *testing.T) {
	type when struct {
		principal auth.Principal
		body      string
		ctype     string
	}
	type then struct {
		code   int
		called uint
	}

	for name, testcase := range map[string]struct {
		when
		then
	}{
		"when an admin requests, it creates the supply chain": {
			when{principal: admin, body: `{"name": "coffee"}`, ctype: "application/json"},
			then{code: http.StatusOK, called: 1},
		},
		"when a member requests, it is forbidden": {
			when{principal: member, body: `{"name": "coffee"}`, ctype: "application/json"},
			then{code: http.StatusForbidden},
		},
		"when the name is empty, it is a bad request": {
			when{principal: platform, body: `{"name": ""}`, ctype: "application/json"},
			then{code: http.StatusBadRequest},
		},
		"when the body is not json, it is a bad request": {
			when{principal: admin, body: `name=coffee`, ctype: "application/x-www-form-urlencoded"},
			then{code: http.StatusBadRequest},
		},
	} {
		t.Run(name, func(t *testing.T) {
			dbnodes := mocks.NewMockNodeInterface()
			dbnodes.Impl.CreateSupplyChain = func(ctx context.Context, name string) (fdb.SupplyChain, error) {
				return fdb.SupplyChain{Id: "sc-1", Name: name}, nil
			}

			e := echo.New()
			c, resp := httptestutil.Post(
				e, "/api/supply-chains/", strings.NewReader(testcase.when.body),
				httptestutil.ContentType(testcase.when.ctype),
			)
			err := handlers.CreateSupplyChainHandler(dbnodes)(as(c, testcase.when.principal))

			if testcase.then.code != http.StatusOK {
				if got := codeOf(err); got != testcase.then.code {
					t.Errorf("status: %d (%v), want %d", got, err, testcase.then.code)
				}
			} else {
				if err != nil {
					t.Fatal(err)
				}
				got := body[apinodes.SupplyChain](t, resp)
				want := apinodes.SupplyChain{Id: "sc-1", Name: "coffee"}
				if !cmp.Equal(got, want) {
					t.Errorf("response: %s", cmp.Diff(want, got))
				}
			}
			if got := dbnodes.Calls.CreateSupplyChain.Times(); got != testcase.then.called {
				t.Errorf("CreateSupplyChain is called %d times, want %d", got, testcase.then.called)
			}
		})
	}
}

func TestCreateFarmerHandler(t *testing.T) {
	const reqBody = `{"supplyChainId": "sc-1", "firstName": "Ana", "lastName": "Lopez", "country": "CO", "phone": "+57 300 1234567"}`

	for name, testcase := range map[string]struct {
		principal auth.Principal
		actAs     string
		wantCode  int
		wantActor string
	}{
		"when a member registers a farmer, the farmer supplies the member's node": {
			principal: member, wantCode: http.StatusOK, wantActor: "node-a",
		},
		"when the platform acts for a node, the farmer supplies that node": {
			principal: platform, actAs: "node-b", wantCode: http.StatusOK, wantActor: "node-b",
		},
		"when a member acts for another node, it is forbidden": {
			principal: member, actAs: "node-b", wantCode: http.StatusForbidden,
		},
	} {
		t.Run(name, func(t *testing.T) {
			dbnodes := mocks.NewMockNodeInterface()
			dbnodes.Impl.CreateFarmer = func(ctx context.Context, creatorId string, supplyChainId string, param fdb.NodeParam) (fdb.Node, error) {
				return fdb.Node{
					Id: "farmer-1", Type: fdb.Farmer, Status: fdb.NodeActive,
					Name: param.Name, FirstName: param.FirstName, LastName: param.LastName,
					Country: param.Country, Phone: param.Phone,
				}, nil
			}

			opts := []httptestutil.RequestOption{httptestutil.ContentType("application/json")}
			if testcase.actAs != "" {
				opts = append(opts, httptestutil.WithHeader(auth.ActAsHeader, testcase.actAs))
			}
			c, resp := httptestutil.Post(echo.New(), "/api/nodes/farmers/", strings.NewReader(reqBody), opts...)
			err := handlers.CreateFarmerHandler(dbnodes)(as(c, testcase.principal))

			if testcase.wantCode != http.StatusOK {
				if got := codeOf(err); got != testcase.wantCode {
					t.Errorf("status: %d (%v), want %d", got, err, testcase.wantCode)
				}
				if dbnodes.Calls.CreateFarmer.Times() != 0 {
					t.Error("CreateFarmer is called")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if dbnodes.Calls.CreateFarmer.Times() != 1 {
				t.Fatalf("CreateFarmer is called %d times", dbnodes.Calls.CreateFarmer.Times())
			}
			call := dbnodes.Calls.CreateFarmer[0]
			if call.CreatorId != testcase.wantActor || call.SupplyChainId != "sc-1" {
				t.Errorf("creator, supply chain = %s, %s", call.CreatorId, call.SupplyChainId)
			}
			if call.Param.Phone != "+573001234567" || call.Param.Name != "Ana Lopez" {
				t.Errorf("param is not normalized: %+v", call.Param)
			}
			if got := body[apinodes.Node](t, resp); got.Name != "Ana Lopez" || got.Type != "farmer" {
				t.Errorf("response: %+v", got)
			}
		})
	}

	t.Run("when the farmer lacks last name, it is a bad request", func(t *testing.T) {
		dbnodes := mocks.NewMockNodeInterface()
		c, _ := httptestutil.Post(
			echo.New(), "/api/nodes/farmers/",
			strings.NewReader(`{"supplyChainId": "sc-1", "firstName": "Ana", "country": "CO"}`),
			httptestutil.ContentType("application/json"),
		)
		err := handlers.CreateFarmerHandler(dbnodes)(as(c, member))
		if got := codeOf(err); got != http.StatusBadRequest {
			t.Errorf("status: %d (%v)", got, err)
		}
	})
}

func TestNetworkHandler(t *testing.T) {
	// a <- s1 <- s2, b <- a (b buys from a)
	conns := []fdb.Connection{
		{Id: "c1", SupplyChainId: "sc-1", BuyerId: "node-a", SupplierId: "s1", Status: fdb.ConnectionActive},
		{Id: "c2", SupplyChainId: "sc-1", BuyerId: "s1", SupplierId: "s2", Status: fdb.ConnectionActive},
		{Id: "c3", SupplyChainId: "sc-1", BuyerId: "b", SupplierId: "node-a", Status: fdb.ConnectionActive},
	}
	neighbors := func(ctx context.Context, sc string, ids []string, d fdb.Direction) ([]fdb.Connection, error) {
		out := []fdb.Connection{}
		for _, c := range conns {
			for _, id := range ids {
				if (d == fdb.Upstream && c.BuyerId == id) || (d == fdb.Downstream && c.SupplierId == id) {
					out = append(out, c)
				}
			}
		}
		return out, nil
	}
	get := func(ctx context.Context, ids []string) (map[string]fdb.Node, error) {
		out := map[string]fdb.Node{}
		for _, id := range ids {
			out[id] = fdb.Node{Id: id, Type: fdb.Company, Name: "name of " + id}
		}
		return out, nil
	}

	t.Run("when the node is mapped, it responds tiers by distance", func(t *testing.T) {
		dbnodes := mocks.NewMockNodeInterface()
		dbnodes.Impl.Neighbors = neighbors
		dbnodes.Impl.Get = get

		c, resp := httptestutil.Get(echo.New(), "/api/nodes/node-a/network/?supply_chain=sc-1&depth=2")
		if err := handlers.NetworkHandler(dbnodes, "nodeId")(as(c, member, "nodeId", "node-a")); err != nil {
			t.Fatal(err)
		}

		got := body[apinodes.Network](t, resp)
		want := []apinodes.Tier{
			{Tier: -1, Nodes: []string{"b"}},
			{Tier: 0, Nodes: []string{"node-a"}},
			{Tier: 1, Nodes: []string{"s1"}},
			{Tier: 2, Nodes: []string{"s2"}},
		}
		if !cmp.Equal(got.Tiers, want) {
			t.Errorf("tiers: %s", cmp.Diff(want, got.Tiers))
		}
		if len(got.Nodes) != 4 || len(got.Connections) != 3 {
			t.Errorf("nodes: %d, connections: %d", len(got.Nodes), len(got.Connections))
		}
		for _, call := range dbnodes.Calls.Neighbors {
			if call.SupplyChainId != "sc-1" {
				t.Errorf("neighbors in other supply chain: %s", call.SupplyChainId)
			}
		}
	})

	for name, testcase := range map[string]struct {
		target    string
		principal auth.Principal
		want      int
	}{
		"when depth is out of range, it is a bad request": {
			target: "/api/nodes/node-a/network/?supply_chain=sc-1&depth=11", principal: member,
			want: http.StatusBadRequest,
		},
		"when supply chain is not given, it is a bad request": {
			target: "/api/nodes/node-a/network/", principal: member,
			want: http.StatusBadRequest,
		},
		"when a member maps a node of others, it is forbidden": {
			target: "/api/nodes/node-z/network/?supply_chain=sc-1", principal: member,
			want: http.StatusForbidden,
		},
	} {
		t.Run(name, func(t *testing.T) {
			dbnodes := mocks.NewMockNodeInterface()
			nodeId := strings.Split(testcase.target, "/")[3]
			c, _ := httptestutil.Get(echo.New(), testcase.target)
			err := handlers.NetworkHandler(dbnodes, "nodeId")(as(c, testcase.principal, "nodeId", nodeId))
			if got := codeOf(err); got != testcase.want {
				t.Errorf("status: %d (%v), want %d", got, err, testcase.want)
			}
		})
	}
}

func TestNeighborsHandler(t *testing.T) {
	dbnodes := mocks.NewMockNodeInterface()
	dbnodes.Impl.Neighbors = func(ctx context.Context, sc string, ids []string, d fdb.Direction) ([]fdb.Connection, error) {
		return []fdb.Connection{
			{Id: "c1", BuyerId: "node-a", SupplierId: "farmer-2"},
			{Id: "c2", BuyerId: "node-a", SupplierId: "farmer-1"},
		}, nil
	}
	dbnodes.Impl.Get = func(ctx context.Context, ids []string) (map[string]fdb.Node, error) {
		return map[string]fdb.Node{
			"farmer-1": {Id: "farmer-1", Type: fdb.Farmer},
			"farmer-2": {Id: "farmer-2", Type: fdb.Farmer},
		}, nil
	}

	c, resp := httptestutil.Get(echo.New(), "/api/nodes/node-a/suppliers/?supply_chain=sc-1")
	err := handlers.NeighborsHandler(dbnodes, "nodeId", fdb.Upstream)(as(c, member, "nodeId", "node-a"))
	if err != nil {
		t.Fatal(err)
	}
	got := body[[]apinodes.Node](t, resp)
	if len(got) != 2 || got[0].Id != "farmer-2" || got[1].Id != "farmer-1" {
		t.Errorf("suppliers: %+v", got)
	}
	if call := dbnodes.Calls.Neighbors[0]; call.Direction != fdb.Upstream || !cmp.Equal(call.NodeIds, []string{"node-a"}) {
		t.Errorf("neighbors: %+v", call)
	}
}

func TestInviteHandler(t *testing.T) {
	t.Run("when a new company is invited as a supplier, the acting node is the inviter", func(t *testing.T) {
		dbnodes := mocks.NewMockNodeInterface()
		dbnodes.Impl.Invite = func(ctx context.Context, param fdb.InvitationParam) (fdb.Invitation, error) {
			return fdb.Invitation{
				Id: "inv-1", SupplyChainId: param.SupplyChainId, InviterId: param.InviterId,
				InviteeId: "node-new", Relation: param.Relation, Status: fdb.InvitationPending,
			}, nil
		}
		c, resp := httptestutil.Post(
			echo.New(), "/api/invitations/",
			strings.NewReader(`{"supplyChainId": "sc-1", "relation": "supplier", "invitee": {"name": " Coop ", "country": "PE"}}`),
			httptestutil.ContentType("application/json"),
		)
		if err := handlers.InviteHandler(dbnodes)(as(c, member)); err != nil {
			t.Fatal(err)
		}
		param := dbnodes.Calls.Invite[0]
		if param.InviterId != "node-a" || param.Relation != fdb.AsSupplier || param.Invitee.Name != "Coop" {
			t.Errorf("param: %+v", param)
		}
		if got := body[apinodes.Invitation](t, resp); got.Status != "pending" || got.InviteeId != "node-new" {
			t.Errorf("response: %+v", got)
		}
	})

	t.Run("when both inviteeId and invitee are given, it is a bad request", func(t *testing.T) {
		dbnodes := mocks.NewMockNodeInterface()
		c, _ := httptestutil.Post(
			echo.New(), "/api/invitations/",
			strings.NewReader(`{"supplyChainId": "sc-1", "relation": "buyer", "inviteeId": "n", "invitee": {"name": "x", "country": "PE"}}`),
			httptestutil.ContentType("application/json"),
		)
		err := handlers.InviteHandler(dbnodes)(as(c, member))
		if got := codeOf(err); got != http.StatusBadRequest {
			t.Errorf("status: %d (%v)", got, err)
		}
	})
}

func TestAcceptHandler(t *testing.T) {
	t.Run("when the invitee is not the acting node, it responds forbidden", func(t *testing.T) {
		dbnodes := mocks.NewMockNodeInterface()
		dbnodes.Impl.Accept = func(ctx context.Context, invitationId string, nodeId string) (fdb.Invitation, error) {
			return fdb.Invitation{}, fdb.NewErrForbidden(nodeId, "accept invitation "+invitationId)
		}
		c, _ := httptestutil.Put(echo.New(), "/api/invitations/inv-1/accept/", nil)
		err := handlers.AcceptHandler(dbnodes, "invitationId")(as(c, member, "invitationId", "inv-1"))
		if got := codeOf(err); got != http.StatusForbidden {
			t.Errorf("status: %d (%v)", got, err)
		}
		call := dbnodes.Calls.Accept[0]
		if call.InvitationId != "inv-1" || call.NodeId != "node-a" {
			t.Errorf("call: %+v", call)
		}
	})
}
