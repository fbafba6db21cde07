package nodes_test

import (
	"errors"
	"testing"

	bindnodes "github.com/fairtrace/fairtrace/pkg/api/binding/nodes"
	apinodes "github.com/fairtrace/fairtrace/pkg/api/types/nodes"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/fairtrace/fairtrace/pkg/network"
	"github.com/google/go-cmp/cmp"
)

func TestParseInvitationSpec(t *testing.T) {
	for name, testcase := range map[string]struct {
		when apinodes.InvitationSpec
		then fdb.InvitationParam
		err  error
	}{
		"when an existing node is invited, it refers the node": {
			when: apinodes.InvitationSpec{SupplyChainId: "sc", Relation: "supplier", InviteeId: "n-2"},
			then: fdb.InvitationParam{InviterId: "n-1", SupplyChainId: "sc", Relation: fdb.AsSupplier, InviteeId: "n-2"},
		},
		"when a new node is invited, it is a company": {
			when: apinodes.InvitationSpec{
				SupplyChainId: "sc", Relation: "buyer",
				Invitee: &apinodes.NodeSpec{Name: "Roaster", Country: "DE"},
			},
			then: fdb.InvitationParam{
				InviterId: "n-1", SupplyChainId: "sc", Relation: fdb.AsBuyer,
				Invitee: fdb.NodeParam{Type: fdb.Company, Name: "Roaster", Country: "DE"},
			},
		},
		"when both invitee and its id are given, it is an error": {
			when: apinodes.InvitationSpec{
				SupplyChainId: "sc", Relation: "buyer", InviteeId: "n-2",
				Invitee: &apinodes.NodeSpec{Name: "Roaster", Country: "DE"},
			},
			err: fdb.ErrInvalidParam,
		},
		"when no invitee is given, it is an error": {
			when: apinodes.InvitationSpec{SupplyChainId: "sc", Relation: "buyer"},
			err:  fdb.ErrInvalidParam,
		},
		"when the relation is unknown, it is an error": {
			when: apinodes.InvitationSpec{SupplyChainId: "sc", Relation: "partner", InviteeId: "n-2"},
			err:  fdb.ErrInvalidParam,
		},
		"when the supply chain is missing, it is an error": {
			when: apinodes.InvitationSpec{Relation: "supplier", InviteeId: "n-2"},
			err:  fdb.ErrInvalidParam,
		},
	} {
		t.Run(name, func(t *testing.T) {
			got, err := bindnodes.ParseInvitationSpec("n-1", testcase.when)
			if testcase.err != nil {
				if !errors.Is(err, testcase.err) {
					t.Errorf("error: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !cmp.Equal(got, testcase.then) {
				t.Errorf("param: %s", cmp.Diff(testcase.then, got))
			}
		})
	}
}

func TestComposeNetwork(t *testing.T) {
	got := bindnodes.ComposeNetwork(
		network.Network{
			Root:  "processor",
			Tiers: map[int][]string{1: {"farmer"}, 0: {"processor"}, -1: {"exporter"}},
			Connections: []fdb.Connection{
				{Id: "c-1", BuyerId: "processor", SupplierId: "farmer", Status: fdb.ConnectionActive},
			},
		},
		map[string]fdb.Node{"processor": {Id: "processor", Type: fdb.Company, Name: "Processor"}},
	)

	tiers := []apinodes.Tier{
		{Tier: -1, Nodes: []string{"exporter"}},
		{Tier: 0, Nodes: []string{"processor"}},
		{Tier: 1, Nodes: []string{"farmer"}},
	}
	if !cmp.Equal(got.Tiers, tiers) {
		t.Errorf("tiers: %s", cmp.Diff(tiers, got.Tiers))
	}
	if got.Nodes["processor"].Name != "Processor" || len(got.Connections) != 1 {
		t.Errorf("network: %+v", got)
	}
}
