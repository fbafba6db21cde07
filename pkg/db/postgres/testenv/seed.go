package testenv

import (
	"testing"
	"time"

	"github.com/fairtrace/fairtrace/internal/testutils/testctx"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/shopspring/decimal"
)

// World is a small supply chain: a farmer supplying a cooperative supplying an exporter.
type World struct {
	SupplyChain fdb.SupplyChain
	Coffee      fdb.Product
	Roasted     fdb.Product

	Cooperative fdb.Node
	Exporter    fdb.Node
	Verifier    fdb.Node
	Farmer      fdb.Node
}

// Seed builds a World. The exporter is an active buyer of the cooperative.
func Seed(t *testing.T, db fdb.Database) World {
	t.Helper()
	ctx := testctx.For(t)
	nodes := db.Nodes()

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}

	w := World{}
	var err error
	w.SupplyChain, err = nodes.CreateSupplyChain(ctx, "coffee")
	must(err)
	w.Coffee, err = nodes.CreateProduct(ctx, w.SupplyChain.Id, "green coffee")
	must(err)
	w.Roasted, err = nodes.CreateProduct(ctx, w.SupplyChain.Id, "roasted coffee")
	must(err)

	w.Cooperative, err = nodes.Create(ctx, fdb.NodeParam{Type: fdb.Company, Name: "Cooperative", Country: "CO"})
	must(err)
	w.Verifier, err = nodes.Create(ctx, fdb.NodeParam{Type: fdb.Verifier, Name: "Certifier", Country: "DE"})
	must(err)

	inv, err := nodes.Invite(ctx, fdb.InvitationParam{
		InviterId:     w.Cooperative.Id,
		SupplyChainId: w.SupplyChain.Id,
		Relation:      fdb.AsBuyer,
		Invitee:       fdb.NodeParam{Type: fdb.Company, Name: "Exporter", Country: "DE"},
	})
	must(err)
	_, err = nodes.Accept(ctx, inv.Id, inv.InviteeId)
	must(err)
	got, err := nodes.Get(ctx, []string{inv.InviteeId})
	must(err)
	w.Exporter = got[inv.InviteeId]

	w.Farmer, err = nodes.CreateFarmer(ctx, w.Cooperative.Id, w.SupplyChain.Id, fdb.NodeParam{
		FirstName: "Ana", LastName: "Lopez", Country: "CO", Phone: "+573001234567",
	})
	must(err)
	return w
}

// Deliver records an incoming transaction from the farmer to the cooperative.
func (w World) Deliver(t *testing.T, db fdb.Database, quantity string, date time.Time) fdb.Transaction {
	t.Helper()
	tx, err := db.Ledger().RecordExternal(testctx.For(t), fdb.ExternalParam{
		Actor:             w.Cooperative.Id,
		Type:              fdb.Incoming,
		SourceNodeId:      w.Farmer.Id,
		DestinationNodeId: w.Cooperative.Id,
		ProductId:         w.Coffee.Id,
		Quantity:          decimal.RequireFromString(quantity),
		Unit:              "kg",
		Price:             decimal.RequireFromString("2.5"),
		Currency:          "usd",
		Date:              date,
	})
	if err != nil {
		t.Fatal(err)
	}
	return tx
}
