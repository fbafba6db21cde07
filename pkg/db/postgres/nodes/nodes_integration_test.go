//go:build integration

package nodes_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/fairtrace/fairtrace/internal/testutils/testctx"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/fairtrace/fairtrace/pkg/db/postgres/testenv"
	"github.com/fairtrace/fairtrace/pkg/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pg *testenv.Server

func TestMain(m *testing.M) {
	os.Exit(testenv.Main(m, &pg))
}

func TestIntegration_Nodes(t *testing.T) {
	ctx := testctx.For(t)

	t.Run("an invitation stays pending until the invitee accepts it", func(t *testing.T) {
		db := pg.Fresh(t)
		nodes := db.Nodes()
		sc, err := nodes.CreateSupplyChain(ctx, "cocoa")
		require.NoError(t, err)
		inviter, err := nodes.Create(ctx, fdb.NodeParam{Type: fdb.Company, Name: "Trader", Country: "GH"})
		require.NoError(t, err)

		inv, err := nodes.Invite(ctx, fdb.InvitationParam{
			InviterId:     inviter.Id,
			SupplyChainId: sc.Id,
			Relation:      fdb.AsSupplier,
			Invitee:       fdb.NodeParam{Type: fdb.Company, Name: "Grinder", Country: "GH"},
		})
		require.NoError(t, err)
		assert.Equal(t, fdb.InvitationPending, inv.Status)

		invited, err := nodes.Get(ctx, []string{inv.InviteeId})
		require.NoError(t, err)
		assert.Equal(t, fdb.NodeInvited, invited[inv.InviteeId].Status)

		conns, err := nodes.Neighbors(ctx, sc.Id, []string{inviter.Id}, fdb.Upstream)
		require.NoError(t, err)
		assert.Empty(t, conns)

		_, err = nodes.Accept(ctx, inv.Id, inviter.Id)
		assert.True(t, errors.Is(err, fdb.ErrForbidden), err)

		accepted, err := nodes.Accept(ctx, inv.Id, inv.InviteeId)
		require.NoError(t, err)
		assert.Equal(t, fdb.InvitationAccepted, accepted.Status)

		conns, err = nodes.Neighbors(ctx, sc.Id, []string{inviter.Id}, fdb.Upstream)
		require.NoError(t, err)
		require.Len(t, conns, 1)
		assert.Equal(t, inv.InviteeId, conns[0].SupplierId)

		_, err = nodes.Accept(ctx, inv.Id, inv.InviteeId)
		assert.True(t, errors.Is(err, fdb.ErrInvalidState), err)
	})

	t.Run("farmers are created connected to their buyer, and mapped as tier 1", func(t *testing.T) {
		db := pg.Fresh(t)
		w := testenv.Seed(t, db)

		net, err := network.Map(ctx, w.Cooperative.Id, 3, func(ctx context.Context, ids []string, d fdb.Direction) ([]fdb.Connection, error) {
			return db.Nodes().Neighbors(ctx, w.SupplyChain.Id, ids, d)
		})
		require.NoError(t, err)
		assert.Equal(t, []string{w.Farmer.Id}, net.Tiers[1])
		assert.Equal(t, []string{w.Exporter.Id}, net.Tiers[-1])

		found, err := db.Nodes().Find(ctx, fdb.NodeQuery{Type: fdb.Farmer, SupplyChainId: w.SupplyChain.Id})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Ana Lopez", found[0].Name)
	})

	t.Run("companies cannot be created as farmers directly", func(t *testing.T) {
		db := pg.Fresh(t)
		_, err := db.Nodes().Create(ctx, fdb.NodeParam{Type: fdb.Farmer, FirstName: "A", LastName: "B", Country: "CO"})
		assert.True(t, errors.Is(err, fdb.ErrInvalidParam), err)
	})
}
