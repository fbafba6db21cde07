//go:build integration

package reports_test

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/fairtrace/fairtrace/internal/testutils/testctx"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/fairtrace/fairtrace/pkg/db/postgres/testenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pg *testenv.Server

func TestMain(m *testing.M) {
	os.Exit(testenv.Main(m, &pg))
}

func TestIntegration_Jobs(t *testing.T) {
	ctx := testctx.For(t)
	day := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	t.Run("report jobs are popped once, and keep the outcome", func(t *testing.T) {
		db := pg.Fresh(t)
		w := testenv.Seed(t, db)

		ok, err := db.Reports().Request(ctx, fdb.ReportParam{NodeId: w.Cooperative.Id, Kind: fdb.StockReport})
		require.NoError(t, err)
		ng, err := db.Reports().Request(ctx, fdb.ReportParam{NodeId: w.Cooperative.Id, Kind: fdb.FarmerReport})
		require.NoError(t, err)

		popped, err := db.Reports().Pop(ctx, func(j fdb.ReportJob) (string, error) {
			assert.Equal(t, ok.Id, j.Id)
			assert.Equal(t, fdb.ReportRunning, j.Status)
			return "/reports/" + j.Id + ".xlsx", nil
		})
		require.NoError(t, err)
		assert.True(t, popped)

		popped, err = db.Reports().Pop(ctx, func(j fdb.ReportJob) (string, error) {
			return "", errors.New("disk full")
		})
		require.NoError(t, err)
		assert.True(t, popped)

		popped, err = db.Reports().Pop(ctx, func(j fdb.ReportJob) (string, error) {
			t.Error("nothing should be popped")
			return "", nil
		})
		require.NoError(t, err)
		assert.False(t, popped)

		done, err := db.Reports().Get(ctx, ok.Id)
		require.NoError(t, err)
		assert.Equal(t, fdb.ReportDone, done.Status)
		assert.Equal(t, "/reports/"+ok.Id+".xlsx", done.File)

		failed, err := db.Reports().Get(ctx, ng.Id)
		require.NoError(t, err)
		assert.Equal(t, fdb.ReportFailed, failed.Status)
		assert.Equal(t, "disk full", failed.Error)
	})

	t.Run("an upload is committed all or nothing", func(t *testing.T) {
		db := pg.Fresh(t)
		w := testenv.Seed(t, db)

		newFarmer := &fdb.NodeParam{FirstName: "Luis", LastName: "Gomez", Country: "CO"}
		delivery := func(q string) *fdb.ExternalParam {
			return &fdb.ExternalParam{
				ProductId: w.Coffee.Id,
				Quantity:  decimal.RequireFromString(q),
				Unit:      "kg",
				Date:      day,
			}
		}

		_, err := db.Uploads().Commit(ctx, fdb.UploadParam{
			Actor: w.Cooperative.Id, SupplyChainId: w.SupplyChain.Id,
			Kind: fdb.TransactionUpload, Filename: "bad.xlsx",
			Rows: []fdb.UploadRow{
				{Row: 2, Farmer: newFarmer, Transaction: delivery("10")},
				{Row: 3, FarmerId: w.Farmer.Id, Transaction: delivery("-1")},
			},
		})
		require.Error(t, err)
		found, err := db.Nodes().Find(ctx, fdb.NodeQuery{Type: fdb.Farmer})
		require.NoError(t, err)
		assert.Len(t, found, 1, "the farmer of row 2 should be rolled back")

		up, err := db.Uploads().Commit(ctx, fdb.UploadParam{
			Actor: w.Cooperative.Id, SupplyChainId: w.SupplyChain.Id,
			Kind: fdb.TransactionUpload, Filename: "good.xlsx",
			Rows: []fdb.UploadRow{
				{Row: 2, Farmer: newFarmer, Transaction: delivery("10")},
				{Row: 3, FarmerId: w.Farmer.Id, Transaction: delivery("5")},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, fdb.UploadCommitted, up.Status)
		assert.Len(t, up.FarmerIds, 1)
		assert.Len(t, up.TransactionIds, 2)

		got, err := db.Uploads().Get(ctx, up.Id)
		require.NoError(t, err)
		assert.Equal(t, up.TransactionIds, got.TransactionIds)
	})

	t.Run("notarizations are retried until receipts arrive", func(t *testing.T) {
		db := pg.Fresh(t)
		w := testenv.Seed(t, db)
		tx := w.Deliver(t, db, "10", day)
		now := time.Now().Add(time.Minute)

		popped, err := db.Notary().Pop(ctx, now, func(n fdb.Notarization) (*fdb.Receipt, fdb.Attempt) {
			return nil, fdb.Retry(now.Add(time.Hour), errors.New("gateway timeout"))
		})
		require.NoError(t, err)
		assert.True(t, popped)

		popped, err = db.Notary().Pop(ctx, now, func(n fdb.Notarization) (*fdb.Receipt, fdb.Attempt) {
			t.Error("it should wait until the next attempt")
			return nil, fdb.Attempt{}
		})
		require.NoError(t, err)
		assert.False(t, popped)

		later := now.Add(2 * time.Hour)
		consensus := later.Truncate(time.Microsecond).UTC()
		popped, err = db.Notary().Pop(ctx, later, func(n fdb.Notarization) (*fdb.Receipt, fdb.Attempt) {
			assert.Equal(t, 1, n.Attempts)
			return &fdb.Receipt{TopicId: "0.0.1", SequenceNumber: 7, ConsensusAt: consensus}, fdb.Attempt{}
		})
		require.NoError(t, err)
		assert.True(t, popped)

		ns, err := db.Notary().Get(ctx, []string{tx.Id})
		require.NoError(t, err)
		n := ns[tx.Id]
		assert.Equal(t, fdb.NotarizationNotarized, n.Status)
		require.NotNil(t, n.Receipt)
		assert.Equal(t, int64(7), n.Receipt.SequenceNumber)
		assert.True(t, consensus.Equal(n.Receipt.ConsensusAt))
	})
}
