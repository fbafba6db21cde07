package uploads

import (
	"context"
	"fmt"

	kpool "github.com/fairtrace/fairtrace/pkg/conn/db/postgres/pool"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	pgerrors "github.com/fairtrace/fairtrace/pkg/db/postgres/errors"
	"github.com/fairtrace/fairtrace/pkg/db/postgres/internal"
	xe "github.com/fairtrace/fairtrace/pkg/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

type uploadsPG struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) fdb.UploadInterface {
	return &uploadsPG{pool: pool}
}

const columns = `
	"id", "node_id", "supply_chain_id", "kind", "filename", "status", "row_count",
	"farmer_ids", "transaction_ids", "created_at"
`

func scan(row pgx.Row) (fdb.Upload, error) {
	u := fdb.Upload{}
	err := row.Scan(
		&u.Id, &u.NodeId, &u.SupplyChainId, &u.Kind, &u.Filename, &u.Status, &u.RowCount,
		&u.FarmerIds, &u.TransactionIds, &u.CreatedAt,
	)
	return u, err
}

func (u *uploadsPG) Commit(ctx context.Context, param fdb.UploadParam) (fdb.Upload, error) {
	if _, err := fdb.AsUploadKind(string(param.Kind)); err != nil {
		return fdb.Upload{}, err
	}
	if len(param.Rows) == 0 {
		return fdb.Upload{}, fdb.NewErrInvalidParam("rows", "nothing to upload")
	}

	return kpool.InTx(ctx, u.pool, func(tx kpool.Tx) (fdb.Upload, error) {
		farmerIds := []string{}
		transactionIds := []string{}

		for _, row := range param.Rows {
			farmerId := row.FarmerId
			if farmerId == "" {
				if row.Farmer == nil {
					return fdb.Upload{}, fdb.NewErrInvalidParam(fmt.Sprintf("row %d", row.Row), "farmer is missing")
				}
				farmer, err := internal.CreateFarmer(ctx, tx, param.Actor, param.SupplyChainId, *row.Farmer)
				if err != nil {
					return fdb.Upload{}, xe.WrapWithNote(fmt.Sprintf("row %d", row.Row), err)
				}
				farmerId = farmer.Id
				farmerIds = append(farmerIds, farmerId)
			}

			if row.Transaction == nil {
				continue
			}
			p := *row.Transaction
			p.Actor = param.Actor
			p.Type = fdb.Incoming
			p.SourceNodeId = farmerId
			p.DestinationNodeId = param.Actor
			t, err := internal.RecordExternal(ctx, tx, p)
			if err != nil {
				return fdb.Upload{}, xe.WrapWithNote(fmt.Sprintf("row %d", row.Row), err)
			}
			transactionIds = append(transactionIds, t.Id)
		}

		up, err := scan(tx.QueryRow(
			ctx,
			`
			insert into "upload" (
				"id", "node_id", "supply_chain_id", "kind", "filename", "status",
				"row_count", "farmer_ids", "transaction_ids"
			)
			values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			returning `+columns,
			uuid.NewString(), param.Actor, param.SupplyChainId, param.Kind, param.Filename,
			fdb.UploadCommitted, len(param.Rows), farmerIds, transactionIds,
		))
		if err != nil {
			return fdb.Upload{}, xe.Wrap(pgerrors.Translate(err, "upload", param.Filename))
		}
		return up, nil
	})
}

func (u *uploadsPG) Get(ctx context.Context, id string) (fdb.Upload, error) {
	up, err := scan(u.pool.QueryRow(ctx, `select `+columns+` from "upload" where "id" = $1`, id))
	if err != nil {
		return fdb.Upload{}, xe.Wrap(pgerrors.Translate(err, "upload", id))
	}
	return up, nil
}
