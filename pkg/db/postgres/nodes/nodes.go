package nodes

import (
	"context"
	"fmt"
	"strings"

	kpool "github.com/fairtrace/fairtrace/pkg/conn/db/postgres/pool"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	pgerrors "github.com/fairtrace/fairtrace/pkg/db/postgres/errors"
	"github.com/fairtrace/fairtrace/pkg/db/postgres/internal"
	xe "github.com/fairtrace/fairtrace/pkg/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

type nodesPG struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) fdb.NodeInterface {
	return &nodesPG{pool: pool}
}

func (n *nodesPG) CreateSupplyChain(ctx context.Context, name string) (fdb.SupplyChain, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return fdb.SupplyChain{}, fdb.NewErrInvalidParam("name", "required")
	}
	sc := fdb.SupplyChain{Id: uuid.NewString(), Name: name}
	if _, err := n.pool.Exec(
		ctx,
		`insert into "supply_chain" ("id", "name") values ($1, $2)`,
		sc.Id, sc.Name,
	); err != nil {
		return fdb.SupplyChain{}, xe.Wrap(pgerrors.Translate(err, "supply_chain", name))
	}
	return sc, nil
}

func (n *nodesPG) SupplyChains(ctx context.Context) ([]fdb.SupplyChain, error) {
	rows, err := n.pool.Query(ctx, `select "id", "name" from "supply_chain" order by "name"`)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	scs := []fdb.SupplyChain{}
	for rows.Next() {
		sc := fdb.SupplyChain{}
		if err := rows.Scan(&sc.Id, &sc.Name); err != nil {
			return nil, xe.Wrap(err)
		}
		scs = append(scs, sc)
	}
	return scs, xe.Wrap(rows.Err())
}

func (n *nodesPG) CreateProduct(ctx context.Context, supplyChainId string, name string) (fdb.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return fdb.Product{}, fdb.NewErrInvalidParam("name", "required")
	}
	p := fdb.Product{Id: uuid.NewString(), SupplyChainId: supplyChainId, Name: name}
	if _, err := n.pool.Exec(
		ctx,
		`insert into "product" ("id", "supply_chain_id", "name") values ($1, $2, $3)`,
		p.Id, p.SupplyChainId, p.Name,
	); err != nil {
		return fdb.Product{}, xe.Wrap(pgerrors.Translate(err, "product", name))
	}
	return p, nil
}

func (n *nodesPG) Products(ctx context.Context, supplyChainId string) ([]fdb.Product, error) {
	return internal.QueryProducts(
		ctx, n.pool,
		`
		select "id", "supply_chain_id", "name" from "product"
		where $1 = '' or "supply_chain_id" = $1
		order by "name", "id"
		`,
		supplyChainId,
	)
}

func (n *nodesPG) Create(ctx context.Context, param fdb.NodeParam) (fdb.Node, error) {
	if param.Type == fdb.Farmer {
		return fdb.Node{}, fdb.NewErrInvalidParam("type", "farmers are created by their buyers")
	}
	param, err := param.Validate()
	if err != nil {
		return fdb.Node{}, err
	}
	return internal.InsertNode(ctx, n.pool, param, fdb.NodeActive)
}

func (n *nodesPG) CreateFarmer(ctx context.Context, creatorId string, supplyChainId string, param fdb.NodeParam) (fdb.Node, error) {
	return kpool.InTx(ctx, n.pool, func(tx kpool.Tx) (fdb.Node, error) {
		return internal.CreateFarmer(ctx, tx, creatorId, supplyChainId, param)
	})
}

func (n *nodesPG) Get(ctx context.Context, ids []string) (map[string]fdb.Node, error) {
	return internal.GetNodes(ctx, n.pool, ids)
}

func (n *nodesPG) Find(ctx context.Context, query fdb.NodeQuery) ([]fdb.Node, error) {
	return internal.QueryNodes(
		ctx, n.pool,
		`
		select `+nodeColumns("n")+` from "node" as "n"
		where ($1 = '' or "n"."type" = $1)
			and ($2 = '' or "n"."name" ilike '%' || $2 || '%')
			and ($3 = '' or exists (
				select 1 from "connection" as "c"
				where "c"."supply_chain_id" = $3
					and ("c"."buyer_id" = "n"."id" or "c"."supplier_id" = "n"."id")
			))
		order by "n"."name", "n"."id"
		`,
		string(query.Type), strings.TrimSpace(query.Name), query.SupplyChainId,
	)
}

func nodeColumns(alias string) string {
	cols := []string{
		"id", "type", "status", "name", "first_name", "last_name", "identification",
		"country", "province", "phone", "email", "created_at",
	}
	for i, c := range cols {
		cols[i] = fmt.Sprintf(`"%s"."%s"`, alias, c)
	}
	return strings.Join(cols, ", ")
}

const invitationColumns = `
	"id", "supply_chain_id", "inviter_id", "invitee_id", "relation", "status",
	"connection_id", "created_at"
`

func scanInvitation(row pgx.Row) (fdb.Invitation, error) {
	i := fdb.Invitation{}
	err := row.Scan(
		&i.Id, &i.SupplyChainId, &i.InviterId, &i.InviteeId, &i.Relation, &i.Status,
		&i.ConnectionId, &i.CreatedAt,
	)
	return i, err
}

func (n *nodesPG) Invite(ctx context.Context, param fdb.InvitationParam) (fdb.Invitation, error) {
	if _, err := fdb.AsRelation(string(param.Relation)); err != nil {
		return fdb.Invitation{}, err
	}
	if param.SupplyChainId == "" {
		return fdb.Invitation{}, fdb.NewErrInvalidParam("supplyChainId", "required")
	}

	return kpool.InTx(ctx, n.pool, func(tx kpool.Tx) (fdb.Invitation, error) {
		if _, err := internal.GetNode(ctx, tx, param.InviterId); err != nil {
			return fdb.Invitation{}, err
		}

		inviteeId := param.InviteeId
		if inviteeId == "" {
			p, err := param.Invitee.Validate()
			if err != nil {
				return fdb.Invitation{}, err
			}
			if p.Type == fdb.Farmer {
				return fdb.Invitation{}, fdb.NewErrInvalidParam("invitee.type", "farmers are not invited, but created")
			}
			invitee, err := internal.InsertNode(ctx, tx, p, fdb.NodeInvited)
			if err != nil {
				return fdb.Invitation{}, err
			}
			inviteeId = invitee.Id
		} else if _, err := internal.GetNode(ctx, tx, inviteeId); err != nil {
			return fdb.Invitation{}, err
		}

		buyer, supplier := param.Edge(inviteeId)
		conn, err := internal.Connect(ctx, tx, param.SupplyChainId, buyer, supplier, fdb.ConnectionPending)
		if err != nil {
			return fdb.Invitation{}, err
		}

		inv, err := scanInvitation(tx.QueryRow(
			ctx,
			`
			insert into "invitation"
				("id", "supply_chain_id", "inviter_id", "invitee_id", "relation", "status", "connection_id")
			values ($1, $2, $3, $4, $5, $6, $7)
			returning `+invitationColumns,
			uuid.NewString(), param.SupplyChainId, param.InviterId, inviteeId,
			param.Relation, fdb.InvitationPending, conn.Id,
		))
		if err != nil {
			return fdb.Invitation{}, xe.Wrap(pgerrors.Translate(err, "invitation", inviteeId))
		}
		return inv, nil
	})
}

func (n *nodesPG) Accept(ctx context.Context, invitationId string, nodeId string) (fdb.Invitation, error) {
	return kpool.InTx(ctx, n.pool, func(tx kpool.Tx) (fdb.Invitation, error) {
		inv, err := scanInvitation(tx.QueryRow(
			ctx,
			`select `+invitationColumns+` from "invitation" where "id" = $1 for update`,
			invitationId,
		))
		if err != nil {
			return fdb.Invitation{}, xe.Wrap(pgerrors.Translate(err, "invitation", invitationId))
		}
		if inv.InviteeId != nodeId {
			return fdb.Invitation{}, fdb.NewErrForbidden(nodeId, "accept invitations to others")
		}
		if inv.Status != fdb.InvitationPending {
			return fdb.Invitation{}, fdb.NewErrInvalidState(
				"invitation "+inv.Id, string(inv.Status), "only pending invitations can be accepted",
			)
		}

		if _, err := tx.Exec(
			ctx,
			`update "invitation" set "status" = $2 where "id" = $1`,
			inv.Id, fdb.InvitationAccepted,
		); err != nil {
			return fdb.Invitation{}, xe.Wrap(err)
		}
		if _, err := tx.Exec(
			ctx,
			`update "connection" set "status" = $2 where "id" = $1`,
			inv.ConnectionId, fdb.ConnectionActive,
		); err != nil {
			return fdb.Invitation{}, xe.Wrap(err)
		}
		if _, err := tx.Exec(
			ctx,
			`update "node" set "status" = $2 where "id" = $1`,
			inv.InviteeId, fdb.NodeActive,
		); err != nil {
			return fdb.Invitation{}, xe.Wrap(err)
		}

		inv.Status = fdb.InvitationAccepted
		return inv, nil
	})
}

func (n *nodesPG) Neighbors(ctx context.Context, supplyChainId string, nodeIds []string, direction fdb.Direction) ([]fdb.Connection, error) {
	near := `"buyer_id"`
	switch direction {
	case fdb.Upstream, "":
	case fdb.Downstream:
		near = `"supplier_id"`
	default:
		_, err := fdb.AsDirection(string(direction))
		return nil, err
	}

	return internal.QueryConnections(
		ctx, n.pool,
		`
		select "id", "supply_chain_id", "buyer_id", "supplier_id", "status", "created_at"
		from "connection"
		where "supply_chain_id" = $1 and `+near+` = any($2::text[]) and "status" = $3
		order by "created_at", "id"
		`,
		supplyChainId, nodeIds, fdb.ConnectionActive,
	)
}
