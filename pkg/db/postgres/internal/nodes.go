// Package internal holds queries shared among postgres implementations.
//
// Functions here take a Queryer, so callers can run them in their own SQL transaction.
package internal

import (
	"context"
	"fmt"

	kpool "github.com/fairtrace/fairtrace/pkg/conn/db/postgres/pool"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	pgerrors "github.com/fairtrace/fairtrace/pkg/db/postgres/errors"
	xe "github.com/fairtrace/fairtrace/pkg/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

const nodeColumns = `
	"id", "type", "status", "name", "first_name", "last_name", "identification",
	"country", "province", "phone", "email", "created_at"
`

func scanNode(row pgx.Row) (fdb.Node, error) {
	n := fdb.Node{}
	err := row.Scan(
		&n.Id, &n.Type, &n.Status, &n.Name, &n.FirstName, &n.LastName, &n.Identification,
		&n.Country, &n.Province, &n.Phone, &n.Email, &n.CreatedAt,
	)
	return n, err
}

// QueryNodes runs a query selecting nodeColumns.
func QueryNodes(ctx context.Context, conn kpool.Queryer, query string, args ...any) ([]fdb.Node, error) {
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	nodes := []fdb.Node{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, xe.Wrap(err)
		}
		nodes = append(nodes, n)
	}
	return nodes, xe.Wrap(rows.Err())
}

func GetNodes(ctx context.Context, conn kpool.Queryer, ids []string) (map[string]fdb.Node, error) {
	nodes, err := QueryNodes(
		ctx, conn,
		`select `+nodeColumns+` from "node" where "id" = any($1::text[])`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	ret := make(map[string]fdb.Node, len(nodes))
	for _, n := range nodes {
		ret[n.Id] = n
	}
	return ret, nil
}

// GetNode is GetNodes for one, returning Missing when not found.
func GetNode(ctx context.Context, conn kpool.Queryer, id string) (fdb.Node, error) {
	nodes, err := GetNodes(ctx, conn, []string{id})
	if err != nil {
		return fdb.Node{}, err
	}
	n, ok := nodes[id]
	if !ok {
		return fdb.Node{}, xe.Wrap(pgerrors.Missing{Table: "node", Identity: id})
	}
	return n, nil
}

// InsertNode creates a node. param should be validated.
func InsertNode(ctx context.Context, conn kpool.Queryer, param fdb.NodeParam, status fdb.NodeStatus) (fdb.Node, error) {
	n, err := scanNode(conn.QueryRow(
		ctx,
		`
		insert into "node"
			("id", "type", "status", "name", "first_name", "last_name", "identification",
			 "country", "province", "phone", "email")
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		returning `+nodeColumns,
		uuid.NewString(), param.Type, status, param.Name, param.FirstName, param.LastName,
		param.Identification, param.Country, param.Province, param.Phone, param.Email,
	))
	if err != nil {
		return fdb.Node{}, xe.Wrap(pgerrors.Translate(err, "node", param.Name))
	}
	return n, nil
}

const connectionColumns = `"id", "supply_chain_id", "buyer_id", "supplier_id", "status", "created_at"`

func scanConnection(row pgx.Row) (fdb.Connection, error) {
	c := fdb.Connection{}
	err := row.Scan(&c.Id, &c.SupplyChainId, &c.BuyerId, &c.SupplierId, &c.Status, &c.CreatedAt)
	return c, err
}

func QueryConnections(ctx context.Context, conn kpool.Queryer, query string, args ...any) ([]fdb.Connection, error) {
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	conns := []fdb.Connection{}
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, xe.Wrap(err)
		}
		conns = append(conns, c)
	}
	return conns, xe.Wrap(rows.Err())
}

// FindConnection returns the connection between buyer and supplier in the supply chain.
//
// ok is false when they are not connected at all.
func FindConnection(ctx context.Context, conn kpool.Queryer, supplyChainId, buyerId, supplierId string) (c fdb.Connection, ok bool, err error) {
	conns, err := QueryConnections(
		ctx, conn,
		`select `+connectionColumns+` from "connection"
		where "supply_chain_id" = $1 and "buyer_id" = $2 and "supplier_id" = $3`,
		supplyChainId, buyerId, supplierId,
	)
	if err != nil || len(conns) == 0 {
		return fdb.Connection{}, false, err
	}
	return conns[0], true, nil
}

// Connect creates a connection from supplier to buyer.
//
// Connecting a connected pair is ErrConflict.
func Connect(ctx context.Context, conn kpool.Queryer, supplyChainId, buyerId, supplierId string, status fdb.ConnectionStatus) (fdb.Connection, error) {
	if buyerId == supplierId {
		return fdb.Connection{}, fdb.NewErrInvalidParam("connection", "a node cannot be connected to itself")
	}
	c, err := scanConnection(conn.QueryRow(
		ctx,
		`
		insert into "connection" ("id", "supply_chain_id", "buyer_id", "supplier_id", "status")
		values ($1, $2, $3, $4, $5)
		returning `+connectionColumns,
		uuid.NewString(), supplyChainId, buyerId, supplierId, status,
	))
	if err != nil {
		return fdb.Connection{}, xe.Wrap(pgerrors.Translate(
			err, "connection", fmt.Sprintf("%s -> %s in %s", supplierId, buyerId, supplyChainId),
		))
	}
	return c, nil
}

// RequireConnection checks that supplier supplies buyer in the supply chain actively.
func RequireConnection(ctx context.Context, conn kpool.Queryer, supplyChainId, buyerId, supplierId string) error {
	c, ok, err := FindConnection(ctx, conn, supplyChainId, buyerId, supplierId)
	if err != nil {
		return err
	}
	if !ok || c.Status != fdb.ConnectionActive {
		return xe.Wrap(fmt.Errorf(
			"%w: %s does not supply %s in supply chain %s",
			fdb.ErrNotConnected, supplierId, buyerId, supplyChainId,
		))
	}
	return nil
}

// CreateFarmer creates a farmer supplying the creator in the supply chain.
func CreateFarmer(ctx context.Context, conn kpool.Queryer, creatorId string, supplyChainId string, param fdb.NodeParam) (fdb.Node, error) {
	param.Type = fdb.Farmer
	param, err := param.Validate()
	if err != nil {
		return fdb.Node{}, err
	}
	if _, err := GetNode(ctx, conn, creatorId); err != nil {
		return fdb.Node{}, err
	}

	farmer, err := InsertNode(ctx, conn, param, fdb.NodeActive)
	if err != nil {
		return fdb.Node{}, err
	}
	if _, err := Connect(ctx, conn, supplyChainId, creatorId, farmer.Id, fdb.ConnectionActive); err != nil {
		return fdb.Node{}, err
	}
	return farmer, nil
}

const productColumns = `"id", "supply_chain_id", "name"`

func QueryProducts(ctx context.Context, conn kpool.Queryer, query string, args ...any) ([]fdb.Product, error) {
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	products := []fdb.Product{}
	for rows.Next() {
		p := fdb.Product{}
		if err := rows.Scan(&p.Id, &p.SupplyChainId, &p.Name); err != nil {
			return nil, xe.Wrap(err)
		}
		products = append(products, p)
	}
	return products, xe.Wrap(rows.Err())
}

func GetProducts(ctx context.Context, conn kpool.Queryer, ids []string) (map[string]fdb.Product, error) {
	products, err := QueryProducts(
		ctx, conn,
		`select `+productColumns+` from "product" where "id" = any($1::text[])`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	ret := make(map[string]fdb.Product, len(products))
	for _, p := range products {
		ret[p.Id] = p
	}
	return ret, nil
}

func GetProduct(ctx context.Context, conn kpool.Queryer, id string) (fdb.Product, error) {
	products, err := GetProducts(ctx, conn, []string{id})
	if err != nil {
		return fdb.Product{}, err
	}
	p, ok := products[id]
	if !ok {
		return fdb.Product{}, xe.Wrap(pgerrors.Missing{Table: "product", Identity: id})
	}
	return p, nil
}
