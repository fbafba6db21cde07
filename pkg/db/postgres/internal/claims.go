package internal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fairtrace/fairtrace/pkg/claims"
	kpool "github.com/fairtrace/fairtrace/pkg/conn/db/postgres/pool"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	pgerrors "github.com/fairtrace/fairtrace/pkg/db/postgres/errors"
	xe "github.com/fairtrace/fairtrace/pkg/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

// GetClaims retrieves claims with their criteria.
func GetClaims(ctx context.Context, conn kpool.Queryer, ids []string) (map[string]fdb.Claim, error) {
	rows, err := conn.Query(
		ctx,
		`
		select
			"id", "name", "description", "scope", "inheritable",
			"verification_required", "guardian_policy"
		from "claim" where "id" = any($1::text[])
		`,
		ids,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	found := map[string]fdb.Claim{}
	for rows.Next() {
		c := fdb.Claim{Criteria: []fdb.Criterion{}}
		if err := rows.Scan(
			&c.Id, &c.Name, &c.Description, &c.Scope, &c.Inheritable,
			&c.VerificationRequired, &c.GuardianPolicy,
		); err != nil {
			return nil, xe.Wrap(err)
		}
		found[c.Id] = c
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}
	rows.Close()

	if len(found) == 0 {
		return found, nil
	}

	fieldRows, err := conn.Query(
		ctx,
		`
		select
			"cr"."claim_id", "cr"."id", "cr"."name",
			coalesce("f"."id", ''), coalesce("f"."title", ''), coalesce("f"."type", ''),
			coalesce("f"."options", '{}'), coalesce("f"."required", false)
		from "criterion" as "cr"
		left join "criterion_field" as "f" on "f"."criterion_id" = "cr"."id"
		where "cr"."claim_id" = any($1::text[])
		order by "cr"."claim_id", "cr"."position", "f"."position"
		`,
		ids,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer fieldRows.Close()

	for fieldRows.Next() {
		var claimId string
		cr := fdb.Criterion{}
		f := fdb.CriterionField{}
		if err := fieldRows.Scan(
			&claimId, &cr.Id, &cr.Name,
			&f.Id, &f.Title, &f.Type, &f.Options, &f.Required,
		); err != nil {
			return nil, xe.Wrap(err)
		}
		c := found[claimId]
		if n := len(c.Criteria); n == 0 || c.Criteria[n-1].Id != cr.Id {
			cr.Fields = []fdb.CriterionField{}
			c.Criteria = append(c.Criteria, cr)
		}
		if f.Id != "" {
			last := &c.Criteria[len(c.Criteria)-1]
			last.Fields = append(last.Fields, f)
		}
		found[claimId] = c
	}
	return found, xe.Wrap(fieldRows.Err())
}

func GetClaim(ctx context.Context, conn kpool.Queryer, id string) (fdb.Claim, error) {
	cs, err := GetClaims(ctx, conn, []string{id})
	if err != nil {
		return fdb.Claim{}, err
	}
	c, ok := cs[id]
	if !ok {
		return fdb.Claim{}, xe.Wrap(pgerrors.Missing{Table: "claim", Identity: id})
	}
	return c, nil
}

const attachedColumns = `
	"id", "claim_id", "target_kind", "target_id", "attached_by", coalesce("verifier_id", ''),
	"status", coalesce("inherited_from", ''), "responses", "created_at", "updated_at"
`

func scanAttached(row pgx.Row) (fdb.AttachedClaim, error) {
	a := fdb.AttachedClaim{}
	var responses []byte
	if err := row.Scan(
		&a.Id, &a.ClaimId, &a.Target.Kind, &a.Target.Id, &a.AttachedBy, &a.VerifierId,
		&a.Status, &a.InheritedFrom, &responses, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return a, err
	}
	a.Responses = []fdb.FieldResponse{}
	if len(responses) != 0 {
		if err := json.Unmarshal(responses, &a.Responses); err != nil {
			return a, err
		}
	}
	return a, nil
}

// QueryAttached runs a query selecting attachedColumns.
func QueryAttached(ctx context.Context, conn kpool.Queryer, query string, args ...any) ([]fdb.AttachedClaim, error) {
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	ret := []fdb.AttachedClaim{}
	for rows.Next() {
		a, err := scanAttached(rows)
		if err != nil {
			return nil, xe.Wrap(err)
		}
		ret = append(ret, a)
	}
	return ret, xe.Wrap(rows.Err())
}

func GetAttached(ctx context.Context, conn kpool.Queryer, ids []string, forUpdate bool) (map[string]fdb.AttachedClaim, error) {
	query := `select ` + attachedColumns + ` from "attached_claim" where "id" = any($1::text[])`
	if forUpdate {
		query += ` for update`
	}
	as, err := QueryAttached(ctx, conn, query, ids)
	if err != nil {
		return nil, err
	}
	ret := make(map[string]fdb.AttachedClaim, len(as))
	for _, a := range as {
		ret[a.Id] = a
	}
	return ret, nil
}

// FindAttached returns attachments on targets of the kind, ordered by creation.
func FindAttached(ctx context.Context, conn kpool.Queryer, kind fdb.ClaimScope, targetIds []string) ([]fdb.AttachedClaim, error) {
	return QueryAttached(
		ctx, conn,
		`select `+attachedColumns+` from "attached_claim"
		where "target_kind" = $1 and "target_id" = any($2::text[])
		order by "created_at", "id"`,
		kind, targetIds,
	)
}

// InsertAttached creates an attachment. Id, CreatedAt and UpdatedAt are filled.
func InsertAttached(ctx context.Context, conn kpool.Queryer, a fdb.AttachedClaim) (fdb.AttachedClaim, error) {
	if a.Responses == nil {
		a.Responses = []fdb.FieldResponse{}
	}
	responses, err := json.Marshal(a.Responses)
	if err != nil {
		return a, xe.Wrap(err)
	}
	ret, err := scanAttached(conn.QueryRow(
		ctx,
		`
		insert into "attached_claim" (
			"id", "claim_id", "target_kind", "target_id", "attached_by", "verifier_id",
			"status", "inherited_from", "responses"
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)
		returning `+attachedColumns,
		uuid.NewString(), a.ClaimId, a.Target.Kind, a.Target.Id, a.AttachedBy,
		nullable(a.VerifierId), a.Status, nullable(a.InheritedFrom), string(responses),
	))
	if err != nil {
		return a, xe.Wrap(pgerrors.Translate(err, "attached_claim", a.Target.String()))
	}
	return ret, nil
}

// SetAttachedStatus changes the status of an attachment.
func SetAttachedStatus(ctx context.Context, conn kpool.Queryer, id string, status fdb.AttachedClaimStatus, now time.Time) (fdb.AttachedClaim, error) {
	a, err := scanAttached(conn.QueryRow(
		ctx,
		`update "attached_claim" set "status" = $2, "updated_at" = $3 where "id" = $1
		returning `+attachedColumns,
		id, status, now,
	))
	if err != nil {
		return a, xe.Wrap(pgerrors.Translate(err, "attached_claim", id))
	}
	return a, nil
}

// InheritClaims attaches claims approved on every source batch to result batches.
func InheritClaims(ctx context.Context, conn kpool.Queryer, actor string, sourceBatches []string, resultBatches []string) error {
	attached, err := FindAttached(ctx, conn, fdb.BatchScope, sourceBatches)
	if err != nil {
		return err
	}
	if len(attached) == 0 {
		return nil
	}

	bySource := map[string][]fdb.AttachedClaim{}
	claimIds := []string{}
	for _, a := range attached {
		bySource[a.Target.Id] = append(bySource[a.Target.Id], a)
		claimIds = append(claimIds, a.ClaimId)
	}
	defs, err := GetClaims(ctx, conn, claimIds)
	if err != nil {
		return err
	}

	sources := make([][]fdb.AttachedClaim, 0, len(sourceBatches))
	for _, b := range sourceBatches {
		sources = append(sources, bySource[b])
	}

	for _, in := range claims.Inherit(defs, sources) {
		for _, b := range resultBatches {
			if _, err := InsertAttached(ctx, conn, fdb.AttachedClaim{
				ClaimId:       in.ClaimId,
				Target:        fdb.Target{Kind: fdb.BatchScope, Id: b},
				AttachedBy:    actor,
				Status:        fdb.ClaimApproved,
				InheritedFrom: in.InheritedFrom,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// LockAttached retrieves an attachment, locking it until the end of the SQL transaction.
func LockAttached(ctx context.Context, conn kpool.Queryer, id string) (fdb.AttachedClaim, error) {
	found, err := GetAttached(ctx, conn, []string{id}, true)
	if err != nil {
		return fdb.AttachedClaim{}, err
	}
	a, ok := found[id]
	if !ok {
		return fdb.AttachedClaim{}, xe.Wrap(pgerrors.Missing{Table: "attached_claim", Identity: id})
	}
	return a, nil
}

// ResolvePolicy moves an attachment awaiting policy, in the caller's SQL transaction.
func ResolvePolicy(ctx context.Context, conn kpool.Queryer, attachedClaimId string, approved bool, now time.Time) (fdb.AttachedClaim, error) {
	attached, err := LockAttached(ctx, conn, attachedClaimId)
	if err != nil {
		return fdb.AttachedClaim{}, err
	}
	status, err := claims.ResolvePolicy(attached, approved)
	if err != nil {
		return fdb.AttachedClaim{}, err
	}
	return SetAttachedStatus(ctx, conn, attached.Id, status, now)
}
