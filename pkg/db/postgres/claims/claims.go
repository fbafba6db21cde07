package claims

import (
	"context"
	"time"

	"github.com/fairtrace/fairtrace/pkg/claims"
	kpool "github.com/fairtrace/fairtrace/pkg/conn/db/postgres/pool"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	pgerrors "github.com/fairtrace/fairtrace/pkg/db/postgres/errors"
	"github.com/fairtrace/fairtrace/pkg/db/postgres/internal"
	xe "github.com/fairtrace/fairtrace/pkg/errors"
	"github.com/fairtrace/fairtrace/pkg/utils"
	"github.com/google/uuid"
)

type claimsPG struct {
	pool  kpool.Pool
	clock func() time.Time
}

type Option func(*claimsPG) *claimsPG

func WithClock(clock func() time.Time) Option {
	return func(c *claimsPG) *claimsPG {
		c.clock = clock
		return c
	}
}

func New(pool kpool.Pool, options ...Option) fdb.ClaimInterface {
	c := &claimsPG{pool: pool, clock: time.Now}
	for _, opt := range options {
		c = opt(c)
	}
	return c
}

func (c *claimsPG) Create(ctx context.Context, param fdb.ClaimParam) (fdb.Claim, error) {
	param, err := claims.ValidateClaim(param)
	if err != nil {
		return fdb.Claim{}, err
	}

	return kpool.InTx(ctx, c.pool, func(tx kpool.Tx) (fdb.Claim, error) {
		claimId := uuid.NewString()
		if _, err := tx.Exec(
			ctx,
			`
			insert into "claim" (
				"id", "name", "description", "scope", "inheritable",
				"verification_required", "guardian_policy"
			)
			values ($1, $2, $3, $4, $5, $6, $7)
			`,
			claimId, param.Name, param.Description, param.Scope, param.Inheritable,
			param.VerificationRequired, param.GuardianPolicy,
		); err != nil {
			return fdb.Claim{}, xe.Wrap(pgerrors.Translate(err, "claim", param.Name))
		}

		for nth, cr := range param.Criteria {
			criterionId := uuid.NewString()
			if _, err := tx.Exec(
				ctx,
				`insert into "criterion" ("id", "claim_id", "position", "name") values ($1, $2, $3, $4)`,
				criterionId, claimId, nth, cr.Name,
			); err != nil {
				return fdb.Claim{}, xe.Wrap(err)
			}
			for fth, f := range cr.Fields {
				options := f.Options
				if options == nil {
					options = []string{}
				}
				if _, err := tx.Exec(
					ctx,
					`
					insert into "criterion_field"
						("id", "criterion_id", "position", "title", "type", "options", "required")
					values ($1, $2, $3, $4, $5, $6, $7)
					`,
					uuid.NewString(), criterionId, fth, f.Title, f.Type, options, f.Required,
				); err != nil {
					return fdb.Claim{}, xe.Wrap(err)
				}
			}
		}

		return internal.GetClaim(ctx, tx, claimId)
	})
}

func (c *claimsPG) Get(ctx context.Context, ids []string) (map[string]fdb.Claim, error) {
	return internal.GetClaims(ctx, c.pool, ids)
}

func (c *claimsPG) Find(ctx context.Context, scope fdb.ClaimScope) ([]fdb.Claim, error) {
	rows, err := c.pool.Query(
		ctx,
		`select "id" from "claim" where $1 = '' or "scope" = $1 order by "name"`,
		string(scope),
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, xe.Wrap(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}
	rows.Close()

	found, err := internal.GetClaims(ctx, c.pool, ids)
	if err != nil {
		return nil, err
	}
	return utils.Map(ids, func(id string) fdb.Claim { return found[id] }), nil
}

// targetHolders returns nodes holding the target. It is empty when the target is missing.
func targetHolders(ctx context.Context, conn kpool.Queryer, target fdb.Target) ([]string, error) {
	query := ""
	switch target.Kind {
	case fdb.BatchScope:
		query = `select "node_id" from "batch" where "id" = $1`
	case fdb.TransactionScope:
		query = `
		select "node_id" from (
			select "source_node_id" as "node_id" from "transaction" where "id" = $1
			union all
			select "destination_node_id" as "node_id" from "transaction" where "id" = $1
		) as "parties"
		where "node_id" is not null
		`
	case fdb.CompanyScope:
		query = `select "id" from "node" where "id" = $1 and "type" = 'company'`
	default:
		_, err := fdb.AsClaimScope(string(target.Kind))
		return nil, err
	}
	rows, err := conn.Query(ctx, query, target.Id)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()
	holders := []string{}
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, xe.Wrap(err)
		}
		holders = append(holders, h)
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}
	return holders, nil
}

func (c *claimsPG) Attach(ctx context.Context, param fdb.AttachParam) (fdb.AttachedClaim, error) {
	return kpool.InTx(ctx, c.pool, func(tx kpool.Tx) (fdb.AttachedClaim, error) {
		claim, err := internal.GetClaim(ctx, tx, param.ClaimId)
		if err != nil {
			return fdb.AttachedClaim{}, err
		}

		holders, err := targetHolders(ctx, tx, param.Target)
		if err != nil {
			return fdb.AttachedClaim{}, err
		}
		if len(holders) == 0 {
			return fdb.AttachedClaim{}, xe.Wrap(pgerrors.Missing{
				Table: string(param.Target.Kind), Identity: param.Target.Id,
			})
		}
		if err := claims.CheckHolder(param.Actor, param.Target, holders); err != nil {
			return fdb.AttachedClaim{}, xe.Wrap(err)
		}

		existing, err := internal.FindAttached(ctx, tx, param.Target.Kind, []string{param.Target.Id})
		if err != nil {
			return fdb.AttachedClaim{}, err
		}

		var verifier *fdb.Node
		if param.VerifierId != "" {
			v, err := internal.GetNode(ctx, tx, param.VerifierId)
			if err != nil {
				return fdb.AttachedClaim{}, err
			}
			verifier = &v
		}

		if err := claims.ValidateAttach(claim, param, existing, verifier); err != nil {
			return fdb.AttachedClaim{}, err
		}

		attached, err := internal.InsertAttached(ctx, tx, fdb.AttachedClaim{
			ClaimId:    claim.Id,
			Target:     param.Target,
			AttachedBy: param.Actor,
			VerifierId: param.VerifierId,
			Status:     claims.InitialStatus(claim),
			Responses:  param.Responses,
		})
		if err != nil {
			return fdb.AttachedClaim{}, err
		}

		if attached.Status == fdb.ClaimAwaitingPolicy {
			if err := internal.EnqueueSubmission(ctx, tx, claim, attached, c.clock()); err != nil {
				return fdb.AttachedClaim{}, err
			}
		}
		return attached, nil
	})
}

const verificationColumns = `"id", "attached_claim_id", "verifier_id", "decision", "comment", "created_at"`

type verifyResult struct {
	attached     fdb.AttachedClaim
	verification fdb.Verification
}

func (c *claimsPG) Verify(ctx context.Context, param fdb.VerifyParam) (fdb.AttachedClaim, fdb.Verification, error) {
	if _, err := fdb.AsDecision(string(param.Decision)); err != nil {
		return fdb.AttachedClaim{}, fdb.Verification{}, err
	}

	ret, err := kpool.InTx(ctx, c.pool, func(tx kpool.Tx) (verifyResult, error) {
		attached, err := internal.LockAttached(ctx, tx, param.AttachedClaimId)
		if err != nil {
			return verifyResult{}, err
		}
		claim, err := internal.GetClaim(ctx, tx, attached.ClaimId)
		if err != nil {
			return verifyResult{}, err
		}

		status, submit, err := claims.Decide(claim, attached, param.VerifierId, param.Decision)
		if err != nil {
			return verifyResult{}, err
		}

		now := c.clock()
		v := fdb.Verification{}
		if err := tx.QueryRow(
			ctx,
			`
			insert into "verification"
				("id", "attached_claim_id", "verifier_id", "decision", "comment", "created_at")
			values ($1, $2, $3, $4, $5, $6)
			returning `+verificationColumns,
			uuid.NewString(), attached.Id, param.VerifierId, param.Decision, param.Comment, now,
		).Scan(&v.Id, &v.AttachedClaimId, &v.VerifierId, &v.Decision, &v.Comment, &v.CreatedAt); err != nil {
			return verifyResult{}, xe.Wrap(pgerrors.Translate(err, "verification", attached.Id))
		}

		attached, err = internal.SetAttachedStatus(ctx, tx, attached.Id, status, now)
		if err != nil {
			return verifyResult{}, err
		}
		if submit {
			if err := internal.EnqueueSubmission(ctx, tx, claim, attached, now); err != nil {
				return verifyResult{}, err
			}
		}
		return verifyResult{attached: attached, verification: v}, nil
	})
	if err != nil {
		return fdb.AttachedClaim{}, fdb.Verification{}, err
	}
	return ret.attached, ret.verification, nil
}

func (c *claimsPG) ResolvePolicy(ctx context.Context, attachedClaimId string, approved bool, message string) (fdb.AttachedClaim, error) {
	return kpool.InTx(ctx, c.pool, func(tx kpool.Tx) (fdb.AttachedClaim, error) {
		return internal.ResolvePolicy(ctx, tx, attachedClaimId, approved, c.clock())
	})
}

func (c *claimsPG) GetAttached(ctx context.Context, ids []string) (map[string]fdb.AttachedClaim, error) {
	return internal.GetAttached(ctx, c.pool, ids, false)
}

func (c *claimsPG) FindAttached(ctx context.Context, target fdb.Target) ([]fdb.AttachedClaim, error) {
	return internal.FindAttached(ctx, c.pool, target.Kind, []string{target.Id})
}

func (c *claimsPG) Verifications(ctx context.Context, attachedClaimId string) ([]fdb.Verification, error) {
	rows, err := c.pool.Query(
		ctx,
		`select `+verificationColumns+` from "verification"
		where "attached_claim_id" = $1 order by "created_at", "id"`,
		attachedClaimId,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	vs := []fdb.Verification{}
	for rows.Next() {
		v := fdb.Verification{}
		if err := rows.Scan(&v.Id, &v.AttachedClaimId, &v.VerifierId, &v.Decision, &v.Comment, &v.CreatedAt); err != nil {
			return nil, xe.Wrap(err)
		}
		vs = append(vs, v)
	}
	return vs, xe.Wrap(rows.Err())
}
