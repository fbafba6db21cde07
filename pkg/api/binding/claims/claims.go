package claims

import (
	apiclaims "github.com/fairtrace/fairtrace/pkg/api/types/claims"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/fairtrace/fairtrace/pkg/utils"
)

func ComposeClaim(c fdb.Claim) apiclaims.Claim {
	return apiclaims.Claim{
		Id:                   c.Id,
		Name:                 c.Name,
		Description:          c.Description,
		Scope:                string(c.Scope),
		Inheritable:          c.Inheritable,
		VerificationRequired: c.VerificationRequired,
		GuardianPolicy:       c.GuardianPolicy,
		Criteria: utils.Map(c.Criteria, func(cr fdb.Criterion) apiclaims.Criterion {
			return apiclaims.Criterion{
				Id:   cr.Id,
				Name: cr.Name,
				Fields: utils.Map(cr.Fields, func(f fdb.CriterionField) apiclaims.Field {
					return apiclaims.Field{
						Id: f.Id, Title: f.Title, Type: string(f.Type),
						Options: f.Options, Required: f.Required,
					}
				}),
			}
		}),
	}
}

func ParseClaimSpec(spec apiclaims.ClaimSpec) (fdb.ClaimParam, error) {
	scope, err := fdb.AsClaimScope(spec.Scope)
	if err != nil {
		return fdb.ClaimParam{}, err
	}
	return fdb.ClaimParam{
		Name:                 spec.Name,
		Description:          spec.Description,
		Scope:                scope,
		Inheritable:          spec.Inheritable,
		VerificationRequired: spec.VerificationRequired,
		GuardianPolicy:       spec.GuardianPolicy,
		Criteria: utils.Map(spec.Criteria, func(cr apiclaims.CriterionSpec) fdb.CriterionParam {
			return fdb.CriterionParam{
				Name: cr.Name,
				Fields: utils.Map(cr.Fields, func(f apiclaims.FieldSpec) fdb.CriterionFieldParam {
					return fdb.CriterionFieldParam{
						Title: f.Title, Type: fdb.FieldType(f.Type),
						Options: f.Options, Required: f.Required,
					}
				}),
			}
		}),
	}, nil
}

func composeResponse(r fdb.FieldResponse) apiclaims.Response {
	return apiclaims.Response{FieldId: r.FieldId, Value: r.Value, Selected: r.Selected}
}

func ComposeAttachedClaim(a fdb.AttachedClaim) apiclaims.AttachedClaim {
	return apiclaims.AttachedClaim{
		Id:            a.Id,
		ClaimId:       a.ClaimId,
		Target:        apiclaims.Target{Kind: string(a.Target.Kind), Id: a.Target.Id},
		AttachedBy:    a.AttachedBy,
		VerifierId:    a.VerifierId,
		Status:        string(a.Status),
		InheritedFrom: a.InheritedFrom,
		Responses:     utils.Map(a.Responses, composeResponse),
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func ComposeVerification(v fdb.Verification) apiclaims.Verification {
	return apiclaims.Verification{
		Id:              v.Id,
		AttachedClaimId: v.AttachedClaimId,
		VerifierId:      v.VerifierId,
		Decision:        string(v.Decision),
		Comment:         v.Comment,
		CreatedAt:       v.CreatedAt,
	}
}

func ParseTarget(kind string, id string) (fdb.Target, error) {
	k, err := fdb.AsClaimScope(kind)
	if err != nil {
		return fdb.Target{}, err
	}
	if id == "" {
		return fdb.Target{}, fdb.NewErrInvalidParam("target.id", "required")
	}
	return fdb.Target{Kind: k, Id: id}, nil
}

func ParseAttachSpec(actor string, claimId string, spec apiclaims.AttachSpec) (fdb.AttachParam, error) {
	target, err := ParseTarget(spec.Target.Kind, spec.Target.Id)
	if err != nil {
		return fdb.AttachParam{}, err
	}
	return fdb.AttachParam{
		Actor:      actor,
		ClaimId:    claimId,
		Target:     target,
		VerifierId: spec.VerifierId,
		Responses: utils.Map(spec.Responses, func(r apiclaims.Response) fdb.FieldResponse {
			return fdb.FieldResponse{FieldId: r.FieldId, Value: r.Value, Selected: r.Selected}
		}),
	}, nil
}

func ParseVerifySpec(verifier string, attachedId string, spec apiclaims.VerifySpec) (fdb.VerifyParam, error) {
	d, err := fdb.AsDecision(spec.Decision)
	if err != nil {
		return fdb.VerifyParam{}, err
	}
	return fdb.VerifyParam{
		AttachedClaimId: attachedId,
		VerifierId:      verifier,
		Decision:        d,
		Comment:         spec.Comment,
	}, nil
}
