// Package claims holds rules of claims: their definitions, attachments and
// the verification workflow.
package claims

import (
	"fmt"
	"slices"
	"strings"

	fdb "github.com/fairtrace/fairtrace/pkg/db"
)

// ValidateClaim checks a claim definition and returns normalized one.
func ValidateClaim(p fdb.ClaimParam) (fdb.ClaimParam, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.GuardianPolicy = strings.TrimSpace(p.GuardianPolicy)
	if p.Name == "" {
		return p, fdb.NewErrInvalidParam("name", "required")
	}
	if _, err := fdb.AsClaimScope(string(p.Scope)); err != nil {
		return p, err
	}
	if p.VerificationRequired && len(p.Criteria) == 0 {
		return p, fdb.NewErrInvalidParam("criteria", "claims to be verified need 1 or more criteria")
	}
	criteria := make([]fdb.CriterionParam, len(p.Criteria))
	for nth, cr := range p.Criteria {
		cr.Fields = slices.Clone(cr.Fields)
		cr.Name = strings.TrimSpace(cr.Name)
		if cr.Name == "" {
			return p, fdb.NewErrInvalidParam(fmt.Sprintf("criteria[%d].name", nth), "required")
		}
		for fth, f := range cr.Fields {
			path := fmt.Sprintf("criteria[%d].fields[%d]", nth, fth)
			f.Title = strings.TrimSpace(f.Title)
			if f.Title == "" {
				return p, fdb.NewErrInvalidParam(path+".title", "required")
			}
			switch f.Type {
			case fdb.OptionField, fdb.MultiOptionField:
				if len(f.Options) == 0 {
					return p, fdb.NewErrInvalidParam(path+".options", "option fields need options")
				}
			case fdb.TextField, fdb.FileField:
				if len(f.Options) != 0 {
					return p, fdb.NewErrInvalidParam(path+".options", fmt.Sprintf("%s fields take no options", f.Type))
				}
			default:
				return p, fdb.NewErrInvalidParam(path+".type", fmt.Sprintf("unknown field type: %s", f.Type))
			}
			cr.Fields[fth] = f
		}
		criteria[nth] = cr
	}
	p.Criteria = criteria
	return p, nil
}

// ValidateAttach checks an attachment of the claim.
//
// existing are attachments of the same claim on the target, if any.
// verifier is the node designated as verifier; nil when no verifier is given.
func ValidateAttach(claim fdb.Claim, param fdb.AttachParam, existing []fdb.AttachedClaim, verifier *fdb.Node) error {
	if param.Target.Kind != claim.Scope {
		return fdb.NewErrInvalidParam(
			"target", fmt.Sprintf("claim %s is for %s, not for %s", claim.Name, claim.Scope, param.Target.Kind),
		)
	}
	if param.Target.Id == "" {
		return fdb.NewErrInvalidParam("target.id", "required")
	}

	for _, e := range existing {
		if e.ClaimId == claim.Id && e.Status != fdb.ClaimRejected {
			return fmt.Errorf(
				"%w: claim %s is already attached to %s (%s)",
				fdb.ErrConflict, claim.Name, param.Target, e.Status,
			)
		}
	}

	if claim.VerificationRequired {
		if verifier == nil {
			return fdb.NewErrInvalidParam("verifier", "required for this claim")
		}
		if verifier.Type != fdb.Verifier {
			return fdb.NewErrInvalidParam("verifier", fmt.Sprintf("node %s is not a verifier", verifier.Id))
		}
	}

	return ValidateResponses(claim, param.Responses)
}

// CheckHolder tells whether the actor may attach claims to the target.
//
// holders are nodes holding the target: the node of a batch, both parties of a
// transaction, or the company itself.
func CheckHolder(actor string, target fdb.Target, holders []string) error {
	for _, h := range holders {
		if h != "" && h == actor {
			return nil
		}
	}
	return fdb.NewErrForbidden(actor, "attach claims to "+target.String()+" held by others")
}

// ValidateResponses checks answers to criterion fields.
func ValidateResponses(claim fdb.Claim, responses []fdb.FieldResponse) error {
	fields := claim.Fields()
	answered := map[string]fdb.FieldResponse{}
	for nth, r := range responses {
		path := fmt.Sprintf("responses[%d]", nth)
		f, ok := fields[r.FieldId]
		if !ok {
			return fdb.NewErrInvalidParam(path+".field", fmt.Sprintf("unknown field: %s", r.FieldId))
		}
		if _, ok := answered[r.FieldId]; ok {
			return fdb.NewErrInvalidParam(path+".field", fmt.Sprintf("answered twice: %s", f.Title))
		}
		answered[r.FieldId] = r

		switch f.Type {
		case fdb.OptionField:
			if len(r.Selected) > 1 {
				return fdb.NewErrInvalidParam(path+".selected", "choose one option")
			}
			fallthrough
		case fdb.MultiOptionField:
			for _, s := range r.Selected {
				if !slices.Contains(f.Options, s) {
					return fdb.NewErrInvalidParam(path+".selected", fmt.Sprintf("%q is not an option of %s", s, f.Title))
				}
			}
		}
	}

	for _, f := range fields {
		if !f.Required {
			continue
		}
		r, ok := answered[f.Id]
		if !ok || !filled(f, r) {
			return fdb.NewErrInvalidParam("responses", fmt.Sprintf("field %s is required", f.Title))
		}
	}
	return nil
}

func filled(f fdb.CriterionField, r fdb.FieldResponse) bool {
	switch f.Type {
	case fdb.OptionField, fdb.MultiOptionField:
		return len(r.Selected) != 0
	default:
		return strings.TrimSpace(r.Value) != ""
	}
}

// InitialStatus is the status of a new attachment of the claim.
func InitialStatus(claim fdb.Claim) fdb.AttachedClaimStatus {
	switch {
	case claim.VerificationRequired:
		return fdb.ClaimPending
	case claim.GuardianPolicy != "":
		return fdb.ClaimAwaitingPolicy
	default:
		return fdb.ClaimApproved
	}
}

// Decide tells the status after a verifier's decision.
//
// submit is true when the attachment should be submitted to the policy engine.
func Decide(claim fdb.Claim, attached fdb.AttachedClaim, verifierId string, decision fdb.Decision) (status fdb.AttachedClaimStatus, submit bool, err error) {
	if attached.VerifierId != verifierId {
		return attached.Status, false, fdb.NewErrForbidden(verifierId, "verify claims designated to others")
	}
	if attached.Status != fdb.ClaimPending {
		return attached.Status, false, fdb.NewErrInvalidState(
			"attached claim "+attached.Id, string(attached.Status), "only pending claims can be verified",
		)
	}

	switch decision {
	case fdb.Reject:
		return fdb.ClaimRejected, false, nil
	case fdb.Approve:
		if claim.GuardianPolicy != "" {
			return fdb.ClaimAwaitingPolicy, true, nil
		}
		return fdb.ClaimApproved, false, nil
	default:
		_, err := fdb.AsDecision(string(decision))
		return attached.Status, false, err
	}
}

// ResolvePolicy tells the status after the policy engine's answer.
func ResolvePolicy(attached fdb.AttachedClaim, approved bool) (fdb.AttachedClaimStatus, error) {
	if attached.Status != fdb.ClaimAwaitingPolicy {
		return attached.Status, fdb.NewErrInvalidState(
			"attached claim "+attached.Id, string(attached.Status), "it is not awaiting policy",
		)
	}
	if approved {
		return fdb.ClaimApproved, nil
	}
	return fdb.ClaimRejected, nil
}

// Inheritance is a claim to be attached to result batches.
type Inheritance struct {
	ClaimId string

	// the attachment on the first source batch.
	InheritedFrom string
}

// Inherit decides claims carried from source batches to result batches of a transaction.
//
// sources are attachments of each source batch. claims are definitions of them.
//
// A claim is inherited when it is inheritable and approved on every source batch.
// Inheritances are ordered by ClaimId.
func Inherit(claims map[string]fdb.Claim, sources [][]fdb.AttachedClaim) []Inheritance {
	if len(sources) == 0 {
		return []Inheritance{}
	}

	approvedOn := func(attached []fdb.AttachedClaim) map[string]string {
		m := map[string]string{}
		for _, a := range attached {
			if a.Status != fdb.ClaimApproved {
				continue
			}
			if c, ok := claims[a.ClaimId]; !ok || !c.Inheritable {
				continue
			}
			if _, ok := m[a.ClaimId]; !ok {
				m[a.ClaimId] = a.Id
			}
		}
		return m
	}

	common := approvedOn(sources[0])
	for _, attached := range sources[1:] {
		here := approvedOn(attached)
		for claimId := range common {
			if _, ok := here[claimId]; !ok {
				delete(common, claimId)
			}
		}
	}

	inherits := make([]Inheritance, 0, len(common))
	for claimId, from := range common {
		inherits = append(inherits, Inheritance{ClaimId: claimId, InheritedFrom: from})
	}
	slices.SortFunc(inherits, func(a, b Inheritance) int {
		return strings.Compare(a.ClaimId, b.ClaimId)
	})
	return inherits
}
