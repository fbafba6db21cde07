package db

import (
	"context"
	"fmt"
	"time"
)

// ClaimScope is the kind of things a claim can be attached to.
type ClaimScope string

const (
	BatchScope       ClaimScope = "batch"
	TransactionScope ClaimScope = "transaction"
	CompanyScope     ClaimScope = "company"
)

func AsClaimScope(s string) (ClaimScope, error) {
	switch ClaimScope(s) {
	case BatchScope, TransactionScope, CompanyScope:
		return ClaimScope(s), nil
	default:
		return ClaimScope(s), NewErrInvalidParam("scope", fmt.Sprintf("unknown claim scope: %s", s))
	}
}

type FieldType string

const (
	TextField        FieldType = "text"
	OptionField      FieldType = "option"
	MultiOptionField FieldType = "multi_option"
	FileField        FieldType = "file"
)

type CriterionField struct {
	Id       string
	Title    string
	Type     FieldType
	Options  []string
	Required bool
}

type Criterion struct {
	Id     string
	Name   string
	Fields []CriterionField
}

type Claim struct {
	Id          string
	Name        string
	Description string
	Scope       ClaimScope

	// approved attachments on all source batches are carried to result batches.
	Inheritable bool

	// attachments should be verified by a verifier node.
	VerificationRequired bool

	// name of the policy in the policy engine. Empty when the claim is not gated.
	GuardianPolicy string

	Criteria []Criterion
}

// Fields of all criteria, keyed by field id.
func (c *Claim) Fields() map[string]CriterionField {
	fields := map[string]CriterionField{}
	for _, cr := range c.Criteria {
		for _, f := range cr.Fields {
			fields[f.Id] = f
		}
	}
	return fields
}

type CriterionFieldParam struct {
	Title    string
	Type     FieldType
	Options  []string
	Required bool
}

type CriterionParam struct {
	Name   string
	Fields []CriterionFieldParam
}

type ClaimParam struct {
	Name                 string
	Description          string
	Scope                ClaimScope
	Inheritable          bool
	VerificationRequired bool
	GuardianPolicy       string
	Criteria             []CriterionParam
}

type AttachedClaimStatus string

const (
	ClaimPending        AttachedClaimStatus = "pending"
	ClaimAwaitingPolicy AttachedClaimStatus = "awaiting_policy"
	ClaimApproved       AttachedClaimStatus = "approved"
	ClaimRejected       AttachedClaimStatus = "rejected"
)

// Target is something a claim is attached to.
type Target struct {
	Kind ClaimScope
	Id   string
}

func (t Target) String() string {
	return fmt.Sprintf("%s:%s", t.Kind, t.Id)
}

type FieldResponse struct {
	FieldId string

	// for text and file fields (file: reference to the stored file).
	Value string

	// for option and multi_option fields.
	Selected []string
}

type AttachedClaim struct {
	Id         string
	ClaimId    string
	Target     Target
	AttachedBy string
	VerifierId string
	Status     AttachedClaimStatus

	// id of the attached claim this one is inherited from. Empty if not inherited.
	InheritedFrom string

	Responses []FieldResponse
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Decision string

const (
	Approve Decision = "approve"
	Reject  Decision = "reject"
)

func AsDecision(s string) (Decision, error) {
	switch Decision(s) {
	case Approve, Reject:
		return Decision(s), nil
	default:
		return Decision(s), NewErrInvalidParam("decision", fmt.Sprintf("unknown decision: %s", s))
	}
}

type Verification struct {
	Id              string
	AttachedClaimId string
	VerifierId      string
	Decision        Decision
	Comment         string
	CreatedAt       time.Time
}

type AttachParam struct {
	Actor      string
	ClaimId    string
	Target     Target
	VerifierId string
	Responses  []FieldResponse
}

type VerifyParam struct {
	AttachedClaimId string
	VerifierId      string
	Decision        Decision
	Comment         string
}

type ClaimInterface interface {
	Create(ctx context.Context, param ClaimParam) (Claim, error)

	// Retrieve claims by ids. Missing ids are absent in the result.
	Get(ctx context.Context, ids []string) (map[string]Claim, error)

	// All claims, optionally filtered by scope (empty = any).
	Find(ctx context.Context, scope ClaimScope) ([]Claim, error)

	Attach(ctx context.Context, param AttachParam) (AttachedClaim, error)

	// Record a verifier's decision.
	Verify(ctx context.Context, param VerifyParam) (AttachedClaim, Verification, error)

	// Move an attachment awaiting policy to approved or rejected.
	ResolvePolicy(ctx context.Context, attachedClaimId string, approved bool, message string) (AttachedClaim, error)

	GetAttached(ctx context.Context, ids []string) (map[string]AttachedClaim, error)
	FindAttached(ctx context.Context, target Target) ([]AttachedClaim, error)

	Verifications(ctx context.Context, attachedClaimId string) ([]Verification, error)
}
