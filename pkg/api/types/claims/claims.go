package claims

import "time"

type Field struct {
	Id       string   `json:"id"`
	Title    string   `json:"title"`
	Type     string   `json:"type"`
	Options  []string `json:"options,omitempty"`
	Required bool     `json:"required"`
}

type Criterion struct {
	Id     string  `json:"id"`
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

type Claim struct {
	Id                   string      `json:"id"`
	Name                 string      `json:"name"`
	Description          string      `json:"description,omitempty"`
	Scope                string      `json:"scope"`
	Inheritable          bool        `json:"inheritable"`
	VerificationRequired bool        `json:"verificationRequired"`
	GuardianPolicy       string      `json:"guardianPolicy,omitempty"`
	Criteria             []Criterion `json:"criteria"`
}

type FieldSpec struct {
	Title    string   `json:"title"`
	Type     string   `json:"type"`
	Options  []string `json:"options,omitempty"`
	Required bool     `json:"required"`
}

type CriterionSpec struct {
	Name   string      `json:"name"`
	Fields []FieldSpec `json:"fields"`
}

type ClaimSpec struct {
	Name                 string          `json:"name"`
	Description          string          `json:"description,omitempty"`
	Scope                string          `json:"scope"`
	Inheritable          bool            `json:"inheritable"`
	VerificationRequired bool            `json:"verificationRequired"`
	GuardianPolicy       string          `json:"guardianPolicy,omitempty"`
	Criteria             []CriterionSpec `json:"criteria"`
}

type Response struct {
	FieldId  string   `json:"fieldId"`
	Value    string   `json:"value,omitempty"`
	Selected []string `json:"selected,omitempty"`
}

type Target struct {
	Kind string `json:"kind"`
	Id   string `json:"id"`
}

type AttachSpec struct {
	Target     Target     `json:"target"`
	VerifierId string     `json:"verifierId,omitempty"`
	Responses  []Response `json:"responses"`
}

type AttachedClaim struct {
	Id            string     `json:"id"`
	ClaimId       string     `json:"claimId"`
	Target        Target     `json:"target"`
	AttachedBy    string     `json:"attachedBy"`
	VerifierId    string     `json:"verifierId,omitempty"`
	Status        string     `json:"status"`
	InheritedFrom string     `json:"inheritedFrom,omitempty"`
	Responses     []Response `json:"responses"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type VerifySpec struct {
	Decision string `json:"decision"`
	Comment  string `json:"comment,omitempty"`
}

type Verification struct {
	Id              string    `json:"id"`
	AttachedClaimId string    `json:"attachedClaimId"`
	VerifierId      string    `json:"verifierId"`
	Decision        string    `json:"decision"`
	Comment         string    `json:"comment,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

type Verified struct {
	AttachedClaim AttachedClaim `json:"attachedClaim"`
	Verification  Verification  `json:"verification"`
}
