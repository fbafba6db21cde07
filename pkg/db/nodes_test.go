package db_test

import (
	"errors"
	"testing"

	fdb "github.com/fairtrace/fairtrace/pkg/db"
)

func TestNodeParam_Validate(t *testing.T) {
	t.Run("farmer name is composed from first and last name", func(t *testing.T) {
		got, err := fdb.NodeParam{
			Type: fdb.Farmer, FirstName: " Amina ", LastName: "Okello",
			Country: "UG", Phone: "+256 700 000 001",
		}.Validate()
		if err != nil {
			t.Fatal(err)
		}
		if got.Name != "Amina Okello" {
			t.Errorf("unexpected name: %q", got.Name)
		}
		if got.Phone != "+256700000001" {
			t.Errorf("phone is not normalized: %q", got.Phone)
		}
	})

	for name, when := range map[string]fdb.NodeParam{
		"farmer without last name": {Type: fdb.Farmer, FirstName: "A", Country: "UG"},
		"company without name":     {Type: fdb.Company, Country: "UG"},
		"company without country":  {Type: fdb.Company, Name: "Coop"},
		"farmer with bad phone":    {Type: fdb.Farmer, FirstName: "A", LastName: "B", Country: "UG", Phone: "0700"},
		"verifier with bad email":  {Type: fdb.Verifier, Name: "V", Country: "DE", Email: "nobody"},
		"node with unknown type":   {Type: "broker", Name: "X", Country: "DE"},
	} {
		t.Run("when "+name+" is given, it is invalid", func(t *testing.T) {
			if _, err := when.Validate(); !errors.Is(err, fdb.ErrInvalidParam) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestInvitationParam_Edge(t *testing.T) {
	p := fdb.InvitationParam{InviterId: "inviter", Relation: fdb.AsSupplier}
	if buyer, supplier := p.Edge("invitee"); buyer != "inviter" || supplier != "invitee" {
		t.Errorf("invitee as supplier: buyer=%s supplier=%s", buyer, supplier)
	}

	p.Relation = fdb.AsBuyer
	if buyer, supplier := p.Edge("invitee"); buyer != "invitee" || supplier != "inviter" {
		t.Errorf("invitee as buyer: buyer=%s supplier=%s", buyer, supplier)
	}
}
