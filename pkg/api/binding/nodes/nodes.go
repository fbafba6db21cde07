package nodes

import (
	apinodes "github.com/fairtrace/fairtrace/pkg/api/types/nodes"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/fairtrace/fairtrace/pkg/network"
	"github.com/fairtrace/fairtrace/pkg/utils"
)

func ComposeNode(n fdb.Node) apinodes.Node {
	return apinodes.Node{
		Id:             n.Id,
		Type:           string(n.Type),
		Status:         string(n.Status),
		Name:           n.Name,
		FirstName:      n.FirstName,
		LastName:       n.LastName,
		Identification: n.Identification,
		Country:        n.Country,
		Province:       n.Province,
		Phone:          n.Phone,
		Email:          n.Email,
		CreatedAt:      n.CreatedAt,
	}
}

func ComposeSupplyChain(sc fdb.SupplyChain) apinodes.SupplyChain {
	return apinodes.SupplyChain{Id: sc.Id, Name: sc.Name}
}

func ComposeProduct(p fdb.Product) apinodes.Product {
	return apinodes.Product{Id: p.Id, SupplyChainId: p.SupplyChainId, Name: p.Name}
}

func ComposeConnection(c fdb.Connection) apinodes.Connection {
	return apinodes.Connection{
		Id:            c.Id,
		SupplyChainId: c.SupplyChainId,
		BuyerId:       c.BuyerId,
		SupplierId:    c.SupplierId,
		Status:        string(c.Status),
		CreatedAt:     c.CreatedAt,
	}
}

func ComposeInvitation(i fdb.Invitation) apinodes.Invitation {
	return apinodes.Invitation{
		Id:            i.Id,
		SupplyChainId: i.SupplyChainId,
		InviterId:     i.InviterId,
		InviteeId:     i.InviteeId,
		Relation:      string(i.Relation),
		Status:        string(i.Status),
		ConnectionId:  i.ConnectionId,
		CreatedAt:     i.CreatedAt,
	}
}

// ComposeNetwork makes the network with nodes in it.
//
// Tiers are ordered from the farthest buyers to the farthest suppliers.
func ComposeNetwork(net network.Network, nodes map[string]fdb.Node) apinodes.Network {
	tiers := utils.KeysOf(net.Tiers)

	out := apinodes.Network{
		Root:        net.Root,
		Tiers:       make([]apinodes.Tier, 0, len(tiers)),
		Nodes:       map[string]apinodes.Node{},
		Connections: utils.Map(net.Connections, ComposeConnection),
	}
	for _, t := range tiers {
		out.Tiers = append(out.Tiers, apinodes.Tier{Tier: t, Nodes: net.Tiers[t]})
	}
	for id, n := range nodes {
		out.Nodes[id] = ComposeNode(n)
	}
	return out
}

// ParseNodeSpec makes a parameter to create a node of the type.
func ParseNodeSpec(t fdb.NodeType, spec apinodes.NodeSpec) fdb.NodeParam {
	return fdb.NodeParam{
		Type:           t,
		Name:           spec.Name,
		FirstName:      spec.FirstName,
		LastName:       spec.LastName,
		Identification: spec.Identification,
		Country:        spec.Country,
		Province:       spec.Province,
		Phone:          spec.Phone,
		Email:          spec.Email,
	}
}

// ParseInvitationSpec makes a parameter of the invitation by inviter.
//
// New invitees are companies.
func ParseInvitationSpec(inviter string, spec apinodes.InvitationSpec) (fdb.InvitationParam, error) {
	rel, err := fdb.AsRelation(spec.Relation)
	if err != nil {
		return fdb.InvitationParam{}, err
	}
	p := fdb.InvitationParam{
		InviterId:     inviter,
		SupplyChainId: spec.SupplyChainId,
		Relation:      rel,
		InviteeId:     spec.InviteeId,
	}
	switch {
	case spec.InviteeId != "" && spec.Invitee != nil:
		return p, fdb.NewErrInvalidParam("invitee", "give either inviteeId or invitee, not both")
	case spec.InviteeId == "" && spec.Invitee == nil:
		return p, fdb.NewErrInvalidParam("invitee", "inviteeId or invitee is required")
	case spec.Invitee != nil:
		p.Invitee = ParseNodeSpec(fdb.Company, *spec.Invitee)
	}
	if p.SupplyChainId == "" {
		return p, fdb.NewErrInvalidParam("supplyChainId", "required")
	}
	return p, nil
}
