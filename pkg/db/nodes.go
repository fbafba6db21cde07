package db

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

type NodeType string

const (
	Company  NodeType = "company"
	Farmer   NodeType = "farmer"
	Verifier NodeType = "verifier"
)

func (t NodeType) String() string {
	return string(t)
}

func AsNodeType(s string) (NodeType, error) {
	switch NodeType(s) {
	case Company, Farmer, Verifier:
		return NodeType(s), nil
	default:
		return NodeType(s), NewErrInvalidParam("type", fmt.Sprintf("unknown node type: %s", s))
	}
}

type NodeStatus string

const (
	NodeActive  NodeStatus = "active"
	NodeInvited NodeStatus = "invited"
)

// Node is a participant of supply chains.
type Node struct {
	Id     string
	Type   NodeType
	Status NodeStatus

	// Name is the display name.
	// For farmers, it is composed from FirstName and LastName.
	Name string

	FirstName      string
	LastName       string
	Identification string

	Country  string
	Province string
	Phone    string
	Email    string

	CreatedAt time.Time
}

func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == nil && o == nil
	}
	return n.Id == o.Id &&
		n.Type == o.Type &&
		n.Status == o.Status &&
		n.Name == o.Name &&
		n.FirstName == o.FirstName &&
		n.LastName == o.LastName &&
		n.Identification == o.Identification &&
		n.Country == o.Country &&
		n.Province == o.Province &&
		n.Phone == o.Phone &&
		n.Email == o.Email &&
		n.CreatedAt.Equal(o.CreatedAt)
}

// NodeParam is a request to create a node.
type NodeParam struct {
	Type           NodeType
	Name           string
	FirstName      string
	LastName       string
	Identification string
	Country        string
	Province       string
	Phone          string
	Email          string
}

var phonePattern = regexp.MustCompile(`^\+[0-9]{7,15}$`)

// ValidPhone tells the phone number is "+" followed by 7 to 15 digits.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// Validate checks the parameter and returns normalized one.
func (p NodeParam) Validate() (NodeParam, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Country = strings.TrimSpace(p.Country)
	p.Province = strings.TrimSpace(p.Province)
	p.Phone = strings.ReplaceAll(strings.TrimSpace(p.Phone), " ", "")
	p.Email = strings.TrimSpace(p.Email)

	switch p.Type {
	case Farmer:
		if p.FirstName == "" {
			return p, NewErrInvalidParam("firstName", "required")
		}
		if p.LastName == "" {
			return p, NewErrInvalidParam("lastName", "required")
		}
		p.Name = p.FirstName + " " + p.LastName
	case Company, Verifier:
		if p.Name == "" {
			return p, NewErrInvalidParam("name", "required")
		}
	default:
		return p, NewErrInvalidParam("type", fmt.Sprintf("unknown node type: %s", p.Type))
	}

	if p.Country == "" {
		return p, NewErrInvalidParam("country", "required")
	}
	if p.Phone != "" && !ValidPhone(p.Phone) {
		return p, NewErrInvalidParam("phone", "should be + followed by 7-15 digits")
	}
	if p.Email != "" && !strings.Contains(p.Email, "@") {
		return p, NewErrInvalidParam("email", "malformed")
	}
	return p, nil
}

type SupplyChain struct {
	Id   string
	Name string
}

type Product struct {
	Id            string
	SupplyChainId string
	Name          string
}

type ConnectionStatus string

const (
	ConnectionPending ConnectionStatus = "pending"
	ConnectionActive  ConnectionStatus = "active"
)

// Connection is a buyer-supplier edge in a supply chain.
type Connection struct {
	Id            string
	SupplyChainId string
	BuyerId       string
	SupplierId    string
	Status        ConnectionStatus
	CreatedAt     time.Time
}

type Relation string

const (
	// the invitee becomes a supplier of the inviter.
	AsSupplier Relation = "supplier"

	// the invitee becomes a buyer of the inviter.
	AsBuyer Relation = "buyer"
)

func AsRelation(s string) (Relation, error) {
	switch Relation(s) {
	case AsSupplier, AsBuyer:
		return Relation(s), nil
	default:
		return Relation(s), NewErrInvalidParam("relation", fmt.Sprintf("unknown relation: %s", s))
	}
}

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
)

type Invitation struct {
	Id            string
	SupplyChainId string
	InviterId     string
	InviteeId     string
	Relation      Relation
	Status        InvitationStatus
	ConnectionId  string
	CreatedAt     time.Time
}

// InvitationParam is a request to invite a node into a supply chain.
type InvitationParam struct {
	InviterId     string
	SupplyChainId string
	Relation      Relation

	// InviteeId is set when the invitee already exists.
	InviteeId string

	// Invitee is used to create the invitee when InviteeId is empty.
	Invitee NodeParam
}

// Edge tells the buyer and supplier of a connection.
//
// It returns (buyer, supplier).
func (p InvitationParam) Edge(inviteeId string) (string, string) {
	if p.Relation == AsSupplier {
		return p.InviterId, inviteeId
	}
	return inviteeId, p.InviterId
}

type NodeQuery struct {
	Type          NodeType
	Name          string
	SupplyChainId string
}

// Direction of traversing connections or lineages.
type Direction string

const (
	// toward suppliers / sources.
	Upstream Direction = "up"

	// toward buyers / results.
	Downstream Direction = "down"
)

func AsDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Upstream, Downstream:
		return Direction(s), nil
	case "":
		return Upstream, nil
	default:
		return Direction(s), NewErrInvalidParam("direction", fmt.Sprintf("unknown direction: %s", s))
	}
}

type NodeInterface interface {
	CreateSupplyChain(ctx context.Context, name string) (SupplyChain, error)
	SupplyChains(ctx context.Context) ([]SupplyChain, error)

	CreateProduct(ctx context.Context, supplyChainId string, name string) (Product, error)

	// Products of the supply chain. When supplyChainId is empty, all products.
	Products(ctx context.Context, supplyChainId string) ([]Product, error)

	// Create a company or verifier.
	Create(ctx context.Context, param NodeParam) (Node, error)

	// Create a farmer and connect it as a supplier of the creator.
	CreateFarmer(ctx context.Context, creatorId string, supplyChainId string, param NodeParam) (Node, error)

	// Retrieve nodes by ids. Missing ids are absent in the result.
	Get(ctx context.Context, ids []string) (map[string]Node, error)

	Find(ctx context.Context, query NodeQuery) ([]Node, error)

	// Invite a node. The connection stays pending until the invitee accepts it.
	Invite(ctx context.Context, param InvitationParam) (Invitation, error)

	// Accept an invitation. Only the invitee can accept.
	Accept(ctx context.Context, invitationId string, nodeId string) (Invitation, error)

	// Active connections adjacent to nodes.
	//
	// With Upstream, connections where the nodes are buyers (= their suppliers).
	// With Downstream, connections where the nodes are suppliers (= their buyers).
	Neighbors(ctx context.Context, supplyChainId string, nodeIds []string, direction Direction) ([]Connection, error)
}
