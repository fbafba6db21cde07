package nodes

import "time"

type Node struct {
	Id             string    `json:"id"`
	Type           string    `json:"type"`
	Status         string    `json:"status"`
	Name           string    `json:"name"`
	FirstName      string    `json:"firstName,omitempty"`
	LastName       string    `json:"lastName,omitempty"`
	Identification string    `json:"identification,omitempty"`
	Country        string    `json:"country"`
	Province       string    `json:"province,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Email          string    `json:"email,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NodeSpec is a request body to create a node.
type NodeSpec struct {
	Name           string `json:"name,omitempty"`
	FirstName      string `json:"firstName,omitempty"`
	LastName       string `json:"lastName,omitempty"`
	Identification string `json:"identification,omitempty"`
	Country        string `json:"country"`
	Province       string `json:"province,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Email          string `json:"email,omitempty"`
}

// FarmerSpec is a request body to create a farmer supplying the acting node.
type FarmerSpec struct {
	SupplyChainId string `json:"supplyChainId"`
	NodeSpec
}

type SupplyChain struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

type SupplyChainSpec struct {
	Name string `json:"name"`
}

type Product struct {
	Id            string `json:"id"`
	SupplyChainId string `json:"supplyChainId"`
	Name          string `json:"name"`
}

type ProductSpec struct {
	SupplyChainId string `json:"supplyChainId"`
	Name          string `json:"name"`
}

type Connection struct {
	Id            string    `json:"id"`
	SupplyChainId string    `json:"supplyChainId"`
	BuyerId       string    `json:"buyerId"`
	SupplierId    string    `json:"supplierId"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Invitation struct {
	Id            string    `json:"id"`
	SupplyChainId string    `json:"supplyChainId"`
	InviterId     string    `json:"inviterId"`
	InviteeId     string    `json:"inviteeId"`
	Relation      string    `json:"relation"`
	Status        string    `json:"status"`
	ConnectionId  string    `json:"connectionId"`
	CreatedAt     time.Time `json:"createdAt"`
}

// InvitationSpec is a request body to invite a node.
//
// Either InviteeId (an existing node) or Invitee (a new company) should be given.
type InvitationSpec struct {
	SupplyChainId string    `json:"supplyChainId"`
	Relation      string    `json:"relation"`
	InviteeId     string    `json:"inviteeId,omitempty"`
	Invitee       *NodeSpec `json:"invitee,omitempty"`
}

type Tier struct {
	Tier  int      `json:"tier"`
	Nodes []string `json:"nodes"`
}

type Network struct {
	Root        string          `json:"root"`
	Tiers       []Tier          `json:"tiers"`
	Nodes       map[string]Node `json:"nodes"`
	Connections []Connection    `json:"connections"`
}
