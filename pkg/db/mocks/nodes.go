package mocks

import (
	"context"

	fdb "github.com/fairtrace/fairtrace/pkg/db"
)

type MockNodeInterface struct {
	Impl struct {
		CreateSupplyChain func(ctx context.Context, name string) (fdb.SupplyChain, error)
		SupplyChains      func(ctx context.Context) ([]fdb.SupplyChain, error)
		CreateProduct     func(ctx context.Context, supplyChainId string, name string) (fdb.Product, error)
		Products          func(ctx context.Context, supplyChainId string) ([]fdb.Product, error)
		Create            func(ctx context.Context, param fdb.NodeParam) (fdb.Node, error)
		CreateFarmer      func(ctx context.Context, creatorId string, supplyChainId string, param fdb.NodeParam) (fdb.Node, error)
		Get               func(ctx context.Context, ids []string) (map[string]fdb.Node, error)
		Find              func(ctx context.Context, query fdb.NodeQuery) ([]fdb.Node, error)
		Invite            func(ctx context.Context, param fdb.InvitationParam) (fdb.Invitation, error)
		Accept            func(ctx context.Context, invitationId string, nodeId string) (fdb.Invitation, error)
		Neighbors         func(ctx context.Context, supplyChainId string, nodeIds []string, direction fdb.Direction) ([]fdb.Connection, error)
	}

	Calls struct {
		CreateSupplyChain CallLog[string]
		CreateProduct     CallLog[fdb.Product]
		Products          CallLog[string]
		Create            CallLog[fdb.NodeParam]
		CreateFarmer      CallLog[struct {
			CreatorId     string
			SupplyChainId string
			Param         fdb.NodeParam
		}]
		Get    CallLog[[]string]
		Find   CallLog[fdb.NodeQuery]
		Invite CallLog[fdb.InvitationParam]
		Accept CallLog[struct {
			InvitationId string
			NodeId       string
		}]
		Neighbors CallLog[struct {
			SupplyChainId string
			NodeIds       []string
			Direction     fdb.Direction
		}]
	}
}

func NewMockNodeInterface() *MockNodeInterface {
	return &MockNodeInterface{}
}

var _ fdb.NodeInterface = &MockNodeInterface{}

func (m *MockNodeInterface) CreateSupplyChain(ctx context.Context, name string) (fdb.SupplyChain, error) {
	m.Calls.CreateSupplyChain = append(m.Calls.CreateSupplyChain, name)
	if m.Impl.CreateSupplyChain == nil {
		panic(notImplemented())
	}
	return m.Impl.CreateSupplyChain(ctx, name)
}

func (m *MockNodeInterface) SupplyChains(ctx context.Context) ([]fdb.SupplyChain, error) {
	if m.Impl.SupplyChains == nil {
		panic(notImplemented())
	}
	return m.Impl.SupplyChains(ctx)
}

func (m *MockNodeInterface) CreateProduct(ctx context.Context, supplyChainId string, name string) (fdb.Product, error) {
	m.Calls.CreateProduct = append(m.Calls.CreateProduct, fdb.Product{SupplyChainId: supplyChainId, Name: name})
	if m.Impl.CreateProduct == nil {
		panic(notImplemented())
	}
	return m.Impl.CreateProduct(ctx, supplyChainId, name)
}

func (m *MockNodeInterface) Products(ctx context.Context, supplyChainId string) ([]fdb.Product, error) {
	m.Calls.Products = append(m.Calls.Products, supplyChainId)
	if m.Impl.Products == nil {
		panic(notImplemented())
	}
	return m.Impl.Products(ctx, supplyChainId)
}

func (m *MockNodeInterface) Create(ctx context.Context, param fdb.NodeParam) (fdb.Node, error) {
	m.Calls.Create = append(m.Calls.Create, param)
	if m.Impl.Create == nil {
		panic(notImplemented())
	}
	return m.Impl.Create(ctx, param)
}

func (m *MockNodeInterface) CreateFarmer(ctx context.Context, creatorId string, supplyChainId string, param fdb.NodeParam) (fdb.Node, error) {
	m.Calls.CreateFarmer = append(m.Calls.CreateFarmer, struct {
		CreatorId     string
		SupplyChainId string
		Param         fdb.NodeParam
	}{CreatorId: creatorId, SupplyChainId: supplyChainId, Param: param})
	if m.Impl.CreateFarmer == nil {
		panic(notImplemented())
	}
	return m.Impl.CreateFarmer(ctx, creatorId, supplyChainId, param)
}

func (m *MockNodeInterface) Get(ctx context.Context, ids []string) (map[string]fdb.Node, error) {
	m.Calls.Get = append(m.Calls.Get, ids)
	if m.Impl.Get == nil {
		panic(notImplemented())
	}
	return m.Impl.Get(ctx, ids)
}

func (m *MockNodeInterface) Find(ctx context.Context, query fdb.NodeQuery) ([]fdb.Node, error) {
	m.Calls.Find = append(m.Calls.Find, query)
	if m.Impl.Find == nil {
		panic(notImplemented())
	}
	return m.Impl.Find(ctx, query)
}

func (m *MockNodeInterface) Invite(ctx context.Context, param fdb.InvitationParam) (fdb.Invitation, error) {
	m.Calls.Invite = append(m.Calls.Invite, param)
	if m.Impl.Invite == nil {
		panic(notImplemented())
	}
	return m.Impl.Invite(ctx, param)
}

func (m *MockNodeInterface) Accept(ctx context.Context, invitationId string, nodeId string) (fdb.Invitation, error) {
	m.Calls.Accept = append(m.Calls.Accept, struct {
		InvitationId string
		NodeId       string
	}{InvitationId: invitationId, NodeId: nodeId})
	if m.Impl.Accept == nil {
		panic(notImplemented())
	}
	return m.Impl.Accept(ctx, invitationId, nodeId)
}

func (m *MockNodeInterface) Neighbors(ctx context.Context, supplyChainId string, nodeIds []string, direction fdb.Direction) ([]fdb.Connection, error) {
	m.Calls.Neighbors = append(m.Calls.Neighbors, struct {
		SupplyChainId string
		NodeIds       []string
		Direction     fdb.Direction
	}{SupplyChainId: supplyChainId, NodeIds: nodeIds, Direction: direction})
	if m.Impl.Neighbors == nil {
		panic(notImplemented())
	}
	return m.Impl.Neighbors(ctx, supplyChainId, nodeIds, direction)
}
