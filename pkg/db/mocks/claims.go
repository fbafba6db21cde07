package mocks

import (
	"context"

	fdb "github.com/fairtrace/fairtrace/pkg/db"
)

type MockClaimInterface struct {
	Impl struct {
		Create        func(ctx context.Context, param fdb.ClaimParam) (fdb.Claim, error)
		Get           func(ctx context.Context, ids []string) (map[string]fdb.Claim, error)
		Find          func(ctx context.Context, scope fdb.ClaimScope) ([]fdb.Claim, error)
		Attach        func(ctx context.Context, param fdb.AttachParam) (fdb.AttachedClaim, error)
		Verify        func(ctx context.Context, param fdb.VerifyParam) (fdb.AttachedClaim, fdb.Verification, error)
		ResolvePolicy func(ctx context.Context, attachedClaimId string, approved bool, message string) (fdb.AttachedClaim, error)
		GetAttached   func(ctx context.Context, ids []string) (map[string]fdb.AttachedClaim, error)
		FindAttached  func(ctx context.Context, target fdb.Target) ([]fdb.AttachedClaim, error)
		Verifications func(ctx context.Context, attachedClaimId string) ([]fdb.Verification, error)
	}

	Calls struct {
		Create        CallLog[fdb.ClaimParam]
		Get           CallLog[[]string]
		Find          CallLog[fdb.ClaimScope]
		Attach        CallLog[fdb.AttachParam]
		Verify        CallLog[fdb.VerifyParam]
		ResolvePolicy CallLog[struct {
			AttachedClaimId string
			Approved        bool
			Message         string
		}]
		GetAttached   CallLog[[]string]
		FindAttached  CallLog[fdb.Target]
		Verifications CallLog[string]
	}
}

func NewMockClaimInterface() *MockClaimInterface {
	return &MockClaimInterface{}
}

var _ fdb.ClaimInterface = &MockClaimInterface{}

func (m *MockClaimInterface) Create(ctx context.Context, param fdb.ClaimParam) (fdb.Claim, error) {
	m.Calls.Create = append(m.Calls.Create, param)
	if m.Impl.Create == nil {
		panic(notImplemented())
	}
	return m.Impl.Create(ctx, param)
}

func (m *MockClaimInterface) Get(ctx context.Context, ids []string) (map[string]fdb.Claim, error) {
	m.Calls.Get = append(m.Calls.Get, ids)
	if m.Impl.Get == nil {
		panic(notImplemented())
	}
	return m.Impl.Get(ctx, ids)
}

func (m *MockClaimInterface) Find(ctx context.Context, scope fdb.ClaimScope) ([]fdb.Claim, error) {
	m.Calls.Find = append(m.Calls.Find, scope)
	if m.Impl.Find == nil {
		panic(notImplemented())
	}
	return m.Impl.Find(ctx, scope)
}

func (m *MockClaimInterface) Attach(ctx context.Context, param fdb.AttachParam) (fdb.AttachedClaim, error) {
	m.Calls.Attach = append(m.Calls.Attach, param)
	if m.Impl.Attach == nil {
		panic(notImplemented())
	}
	return m.Impl.Attach(ctx, param)
}

func (m *MockClaimInterface) Verify(ctx context.Context, param fdb.VerifyParam) (fdb.AttachedClaim, fdb.Verification, error) {
	m.Calls.Verify = append(m.Calls.Verify, param)
	if m.Impl.Verify == nil {
		panic(notImplemented())
	}
	return m.Impl.Verify(ctx, param)
}

func (m *MockClaimInterface) ResolvePolicy(ctx context.Context, attachedClaimId string, approved bool, message string) (fdb.AttachedClaim, error) {
	m.Calls.ResolvePolicy = append(m.Calls.ResolvePolicy, struct {
		AttachedClaimId string
		Approved        bool
		Message         string
	}{AttachedClaimId: attachedClaimId, Approved: approved, Message: message})
	if m.Impl.ResolvePolicy == nil {
		panic(notImplemented())
	}
	return m.Impl.ResolvePolicy(ctx, attachedClaimId, approved, message)
}

func (m *MockClaimInterface) GetAttached(ctx context.Context, ids []string) (map[string]fdb.AttachedClaim, error) {
	m.Calls.GetAttached = append(m.Calls.GetAttached, ids)
	if m.Impl.GetAttached == nil {
		panic(notImplemented())
	}
	return m.Impl.GetAttached(ctx, ids)
}

func (m *MockClaimInterface) FindAttached(ctx context.Context, target fdb.Target) ([]fdb.AttachedClaim, error) {
	m.Calls.FindAttached = append(m.Calls.FindAttached, target)
	if m.Impl.FindAttached == nil {
		panic(notImplemented())
	}
	return m.Impl.FindAttached(ctx, target)
}

func (m *MockClaimInterface) Verifications(ctx context.Context, attachedClaimId string) ([]fdb.Verification, error) {
	m.Calls.Verifications = append(m.Calls.Verifications, attachedClaimId)
	if m.Impl.Verifications == nil {
		panic(notImplemented())
	}
	return m.Impl.Verifications(ctx, attachedClaimId)
}
