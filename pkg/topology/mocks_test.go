package topology

import (
	"context"

	"github.com/chainsafe/canton-wallet-gateway/pkg/ledger"
)

// MockLedger is a mock implementation of ledger.Ledger
type MockLedger struct {
	GetParticipantIDFunc              func(ctx context.Context) (string, error)
	GetNetworkIDFunc                  func(ctx context.Context) (string, error)
	AllocatePartyFunc                 func(ctx context.Context, hint string) (*ledger.PartyDetails, error)
	ListUserRightsFunc                func(ctx context.Context, userID string) ([]ledger.UserRight, error)
	GrantUserRightsFunc               func(ctx context.Context, userID, partyID string) error
	GenerateExternalPartyTopologyFunc func(ctx context.Context, publicKey []byte, partyHint string) (*ledger.TopologyBundle, error)
	SubmitExternalPartyTopologyFunc   func(ctx context.Context, transactions []ledger.SignedTopologyTransaction, namespace string) (string, error)
	PartyExistsFunc                   func(ctx context.Context, partyID string) (bool, error)
}

func (m *MockLedger) GetParticipantID(ctx context.Context) (string, error) {
	if m.GetParticipantIDFunc != nil {
		return m.GetParticipantIDFunc(ctx)
	}
	return "", nil
}

func (m *MockLedger) GetNetworkID(ctx context.Context) (string, error) {
	if m.GetNetworkIDFunc != nil {
		return m.GetNetworkIDFunc(ctx)
	}
	return "", nil
}

func (m *MockLedger) AllocateParty(ctx context.Context, hint string) (*ledger.PartyDetails, error) {
	if m.AllocatePartyFunc != nil {
		return m.AllocatePartyFunc(ctx, hint)
	}
	return nil, nil
}

func (m *MockLedger) ListUserRights(ctx context.Context, userID string) ([]ledger.UserRight, error) {
	if m.ListUserRightsFunc != nil {
		return m.ListUserRightsFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockLedger) GrantUserRights(ctx context.Context, userID, partyID string) error {
	if m.GrantUserRightsFunc != nil {
		return m.GrantUserRightsFunc(ctx, userID, partyID)
	}
	return nil
}

func (m *MockLedger) GenerateExternalPartyTopology(ctx context.Context, publicKey []byte, partyHint string) (*ledger.TopologyBundle, error) {
	if m.GenerateExternalPartyTopologyFunc != nil {
		return m.GenerateExternalPartyTopologyFunc(ctx, publicKey, partyHint)
	}
	return nil, nil
}

func (m *MockLedger) SubmitExternalPartyTopology(ctx context.Context, transactions []ledger.SignedTopologyTransaction, namespace string) (string, error) {
	if m.SubmitExternalPartyTopologyFunc != nil {
		return m.SubmitExternalPartyTopologyFunc(ctx, transactions, namespace)
	}
	return "", nil
}

func (m *MockLedger) PartyExists(ctx context.Context, partyID string) (bool, error) {
	if m.PartyExistsFunc != nil {
		return m.PartyExistsFunc(ctx, partyID)
	}
	return false, nil
}
