package walletsync

import (
	"context"

	"github.com/chainsafe/canton-wallet-gateway/pkg/ledger"
	"github.com/chainsafe/canton-wallet-gateway/pkg/signer"
	"github.com/chainsafe/canton-wallet-gateway/pkg/wallet"
	"github.com/chainsafe/canton-wallet-gateway/pkg/walletstore"
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

// MockStore is a mock implementation of walletstore.Store
type MockStore struct {
	GetWalletsFunc    func(ctx context.Context, userID string, opts ...walletstore.QueryOption) ([]*wallet.Wallet, error)
	GetWalletFunc     func(ctx context.Context, userID, partyID, networkID string) (*wallet.Wallet, error)
	UpsertWalletFunc  func(ctx context.Context, w *wallet.Wallet) error
	RemoveWalletFunc  func(ctx context.Context, userID, partyID, networkID string) error
	SetPrimaryFunc    func(ctx context.Context, userID, partyID, networkID string) error
	HasPrimaryFunc    func(ctx context.Context, userID, networkID string) (bool, error)
	GetSigningKeysFn  func(ctx context.Context, userID string, providerID wallet.ProviderID) ([]*wallet.SigningKey, error)
	SetSigningKeysFn  func(ctx context.Context, userID string, providerID wallet.ProviderID, keys []*wallet.SigningKey) error
	GetSigningTxFn    func(ctx context.Context, userID, txID string) (*wallet.SigningTransaction, error)
	GetSigningTxsFn   func(ctx context.Context, userID string, txIDs, publicKeys []string) ([]*wallet.SigningTransaction, error)
	UpsertSigningTxFn func(ctx context.Context, userID string, providerID wallet.ProviderID, tx *wallet.SigningTransaction) error
	GetDriverCfgFn    func(ctx context.Context, userID string, providerID wallet.ProviderID) (map[string]string, error)
	SetDriverCfgFn    func(ctx context.Context, userID string, providerID wallet.ProviderID, config map[string]string) error
}

func (m *MockStore) GetWallets(ctx context.Context, userID string, opts ...walletstore.QueryOption) ([]*wallet.Wallet, error) {
	if m.GetWalletsFunc != nil {
		return m.GetWalletsFunc(ctx, userID, opts...)
	}
	return nil, nil
}

func (m *MockStore) GetWallet(ctx context.Context, userID, partyID, networkID string) (*wallet.Wallet, error) {
	if m.GetWalletFunc != nil {
		return m.GetWalletFunc(ctx, userID, partyID, networkID)
	}
	return nil, walletstore.ErrWalletNotFound
}

func (m *MockStore) UpsertWallet(ctx context.Context, w *wallet.Wallet) error {
	if m.UpsertWalletFunc != nil {
		return m.UpsertWalletFunc(ctx, w)
	}
	return nil
}

func (m *MockStore) RemoveWallet(ctx context.Context, userID, partyID, networkID string) error {
	if m.RemoveWalletFunc != nil {
		return m.RemoveWalletFunc(ctx, userID, partyID, networkID)
	}
	return nil
}

func (m *MockStore) SetPrimaryWallet(ctx context.Context, userID, partyID, networkID string) error {
	if m.SetPrimaryFunc != nil {
		return m.SetPrimaryFunc(ctx, userID, partyID, networkID)
	}
	return nil
}

func (m *MockStore) HasPrimaryWallet(ctx context.Context, userID, networkID string) (bool, error) {
	if m.HasPrimaryFunc != nil {
		return m.HasPrimaryFunc(ctx, userID, networkID)
	}
	return false, nil
}

func (m *MockStore) GetSigningKeys(ctx context.Context, userID string, providerID wallet.ProviderID) ([]*wallet.SigningKey, error) {
	if m.GetSigningKeysFn != nil {
		return m.GetSigningKeysFn(ctx, userID, providerID)
	}
	return nil, nil
}

func (m *MockStore) SetSigningKeys(ctx context.Context, userID string, providerID wallet.ProviderID, keys []*wallet.SigningKey) error {
	if m.SetSigningKeysFn != nil {
		return m.SetSigningKeysFn(ctx, userID, providerID, keys)
	}
	return nil
}

func (m *MockStore) GetSigningTransaction(ctx context.Context, userID, txID string) (*wallet.SigningTransaction, error) {
	if m.GetSigningTxFn != nil {
		return m.GetSigningTxFn(ctx, userID, txID)
	}
	return nil, walletstore.ErrTransactionNotFound
}

func (m *MockStore) GetSigningTransactions(ctx context.Context, userID string, txIDs, publicKeys []string) ([]*wallet.SigningTransaction, error) {
	if m.GetSigningTxsFn != nil {
		return m.GetSigningTxsFn(ctx, userID, txIDs, publicKeys)
	}
	return nil, nil
}

func (m *MockStore) UpsertSigningTransaction(ctx context.Context, userID string, providerID wallet.ProviderID, tx *wallet.SigningTransaction) error {
	if m.UpsertSigningTxFn != nil {
		return m.UpsertSigningTxFn(ctx, userID, providerID, tx)
	}
	return nil
}

func (m *MockStore) GetDriverConfig(ctx context.Context, userID string, providerID wallet.ProviderID) (map[string]string, error) {
	if m.GetDriverCfgFn != nil {
		return m.GetDriverCfgFn(ctx, userID, providerID)
	}
	return nil, walletstore.ErrConfigNotFound
}

func (m *MockStore) SetDriverConfig(ctx context.Context, userID string, providerID wallet.ProviderID, config map[string]string) error {
	if m.SetDriverCfgFn != nil {
		return m.SetDriverCfgFn(ctx, userID, providerID, config)
	}
	return nil
}

// MockDriver is a mock implementation of signer.Driver
type MockDriver struct {
	ProviderIDVal  wallet.ProviderID
	PartyModeVal   signer.PartyMode
	ControllerFunc func(userID string) signer.Controller
}

func (m *MockDriver) ProviderID() wallet.ProviderID { return m.ProviderIDVal }

func (m *MockDriver) PartyMode() signer.PartyMode {
	if m.PartyModeVal == "" {
		return signer.PartyModeExternal
	}
	return m.PartyModeVal
}

func (m *MockDriver) Controller(userID string) signer.Controller {
	if m.ControllerFunc != nil {
		return m.ControllerFunc(userID)
	}
	return &MockController{}
}

// MockController is a mock implementation of signer.Controller
type MockController struct {
	SignTransactionFunc func(ctx context.Context, req signer.SignRequest) (*wallet.SigningTransaction, error)
	GetTransactionFunc  func(ctx context.Context, txID string) (*wallet.SigningTransaction, error)
	GetTransactionsFunc func(ctx context.Context, filter signer.TransactionFilter) ([]*wallet.SigningTransaction, error)
	GetKeysFunc         func(ctx context.Context) ([]*wallet.SigningKey, error)
	CreateKeyFunc       func(ctx context.Context, name string) (*wallet.SigningKey, error)
	GetConfigFunc       func(ctx context.Context) (signer.Configuration, error)
	SetConfigFunc       func(ctx context.Context, cfg signer.Configuration) error
	SubscribeFunc       func(ctx context.Context) (<-chan *wallet.SigningTransaction, error)
}

func (m *MockController) SignTransaction(ctx context.Context, req signer.SignRequest) (*wallet.SigningTransaction, error) {
	if m.SignTransactionFunc != nil {
		return m.SignTransactionFunc(ctx, req)
	}
	return nil, nil
}

func (m *MockController) GetTransaction(ctx context.Context, txID string) (*wallet.SigningTransaction, error) {
	if m.GetTransactionFunc != nil {
		return m.GetTransactionFunc(ctx, txID)
	}
	return nil, nil
}

func (m *MockController) GetTransactions(ctx context.Context, filter signer.TransactionFilter) ([]*wallet.SigningTransaction, error) {
	if m.GetTransactionsFunc != nil {
		return m.GetTransactionsFunc(ctx, filter)
	}
	return nil, nil
}

func (m *MockController) GetKeys(ctx context.Context) ([]*wallet.SigningKey, error) {
	if m.GetKeysFunc != nil {
		return m.GetKeysFunc(ctx)
	}
	return nil, nil
}

func (m *MockController) CreateKey(ctx context.Context, name string) (*wallet.SigningKey, error) {
	if m.CreateKeyFunc != nil {
		return m.CreateKeyFunc(ctx, name)
	}
	return nil, nil
}

func (m *MockController) GetConfiguration(ctx context.Context) (signer.Configuration, error) {
	if m.GetConfigFunc != nil {
		return m.GetConfigFunc(ctx)
	}
	return signer.Configuration{}, nil
}

func (m *MockController) SetConfiguration(ctx context.Context, cfg signer.Configuration) error {
	if m.SetConfigFunc != nil {
		return m.SetConfigFunc(ctx, cfg)
	}
	return nil
}

func (m *MockController) SubscribeTransactions(ctx context.Context) (<-chan *wallet.SigningTransaction, error) {
	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(ctx)
	}
	return nil, nil
}
