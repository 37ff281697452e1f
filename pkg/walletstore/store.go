// Package walletstore persists wallets, signing keys, signing transactions,
// and per-driver configuration in PostgreSQL.
package walletstore

import (
	"context"
	"errors"

	"github.com/chainsafe/canton-wallet-gateway/pkg/wallet"
)

var (
	// ErrWalletNotFound is returned when a wallet lookup finds no matching record.
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrTransactionNotFound is returned when a signing transaction lookup finds no record.
	ErrTransactionNotFound = errors.New("signing transaction not found")
	// ErrConfigNotFound is returned when no driver configuration is persisted.
	ErrConfigNotFound = errors.New("driver configuration not found")
)

// WalletStore defines wallet record persistence. Writes are idempotent
// upserts keyed by (party_id, network_id); benign double-writes with the same
// content are tolerated.
type WalletStore interface {
	GetWallets(ctx context.Context, userID string, opts ...QueryOption) ([]*wallet.Wallet, error)
	GetWallet(ctx context.Context, userID, partyID, networkID string) (*wallet.Wallet, error)
	UpsertWallet(ctx context.Context, w *wallet.Wallet) error
	RemoveWallet(ctx context.Context, userID, partyID, networkID string) error
	// SetPrimaryWallet marks one wallet primary and clears the flag on the
	// user's other wallets on the same network.
	SetPrimaryWallet(ctx context.Context, userID, partyID, networkID string) error
	HasPrimaryWallet(ctx context.Context, userID, networkID string) (bool, error)
}

// SigningKeyStore caches driver-reported keys per (user, provider).
type SigningKeyStore interface {
	GetSigningKeys(ctx context.Context, userID string, providerID wallet.ProviderID) ([]*wallet.SigningKey, error)
	SetSigningKeys(ctx context.Context, userID string, providerID wallet.ProviderID, keys []*wallet.SigningKey) error
}

// SigningTransactionStore persists signing transaction records. The upsert
// preserves signed_at once set: a transaction that reached "signed" keeps its
// original signing timestamp on any later write.
type SigningTransactionStore interface {
	GetSigningTransaction(ctx context.Context, userID, txID string) (*wallet.SigningTransaction, error)
	GetSigningTransactions(ctx context.Context, userID string, txIDs, publicKeys []string) ([]*wallet.SigningTransaction, error)
	UpsertSigningTransaction(ctx context.Context, userID string, providerID wallet.ProviderID, tx *wallet.SigningTransaction) error
}

// DriverConfigStore persists per-driver configuration keyed by (user, provider).
// Values are stored verbatim; secret masking happens at the read boundary in
// the signer layer, never here.
type DriverConfigStore interface {
	GetDriverConfig(ctx context.Context, userID string, providerID wallet.ProviderID) (map[string]string, error)
	SetDriverConfig(ctx context.Context, userID string, providerID wallet.ProviderID, config map[string]string) error
}

// Store aggregates all gateway persistence operations.
type Store interface {
	WalletStore
	SigningKeyStore
	SigningTransactionStore
	DriverConfigStore
}

// QueryOptions defines filters for wallet queries.
type QueryOptions struct {
	NetworkID  *string
	PartyID    *string
	ProviderID *wallet.ProviderID
	Primary    *bool
}

// QueryOption is a functional option for querying wallets.
type QueryOption func(*QueryOptions)

// WithNetworkID filters wallets by network.
func WithNetworkID(networkID string) QueryOption {
	return func(opts *QueryOptions) {
		opts.NetworkID = &networkID
	}
}

// WithPartyID filters wallets by party id.
func WithPartyID(partyID string) QueryOption {
	return func(opts *QueryOptions) {
		opts.PartyID = &partyID
	}
}

// WithProviderID filters wallets by signing provider.
func WithProviderID(providerID wallet.ProviderID) QueryOption {
	return func(opts *QueryOptions) {
		opts.ProviderID = &providerID
	}
}

// WithPrimary filters wallets by the primary flag.
func WithPrimary(primary bool) QueryOption {
	return func(opts *QueryOptions) {
		opts.Primary = &primary
	}
}
