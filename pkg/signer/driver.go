// Package signer defines the pluggable signing-driver contract: one uniform
// surface over every custodial backend the gateway can route a party to.
package signer

import (
	"context"
	"strings"

	"github.com/chainsafe/canton-wallet-gateway/pkg/wallet"
)

// PartyMode is a capability flag describing who owns a driver's key material.
// It does not gate behavior; it informs callers' trust assumptions.
type PartyMode string

const (
	// PartyModeInternal means the driver mints and owns its keys.
	PartyModeInternal PartyMode = "internal"
	// PartyModeExternal means keys are owned by the party's holder and the
	// driver only signs on request.
	PartyModeExternal PartyMode = "external"
)

// SignRequest asks a driver to produce a detached signature over TxHash.
// KeyIdentifier locates the key by public key or driver-side key id.
// InternalTxID is an optional caller-chosen id carried through to the
// resulting transaction record.
type SignRequest struct {
	Transaction   string
	TxHash        string
	KeyIdentifier string
	InternalTxID  string
}

// TransactionFilter selects signing transactions by ids or public keys.
// At least one filter must be set.
type TransactionFilter struct {
	TxIDs      []string
	PublicKeys []string
}

// Empty reports whether no filter criteria are set.
func (f TransactionFilter) Empty() bool {
	return len(f.TxIDs) == 0 && len(f.PublicKeys) == 0
}

// Configuration is an arbitrary per-driver key/value settings bag.
type Configuration map[string]string

// Controller is the per-user operation surface of a signing driver. Every
// operation returns either a success payload or a *Error business error;
// infrastructure failures are wrapped errors as usual.
type Controller interface {
	SignTransaction(ctx context.Context, req SignRequest) (*wallet.SigningTransaction, error)
	GetTransaction(ctx context.Context, txID string) (*wallet.SigningTransaction, error)
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]*wallet.SigningTransaction, error)
	GetKeys(ctx context.Context) ([]*wallet.SigningKey, error)
	CreateKey(ctx context.Context, name string) (*wallet.SigningKey, error)
	GetConfiguration(ctx context.Context) (Configuration, error)
	SetConfiguration(ctx context.Context, cfg Configuration) error
	// SubscribeTransactions streams status changes of this user's signing
	// transactions until ctx is cancelled.
	SubscribeTransactions(ctx context.Context) (<-chan *wallet.SigningTransaction, error)
}

// Driver is one signing backend.
type Driver interface {
	ProviderID() wallet.ProviderID
	PartyMode() PartyMode
	Controller(userID string) Controller
}

// HiddenValue replaces secret-shaped configuration values on the read path.
const HiddenValue = "***HIDDEN***"

var secretKeyFragments = []string{"apikey", "api_key", "masterkey", "master_key", "privatekey", "private_key", "secret", "token"}

// Redact returns a copy of cfg with secret-shaped fields masked. The stored
// value is never modified; masking applies only at the read/serialize
// boundary.
func Redact(cfg Configuration) Configuration {
	if cfg == nil {
		return nil
	}
	out := make(Configuration, len(cfg))
	for k, v := range cfg {
		if v != "" && isSecretKey(k) {
			out[k] = HiddenValue
			continue
		}
		out[k] = v
	}
	return out
}

func isSecretKey(key string) bool {
	lower := strings.ToLower(key)
	for _, fragment := range secretKeyFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}
