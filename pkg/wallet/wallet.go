// Package wallet holds the core wallet domain types shared across the gateway.
package wallet

import (
	"fmt"
	"strings"
	"time"
)

// ProviderID identifies a signing provider backend.
type ProviderID string

const (
	// ProviderParticipant marks parties whose keys live on the participant node.
	ProviderParticipant ProviderID = "participant"
	// ProviderInternal marks parties signed with locally generated keys.
	ProviderInternal ProviderID = "internal"
	// ProviderFireblocks marks parties signed through the Fireblocks custody API.
	ProviderFireblocks ProviderID = "fireblocks"
	// ProviderDFNS marks parties signed through the DFNS custody API.
	ProviderDFNS ProviderID = "dfns"
)

// Status is the lifecycle status of a wallet record.
type Status string

const (
	// StatusAllocating is set when a party has been requested but not yet confirmed.
	StatusAllocating Status = "allocating"
	// StatusActive is set once the party is visible on the ledger.
	StatusActive Status = "active"
)

// Wallet represents one on-ledger party known to this gateway.
// At most one wallet per (PartyID, NetworkID) exists per user, and at most
// one of a user's wallets on a network is primary.
type Wallet struct {
	PartyID           string
	UserID            string
	Hint              string
	Namespace         string
	PublicKey         string
	NetworkID         string
	SigningProviderID ProviderID
	Primary           bool
	Disabled          bool
	// Reason is set whenever Disabled is true.
	Reason    string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PartyID is "hint::namespace". SplitPartyID returns both segments.
func SplitPartyID(partyID string) (hint, namespace string, err error) {
	idx := strings.Index(partyID, "::")
	if idx < 0 {
		return "", "", fmt.Errorf("invalid party id %q: missing namespace separator", partyID)
	}
	return partyID[:idx], partyID[idx+2:], nil
}

// JoinPartyID builds the canonical "hint::namespace" party identifier.
func JoinPartyID(hint, namespace string) string {
	return hint + "::" + namespace
}

// SigningKey is a key known to a signing provider, owned per user.
// PrivateKey is only present for providers that hold key material locally.
type SigningKey struct {
	ID         string
	Name       string
	PublicKey  string
	PrivateKey string
	Metadata   map[string]string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TxStatus is the signing status of a SigningTransaction.
type TxStatus string

const (
	TxStatusPending  TxStatus = "pending"
	TxStatusSigned   TxStatus = "signed"
	TxStatusRejected TxStatus = "rejected"
	TxStatusFailed   TxStatus = "failed"
)

// SigningTransaction is one hash submitted to a signing provider.
// SignedAt is set on the first transition into TxStatusSigned and never
// overwritten afterwards.
type SigningTransaction struct {
	TxID      string
	Hash      string
	Signature string
	PublicKey string
	Status    TxStatus
	Metadata  map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
	SignedAt  *time.Time
}
