// Package ledger defines the gateway's view of the Canton participant it
// talks to. The wire-level client (gRPC Ledger API) lives outside this
// repository; everything here is the surface the lifecycle and reconciliation
// services consume.
package ledger

import "context"

// RightKind enumerates the user right kinds the gateway cares about.
type RightKind string

const (
	RightCanActAs     RightKind = "CanActAs"
	RightCanExecuteAs RightKind = "CanExecuteAs"
	RightCanReadAs    RightKind = "CanReadAs"
	// RightCanActAsAnyParty is the wildcard right: the user may act as any
	// party on the participant, making per-party grants redundant.
	RightCanActAsAnyParty RightKind = "CanActAsAnyParty"
)

// UserRight is one right a ledger user holds over a party. Party is empty for
// the wildcard right.
type UserRight struct {
	Kind  RightKind
	Party string
}

// IsWildcard reports whether the right covers every party.
func (r UserRight) IsWildcard() bool {
	return r.Kind == RightCanActAsAnyParty
}

// PartyDetails describes a party allocated on the participant.
type PartyDetails struct {
	PartyID string
	IsLocal bool
}

// TopologyBundle is the unsigned artifact returned when the participant
// generates onboarding transactions for a new external party. Transactions
// and TxHashes are index-aligned.
type TopologyBundle struct {
	// Transactions are the serialized unsigned topology transactions.
	Transactions [][]byte
	// TxHashes are the participant-declared hashes of each transaction.
	TxHashes [][]byte
	// CombinedHash is the participant-declared multi-hash the party key must sign.
	CombinedHash []byte
	// PublicKeyFingerprint is the namespace fingerprint of the submitted key.
	PublicKeyFingerprint string
}

// SignedTopologyTransaction pairs one unsigned topology transaction with the
// signature material reconstructed from the combined-hash signature.
type SignedTopologyTransaction struct {
	Transaction []byte
	TxHash      []byte
	Signature   []byte
	SignedBy    string
}

// Ledger is the collaborator interface over the participant node.
type Ledger interface {
	// GetParticipantID returns the participant's own identifier, whose
	// namespace segment owns participant-hosted parties.
	GetParticipantID(ctx context.Context) (string, error)

	// GetNetworkID returns the identifier of the synchronizer (network) this
	// participant is connected to.
	GetNetworkID(ctx context.Context) (string, error)

	// AllocateParty allocates a participant-hosted party with the given hint.
	AllocateParty(ctx context.Context, hint string) (*PartyDetails, error)

	// ListUserRights returns all rights held by the given ledger user.
	ListUserRights(ctx context.Context, userID string) ([]UserRight, error)

	// GrantUserRights grants the user CanActAs rights over partyID.
	GrantUserRights(ctx context.Context, userID, partyID string) error

	// GenerateExternalPartyTopology asks the participant for the unsigned
	// onboarding transactions of a new external party.
	GenerateExternalPartyTopology(ctx context.Context, publicKey []byte, partyHint string) (*TopologyBundle, error)

	// SubmitExternalPartyTopology submits the signed onboarding bundle and
	// returns the canonical party id once accepted.
	SubmitExternalPartyTopology(ctx context.Context, transactions []SignedTopologyTransaction, namespace string) (string, error)

	// PartyExists reports whether the party is visible on the ledger.
	PartyExists(ctx context.Context, partyID string) (bool, error)
}
