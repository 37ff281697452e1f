// Package topology drives external-party onboarding: it asks the participant
// for unsigned topology transactions, verifies the declared hashes locally,
// collects a signature over the combined hash, and submits the signed bundle.
package topology

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/chainsafe/canton-wallet-gateway/pkg/keys"
	"github.com/chainsafe/canton-wallet-gateway/pkg/ledger"
	"github.com/chainsafe/canton-wallet-gateway/pkg/wallet"
)

// ErrHashMismatch is returned when a hash declared by the participant does
// not match the value recomputed from the transaction bytes. Signing must not
// proceed past it: endorsing an unverified hash would let a compromised
// participant obtain a signature over arbitrary content.
var ErrHashMismatch = errors.New("participant-declared hash does not match locally computed hash")

// defaultHintLength is how much of the namespace fingerprint seeds the party
// hint when the caller provides none.
const defaultHintLength = 12

// SignFunc produces a signature over the combined topology hash. The hash is
// passed in its canonical multihash form.
type SignFunc func(ctx context.Context, combinedHash []byte) ([]byte, error)

// RightsEnsurer grants or confirms a ledger user's rights over a party after
// allocation.
type RightsEnsurer interface {
	EnsureUserRights(ctx context.Context, userID, partyID string) error
}

// PreparedParty is a verified, not-yet-signed onboarding bundle.
type PreparedParty struct {
	PartyID      string
	Hint         string
	Namespace    string
	Transactions [][]byte
	TxHashes     [][]byte
	CombinedHash []byte
}

// Option configures the Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithRightsEnsurer makes the combined onboarding flow grant the requesting
// user rights over the new party after submission.
func WithRightsEnsurer(rights RightsEnsurer) Option {
	return func(c *Controller) { c.rights = rights }
}

// Controller implements the onboarding flow against one participant.
type Controller struct {
	ledger ledger.Ledger
	logger *zap.Logger
	rights RightsEnsurer
}

// New creates a topology controller.
func New(l ledger.Ledger, opts ...Option) *Controller {
	c := &Controller{ledger: l, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PrepareExternalPartyTopology generates the onboarding transactions for
// publicKey and verifies every hash the participant declared before anything
// is handed to a signer. An empty hint defaults to a prefix of the key's
// namespace fingerprint.
func (c *Controller) PrepareExternalPartyTopology(ctx context.Context, publicKey []byte, hint string) (*PreparedParty, error) {
	if len(publicKey) == 0 {
		return nil, fmt.Errorf("public key is required")
	}

	namespace := keys.Fingerprint(publicKey)
	if hint == "" {
		hint = namespace[:defaultHintLength]
	}

	bundle, err := c.ledger.GenerateExternalPartyTopology(ctx, publicKey, hint)
	if err != nil {
		return nil, fmt.Errorf("failed to generate onboarding transactions: %w", err)
	}
	if err := verifyBundle(bundle, namespace); err != nil {
		return nil, err
	}

	c.logger.Debug("Prepared external party topology",
		zap.String("party_id", wallet.JoinPartyID(hint, namespace)),
		zap.Int("transactions", len(bundle.Transactions)))

	return &PreparedParty{
		PartyID:      wallet.JoinPartyID(hint, namespace),
		Hint:         hint,
		Namespace:    namespace,
		Transactions: bundle.Transactions,
		TxHashes:     bundle.TxHashes,
		CombinedHash: bundle.CombinedHash,
	}, nil
}

// SubmitExternalPartyTopology submits a prepared bundle endorsed by signature,
// a single signature over the combined hash that covers every transaction.
func (c *Controller) SubmitExternalPartyTopology(ctx context.Context, prepared *PreparedParty, signature []byte) (string, error) {
	if prepared == nil {
		return "", fmt.Errorf("prepared party is required")
	}
	if len(signature) == 0 {
		return "", fmt.Errorf("signature is required")
	}

	signed := make([]ledger.SignedTopologyTransaction, len(prepared.Transactions))
	for i, tx := range prepared.Transactions {
		signed[i] = ledger.SignedTopologyTransaction{
			Transaction: tx,
			TxHash:      prepared.TxHashes[i],
			Signature:   signature,
			SignedBy:    prepared.Namespace,
		}
	}

	partyID, err := c.ledger.SubmitExternalPartyTopology(ctx, signed, prepared.Namespace)
	if err != nil {
		return "", fmt.Errorf("failed to submit onboarding transactions: %w", err)
	}

	c.logger.Info("Submitted external party topology",
		zap.String("party_id", partyID))

	return partyID, nil
}

// PrepareSignAndSubmitExternalParty runs the whole onboarding flow: prepare,
// sign the combined hash through sign, submit, and when a rights ensurer is
// configured, make sure userID can act as the new party.
func (c *Controller) PrepareSignAndSubmitExternalParty(ctx context.Context, userID string, publicKey []byte, hint string, sign SignFunc) (string, error) {
	prepared, err := c.PrepareExternalPartyTopology(ctx, publicKey, hint)
	if err != nil {
		return "", err
	}

	signature, err := sign(ctx, prepared.CombinedHash)
	if err != nil {
		return "", fmt.Errorf("failed to sign combined topology hash: %w", err)
	}

	partyID, err := c.SubmitExternalPartyTopology(ctx, prepared, signature)
	if err != nil {
		return "", err
	}

	if c.rights != nil {
		if err := c.rights.EnsureUserRights(ctx, userID, partyID); err != nil {
			return "", fmt.Errorf("party %s allocated but rights were not confirmed: %w", partyID, err)
		}
	}
	return partyID, nil
}

// verifyBundle recomputes every hash from the transaction bytes and rejects
// the bundle on any disagreement with the participant-declared values.
func verifyBundle(bundle *ledger.TopologyBundle, namespace string) error {
	if len(bundle.Transactions) == 0 {
		return fmt.Errorf("participant returned no onboarding transactions")
	}
	if len(bundle.Transactions) != len(bundle.TxHashes) {
		return fmt.Errorf("%w: %d transactions but %d hashes", ErrHashMismatch, len(bundle.Transactions), len(bundle.TxHashes))
	}
	if bundle.PublicKeyFingerprint != "" && bundle.PublicKeyFingerprint != namespace {
		return fmt.Errorf("%w: declared fingerprint %s, computed %s", ErrHashMismatch, bundle.PublicKeyFingerprint, namespace)
	}

	for i, tx := range bundle.Transactions {
		if !keys.HashEqual(keys.TransactionHash(tx), bundle.TxHashes[i]) {
			return fmt.Errorf("%w: transaction %d", ErrHashMismatch, i)
		}
	}
	if !keys.HashEqual(keys.CombineHashes(bundle.TxHashes), bundle.CombinedHash) {
		return fmt.Errorf("%w: combined hash", ErrHashMismatch)
	}
	return nil
}
