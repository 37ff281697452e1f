package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/chainsafe/canton-wallet-gateway/pkg/keys"
	"github.com/chainsafe/canton-wallet-gateway/pkg/wallet"
)

// VerifyPartySignature checks that a message signature was produced by the key
// whose fingerprint is the namespace of partyID. The public key is supplied by
// the caller and bound to the party by recomputing its fingerprint, so a valid
// signature under an unrelated key cannot be attributed to the party.
func VerifyPartySignature(partyID, publicKey, message, signature string) (bool, error) {
	_, namespace, err := wallet.SplitPartyID(partyID)
	if err != nil {
		return false, fmt.Errorf("invalid party id: %w", err)
	}

	pubBytes, err := keys.DecodePublicKey(publicKey)
	if err != nil {
		return false, fmt.Errorf("invalid public key: %w", err)
	}
	if keys.Fingerprint(pubBytes) != namespace {
		return false, fmt.Errorf("public key does not belong to party %s", partyID)
	}

	sigBytes, err := decodeSignature(signature)
	if err != nil {
		return false, err
	}
	// Drop the recovery id if present; verification wants compact R || S.
	if len(sigBytes) == 65 {
		sigBytes = sigBytes[:64]
	}
	if len(sigBytes) != 64 {
		return false, fmt.Errorf("invalid signature length: expected 64 or 65 bytes, got %d", len(sigBytes))
	}

	digest := sha256.Sum256([]byte(message))
	return crypto.VerifySignature(pubBytes, digest[:], sigBytes), nil
}

// decodeSignature accepts base64 (wallet SDK default) or hex with an optional
// 0x prefix.
func decodeSignature(signature string) ([]byte, error) {
	if raw, err := base64.StdEncoding.DecodeString(signature); err == nil && len(raw) > 0 {
		return raw, nil
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode signature: %w", err)
	}
	return raw, nil
}
