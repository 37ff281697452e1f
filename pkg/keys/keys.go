// Package keys provides secp256k1 key handling, party fingerprints, and the
// canonical hash functions used when preparing topology transactions for
// external signing.
package keys

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/hkdf"
)

// KeyPair represents a secp256k1 signing keypair.
type KeyPair struct {
	PublicKey  []byte // 33-byte compressed secp256k1 public key
	PrivateKey []byte // 32-byte secp256k1 private key
}

// GenerateKeyPair generates a new secp256k1 keypair.
func GenerateKeyPair() (*KeyPair, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate secp256k1 keypair: %w", err)
	}

	return &KeyPair{
		PublicKey:  crypto.CompressPubkey(&privateKey.PublicKey),
		PrivateKey: crypto.FromECDSA(privateKey),
	}, nil
}

// DeriveKeyPair deterministically derives a keypair from a user identifier and
// a gateway seed, so the same key can be regenerated if the stored copy is
// lost. Uses HKDF with SHA-256.
func DeriveKeyPair(userID string, seed []byte) (*KeyPair, error) {
	if len(seed) < 32 {
		return nil, fmt.Errorf("seed must be at least 32 bytes")
	}

	info := []byte("gateway-signing-key-" + userID)
	hkdfReader := hkdf.New(sha256.New, seed, nil, info)

	privateKeyBytes := make([]byte, 32)
	if _, err := io.ReadFull(hkdfReader, privateKeyBytes); err != nil {
		return nil, fmt.Errorf("failed to derive key seed: %w", err)
	}

	return KeyPairFromPrivateKey(privateKeyBytes)
}

// KeyPairFromPrivateKey reconstructs a keypair from a 32-byte private key.
func KeyPairFromPrivateKey(privateKey []byte) (*KeyPair, error) {
	priv, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create private key: %w", err)
	}

	return &KeyPair{
		PublicKey:  crypto.CompressPubkey(&priv.PublicKey),
		PrivateKey: crypto.FromECDSA(priv),
	}, nil
}

// PublicKeyHex returns the public key as a hex string.
func (kp *KeyPair) PublicKeyHex() string {
	return hex.EncodeToString(kp.PublicKey)
}

// PublicKeyBase64 returns the public key as a base64 string.
func (kp *KeyPair) PublicKeyBase64() string {
	return base64.StdEncoding.EncodeToString(kp.PublicKey)
}

// Fingerprint returns the party namespace derived from this keypair.
func (kp *KeyPair) Fingerprint() string {
	return Fingerprint(kp.PublicKey)
}

// SignHash signs a pre-hashed 32-byte message and returns a 64-byte
// compact signature (R || S, no recovery id).
func (kp *KeyPair) SignHash(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}

	privateKey, err := crypto.ToECDSA(kp.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to convert private key: %w", err)
	}

	signature, err := crypto.Sign(hash, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}

	return signature[:64], nil
}

// VerifyHash verifies a 64-byte compact signature over a 32-byte hash against
// the keypair's public key.
func (kp *KeyPair) VerifyHash(hash, signature []byte) bool {
	if len(hash) != 32 || len(signature) != 64 {
		return false
	}
	return crypto.VerifySignature(kp.PublicKey, hash, signature)
}

// GenerateSeed generates a random 32-byte seed for deterministic key
// derivation or key encryption.
func GenerateSeed() ([]byte, error) {
	seed := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, seed); err != nil {
		return nil, fmt.Errorf("failed to generate seed: %w", err)
	}
	return seed, nil
}
