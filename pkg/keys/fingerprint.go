package keys

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// multihashSHA256Prefix is the multihash header for a 32-byte SHA-256 digest,
// matching the encoding Canton uses for key fingerprints.
var multihashSHA256Prefix = []byte{0x12, 0x20}

// Fingerprint computes the deterministic namespace of a public key: the
// hex-encoded SHA-256 multihash of the raw key bytes. Identical key material
// always yields an identical fingerprint; it is the join key between ledger
// party identifiers and local signing keys.
func Fingerprint(publicKey []byte) string {
	digest := sha256.Sum256(publicKey)
	return hex.EncodeToString(append(multihashSHA256Prefix, digest[:]...))
}

// FingerprintFromEncoded computes the fingerprint of a public key given in
// hex (with or without 0x prefix) or standard base64. Equivalent encodings of
// the same key bytes yield the same fingerprint.
func FingerprintFromEncoded(publicKey string) (string, error) {
	raw, err := DecodePublicKey(publicKey)
	if err != nil {
		return "", err
	}
	return Fingerprint(raw), nil
}

// DecodePublicKey decodes a hex- or base64-encoded public key into raw bytes.
func DecodePublicKey(publicKey string) ([]byte, error) {
	trimmed := strings.TrimPrefix(publicKey, "0x")
	if raw, err := hex.DecodeString(trimmed); err == nil && len(raw) > 0 {
		return raw, nil
	}
	if raw, err := base64.StdEncoding.DecodeString(publicKey); err == nil && len(raw) > 0 {
		return raw, nil
	}
	return nil, fmt.Errorf("public key is neither valid hex nor base64")
}

// TransactionHash computes the canonical hash of a serialized prepared
// transaction: the SHA-256 multihash of the transaction bytes. Callers that
// sign offline recompute this hash independently and compare it to the value
// declared by the ledger before signing.
func TransactionHash(tx []byte) []byte {
	digest := sha256.Sum256(tx)
	return append(append([]byte{}, multihashSHA256Prefix...), digest[:]...)
}

// CombineHashes folds an ordered list of transaction hashes into the single
// combined hash a signer endorses in place of signing each transaction
// individually. The combination is order-sensitive and length-prefixed so no
// two distinct hash lists collide.
func CombineHashes(hashes [][]byte) []byte {
	h := sha256.New()

	var count [4]byte
	binary.BigEndian.PutUint32(count[:], uint32(len(hashes)))
	h.Write(count[:])

	var size [4]byte
	for _, hash := range hashes {
		binary.BigEndian.PutUint32(size[:], uint32(len(hash)))
		h.Write(size[:])
		h.Write(hash)
	}

	return append(append([]byte{}, multihashSHA256Prefix...), h.Sum(nil)...)
}

// HashEqual compares two hashes in constant shape (nil-safe).
func HashEqual(a, b []byte) bool {
	return bytes.Equal(a, b)
}

// SigningDigest reduces a canonical hash to the 32-byte digest an ECDSA
// signer consumes. Multihash-encoded values contribute their inner SHA-256
// digest; anything else is hashed once more.
func SigningDigest(hash []byte) []byte {
	if len(hash) == 34 && bytes.HasPrefix(hash, multihashSHA256Prefix) {
		return hash[2:]
	}
	digest := sha256.Sum256(hash)
	return digest[:]
}

// DecodeHash decodes a hex-encoded hash (with or without 0x prefix).
func DecodeHash(hash string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(hash, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid hash encoding: %w", err)
	}
	return raw, nil
}

// EncodeHash hex-encodes a hash for transport and storage.
func EncodeHash(hash []byte) string {
	return hex.EncodeToString(hash)
}
