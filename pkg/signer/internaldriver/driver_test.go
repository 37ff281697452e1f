package internaldriver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainsafe/canton-wallet-gateway/pkg/keys"
	"github.com/chainsafe/canton-wallet-gateway/pkg/signer"
	"github.com/chainsafe/canton-wallet-gateway/pkg/wallet"
)

func TestCreateKeyAndSign(t *testing.T) {
	d := New(nil, nil)
	c := d.Controller("user-1")

	key, err := c.CreateKey(context.Background(), "trading")
	require.NoError(t, err)
	assert.Equal(t, "trading", key.Name)
	assert.NotEmpty(t, key.PublicKey)
	assert.NotEmpty(t, key.Metadata["fingerprint"])

	hash := keys.TransactionHash([]byte("prepared transaction"))
	tx, err := c.SignTransaction(context.Background(), signer.SignRequest{
		TxHash:        keys.EncodeHash(hash),
		KeyIdentifier: key.PublicKey,
	})
	require.NoError(t, err)
	assert.Equal(t, wallet.TxStatusSigned, tx.Status)
	assert.Equal(t, key.PublicKey, tx.PublicKey)
	assert.NotEmpty(t, tx.Signature)
	require.NotNil(t, tx.SignedAt)

	// The signature verifies against the key that produced it.
	pub, err := keys.DecodePublicKey(key.PublicKey)
	require.NoError(t, err)
	sig, err := keys.DecodeHash(tx.Signature)
	require.NoError(t, err)
	pair := &keys.KeyPair{PublicKey: pub}
	assert.True(t, pair.VerifyHash(keys.SigningDigest(hash), sig))
}

func TestSignTransaction_UnknownKey(t *testing.T) {
	d := New(nil, nil)
	c := d.Controller("user-1")

	_, err := c.SignTransaction(context.Background(), signer.SignRequest{
		TxHash:        keys.EncodeHash(keys.TransactionHash([]byte("tx"))),
		KeyIdentifier: "missing",
	})
	require.Error(t, err)
	assert.True(t, signer.Is(err, signer.CodeKeyNotFound))
}

func TestSignTransaction_BadHashEncoding(t *testing.T) {
	d := New(nil, nil)
	c := d.Controller("user-1")
	key, err := c.CreateKey(context.Background(), "k")
	require.NoError(t, err)

	_, err = c.SignTransaction(context.Background(), signer.SignRequest{
		TxHash:        "not-hex",
		KeyIdentifier: key.PublicKey,
	})
	require.Error(t, err)
	assert.True(t, signer.Is(err, signer.CodeBadArguments))
}

func TestSignTransaction_CarriesInternalTxID(t *testing.T) {
	d := New(nil, nil)
	c := d.Controller("user-1")
	key, err := c.CreateKey(context.Background(), "k")
	require.NoError(t, err)

	tx, err := c.SignTransaction(context.Background(), signer.SignRequest{
		TxHash:        keys.EncodeHash(keys.TransactionHash([]byte("tx"))),
		KeyIdentifier: key.PublicKey,
		InternalTxID:  "chosen-id",
	})
	require.NoError(t, err)
	assert.Equal(t, "chosen-id", tx.TxID)

	got, err := c.GetTransaction(context.Background(), "chosen-id")
	require.NoError(t, err)
	assert.Equal(t, tx.Signature, got.Signature)
}

func TestGetTransaction_NotFound(t *testing.T) {
	d := New(nil, nil)
	_, err := d.Controller("user-1").GetTransaction(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, signer.Is(err, signer.CodeTransactionNotFound))
}

func TestGetTransactions_FilterRequired(t *testing.T) {
	d := New(nil, nil)
	_, err := d.Controller("user-1").GetTransactions(context.Background(), signer.TransactionFilter{})
	require.Error(t, err)
	assert.True(t, signer.Is(err, signer.CodeBadArguments))
}

func TestGetTransactions_ByPublicKey(t *testing.T) {
	d := New(nil, nil)
	c := d.Controller("user-1")
	key, err := c.CreateKey(context.Background(), "k")
	require.NoError(t, err)

	_, err = c.SignTransaction(context.Background(), signer.SignRequest{
		TxHash:        keys.EncodeHash(keys.TransactionHash([]byte("tx"))),
		KeyIdentifier: key.PublicKey,
	})
	require.NoError(t, err)

	txs, err := c.GetTransactions(context.Background(), signer.TransactionFilter{PublicKeys: []string{key.PublicKey}})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, key.PublicKey, txs[0].PublicKey)
}

func TestControllersAreIsolatedPerUser(t *testing.T) {
	d := New(nil, nil)
	keyA, err := d.Controller("user-a").CreateKey(context.Background(), "a")
	require.NoError(t, err)

	keysB, err := d.Controller("user-b").GetKeys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keysB)

	keysA, err := d.Controller("user-a").GetKeys(context.Background())
	require.NoError(t, err)
	require.Len(t, keysA, 1)
	assert.Equal(t, keyA.ID, keysA[0].ID)
}

func TestCipherEncryptsStoredPrivateKeys(t *testing.T) {
	masterKey, err := keys.GenerateSeed()
	require.NoError(t, err)
	cipher, err := keys.NewAESKeyCipher(masterKey)
	require.NoError(t, err)

	d := New(cipher, nil)
	c := d.Controller("user-1")
	key, err := c.CreateKey(context.Background(), "k")
	require.NoError(t, err)

	// Encrypted material must decrypt back to a usable private key.
	decrypted, err := cipher.Decrypt(key.PrivateKey)
	require.NoError(t, err)
	restored, err := keys.KeyPairFromPrivateKey(decrypted)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey, restored.PublicKeyHex())
}

func TestImportUserKey(t *testing.T) {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}
	pair, err := keys.DeriveKeyPair("user-1", seed)
	require.NoError(t, err)

	d := New(nil, nil)
	key, err := d.ImportUserKey("user-1", "gateway", pair)
	require.NoError(t, err)
	assert.Equal(t, pair.PublicKeyHex(), key.PublicKey)
	assert.Equal(t, pair.Fingerprint(), key.Metadata["fingerprint"])

	listed, err := d.Controller("user-1").GetKeys(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)
}

func TestSubscribeTransactions(t *testing.T) {
	d := New(nil, nil)
	c := d.Controller("user-1")
	key, err := c.CreateKey(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := c.SubscribeTransactions(ctx)
	require.NoError(t, err)

	tx, err := c.SignTransaction(context.Background(), signer.SignRequest{
		TxHash:        keys.EncodeHash(keys.TransactionHash([]byte("tx"))),
		KeyIdentifier: key.PublicKey,
	})
	require.NoError(t, err)

	got := <-ch
	assert.Equal(t, tx.TxID, got.TxID)
	assert.Equal(t, wallet.TxStatusSigned, got.Status)

	cancel()
	_, open := <-ch
	assert.False(t, open, "subscription channel must close on cancellation")
}
