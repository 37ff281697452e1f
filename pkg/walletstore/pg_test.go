package walletstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/chainsafe/canton-wallet-gateway/pkg/migrations/gatewaydb"
	"github.com/chainsafe/canton-wallet-gateway/pkg/pgutil"
	"github.com/chainsafe/canton-wallet-gateway/pkg/wallet"
	"github.com/chainsafe/canton-wallet-gateway/pkg/walletstore"
)

const (
	testUserID    = "store-user"
	testNetworkID = "sync::network"
)

func setupStore(t *testing.T) (walletstore.Store, *bun.DB) {
	t.Helper()
	db, cleanup := pgutil.SetupTestDB(t)
	t.Cleanup(cleanup)
	require.NoError(t, gatewaydb.Migrate(context.Background(), db))
	return walletstore.NewStore(db), db
}

func testWallet(partyID string) *wallet.Wallet {
	return &wallet.Wallet{
		PartyID:           partyID,
		UserID:            testUserID,
		Hint:              "alice",
		Namespace:         "1220abcd",
		PublicKey:         "02abcd",
		NetworkID:         testNetworkID,
		SigningProviderID: wallet.ProviderInternal,
		Status:            wallet.StatusActive,
	}
}

func TestUpsertWallet_Idempotent(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	w := testWallet("alice::1220abcd")
	require.NoError(t, store.UpsertWallet(ctx, w))
	require.NoError(t, store.UpsertWallet(ctx, w))

	wallets, err := store.GetWallets(ctx, testUserID)
	require.NoError(t, err)
	require.Len(t, wallets, 1)
	assert.Equal(t, "alice::1220abcd", wallets[0].PartyID)
	assert.Equal(t, wallet.ProviderInternal, wallets[0].SigningProviderID)
}

func TestUpsertWallet_UpdatesMutableFields(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	w := testWallet("alice::1220abcd")
	require.NoError(t, store.UpsertWallet(ctx, w))

	w.Disabled = true
	w.Reason = "no signing provider matched"
	w.SigningProviderID = wallet.ProviderParticipant
	require.NoError(t, store.UpsertWallet(ctx, w))

	got, err := store.GetWallet(ctx, testUserID, "alice::1220abcd", testNetworkID)
	require.NoError(t, err)
	assert.True(t, got.Disabled)
	assert.Equal(t, "no signing provider matched", got.Reason)
	assert.Equal(t, wallet.ProviderParticipant, got.SigningProviderID)
}

func TestGetWallet_NotFound(t *testing.T) {
	store, _ := setupStore(t)

	_, err := store.GetWallet(context.Background(), testUserID, "missing::1220", testNetworkID)
	require.ErrorIs(t, err, walletstore.ErrWalletNotFound)
}

func TestGetWallets_Filters(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	w1 := testWallet("alice::1220abcd")
	w2 := testWallet("bob::1220ffee")
	w2.SigningProviderID = wallet.ProviderFireblocks
	require.NoError(t, store.UpsertWallet(ctx, w1))
	require.NoError(t, store.UpsertWallet(ctx, w2))

	byProvider, err := store.GetWallets(ctx, testUserID, walletstore.WithProviderID(wallet.ProviderFireblocks))
	require.NoError(t, err)
	require.Len(t, byProvider, 1)
	assert.Equal(t, "bob::1220ffee", byProvider[0].PartyID)

	byParty, err := store.GetWallets(ctx, testUserID, walletstore.WithPartyID("alice::1220abcd"))
	require.NoError(t, err)
	require.Len(t, byParty, 1)

	otherNetwork, err := store.GetWallets(ctx, testUserID, walletstore.WithNetworkID("other::network"))
	require.NoError(t, err)
	assert.Empty(t, otherNetwork)
}

func TestSetPrimaryWallet_SinglePrimaryInvariant(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertWallet(ctx, testWallet("alice::1220abcd")))
	require.NoError(t, store.UpsertWallet(ctx, testWallet("bob::1220ffee")))

	require.NoError(t, store.SetPrimaryWallet(ctx, testUserID, "alice::1220abcd", testNetworkID))
	require.NoError(t, store.SetPrimaryWallet(ctx, testUserID, "bob::1220ffee", testNetworkID))

	primaries, err := store.GetWallets(ctx, testUserID, walletstore.WithPrimary(true))
	require.NoError(t, err)
	require.Len(t, primaries, 1, "at most one primary wallet per user and network")
	assert.Equal(t, "bob::1220ffee", primaries[0].PartyID)

	has, err := store.HasPrimaryWallet(ctx, testUserID, testNetworkID)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestSetPrimaryWallet_MissingWallet(t *testing.T) {
	store, _ := setupStore(t)

	err := store.SetPrimaryWallet(context.Background(), testUserID, "missing::1220", testNetworkID)
	require.ErrorIs(t, err, walletstore.ErrWalletNotFound)
}

func TestRemoveWallet(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertWallet(ctx, testWallet("alice::1220abcd")))
	require.NoError(t, store.RemoveWallet(ctx, testUserID, "alice::1220abcd", testNetworkID))

	_, err := store.GetWallet(ctx, testUserID, "alice::1220abcd", testNetworkID)
	require.ErrorIs(t, err, walletstore.ErrWalletNotFound)
}

func TestSigningKeys_ReplaceSemantics(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	first := []*wallet.SigningKey{
		{ID: "k1", Name: "one", PublicKey: "02aa", Metadata: map[string]string{"fingerprint": "1220aa"}},
		{ID: "k2", Name: "two", PublicKey: "02bb", PrivateKey: "encrypted"},
	}
	require.NoError(t, store.SetSigningKeys(ctx, testUserID, wallet.ProviderInternal, first))

	keys, err := store.GetSigningKeys(ctx, testUserID, wallet.ProviderInternal)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "1220aa", keys[0].Metadata["fingerprint"])
	assert.Equal(t, "encrypted", keys[1].PrivateKey)

	// A later snapshot replaces the old one wholesale.
	require.NoError(t, store.SetSigningKeys(ctx, testUserID, wallet.ProviderInternal, []*wallet.SigningKey{
		{ID: "k3", Name: "three", PublicKey: "02cc"},
	}))
	keys, err = store.GetSigningKeys(ctx, testUserID, wallet.ProviderInternal)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "k3", keys[0].ID)

	// Scoped per provider.
	other, err := store.GetSigningKeys(ctx, testUserID, wallet.ProviderFireblocks)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestUpsertSigningTransaction_SignedAtWriteOnce(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	tx := &wallet.SigningTransaction{
		TxID:      "tx-1",
		Hash:      "1220deadbeef",
		PublicKey: "02aa",
		Status:    wallet.TxStatusPending,
	}
	require.NoError(t, store.UpsertSigningTransaction(ctx, testUserID, wallet.ProviderFireblocks, tx))

	got, err := store.GetSigningTransaction(ctx, testUserID, "tx-1")
	require.NoError(t, err)
	assert.Nil(t, got.SignedAt)

	// First transition to signed stamps signed_at.
	tx.Status = wallet.TxStatusSigned
	tx.Signature = "aabbcc"
	require.NoError(t, store.UpsertSigningTransaction(ctx, testUserID, wallet.ProviderFireblocks, tx))

	got, err = store.GetSigningTransaction(ctx, testUserID, "tx-1")
	require.NoError(t, err)
	require.NotNil(t, got.SignedAt)
	firstSignedAt := *got.SignedAt

	// Later writes must not move the signing timestamp.
	time.Sleep(10 * time.Millisecond)
	tx.Metadata = map[string]string{"fetched_from_driver": "true"}
	require.NoError(t, store.UpsertSigningTransaction(ctx, testUserID, wallet.ProviderFireblocks, tx))

	got, err = store.GetSigningTransaction(ctx, testUserID, "tx-1")
	require.NoError(t, err)
	require.NotNil(t, got.SignedAt)
	assert.True(t, got.SignedAt.Equal(firstSignedAt), "signed_at must be written at most once")
	assert.Equal(t, "true", got.Metadata["fetched_from_driver"])
}

func TestGetSigningTransactions_Filters(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	txs := []*wallet.SigningTransaction{
		{TxID: "tx-1", Hash: "1220aa", PublicKey: "02aa", Status: wallet.TxStatusSigned},
		{TxID: "tx-2", Hash: "1220bb", PublicKey: "02bb", Status: wallet.TxStatusPending},
	}
	for _, tx := range txs {
		require.NoError(t, store.UpsertSigningTransaction(ctx, testUserID, wallet.ProviderInternal, tx))
	}

	byID, err := store.GetSigningTransactions(ctx, testUserID, []string{"tx-1"}, nil)
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "tx-1", byID[0].TxID)

	byKey, err := store.GetSigningTransactions(ctx, testUserID, nil, []string{"02bb"})
	require.NoError(t, err)
	require.Len(t, byKey, 1)
	assert.Equal(t, "tx-2", byKey[0].TxID)
}

func TestGetSigningTransaction_NotFound(t *testing.T) {
	store, _ := setupStore(t)

	_, err := store.GetSigningTransaction(context.Background(), testUserID, "missing")
	require.ErrorIs(t, err, walletstore.ErrTransactionNotFound)
}

func TestDriverConfig_StoredVerbatim(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	_, err := store.GetDriverConfig(ctx, testUserID, wallet.ProviderDFNS)
	require.ErrorIs(t, err, walletstore.ErrConfigNotFound)

	cfg := map[string]string{"api_key": "super-secret", "base_url": "https://vendor.example"}
	require.NoError(t, store.SetDriverConfig(ctx, testUserID, wallet.ProviderDFNS, cfg))

	got, err := store.GetDriverConfig(ctx, testUserID, wallet.ProviderDFNS)
	require.NoError(t, err)
	// Secrets live unmasked in the store; masking is the signer layer's job.
	assert.Equal(t, "super-secret", got["api_key"])

	require.NoError(t, store.SetDriverConfig(ctx, testUserID, wallet.ProviderDFNS, map[string]string{"api_key": "rotated"}))
	got, err = store.GetDriverConfig(ctx, testUserID, wallet.ProviderDFNS)
	require.NoError(t, err)
	assert.Equal(t, "rotated", got["api_key"])
}
