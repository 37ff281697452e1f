// Package internaldriver implements the signing driver for locally generated
// keys. Key material is minted and held by the gateway itself; persistence of
// keys and transactions happens through the signer proxy.
package internaldriver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chainsafe/canton-wallet-gateway/pkg/keys"
	"github.com/chainsafe/canton-wallet-gateway/pkg/signer"
	"github.com/chainsafe/canton-wallet-gateway/pkg/wallet"
)

// Driver holds per-user key material and signing transaction state in memory.
type Driver struct {
	cipher keys.KeyCipher
	logger *zap.Logger

	mu          sync.Mutex
	controllers map[string]*controller
}

// New creates the internal driver. cipher is optional; when set, private keys
// reported through GetKeys are encrypted at rest instead of hex-encoded.
func New(cipher keys.KeyCipher, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		cipher:      cipher,
		logger:      logger,
		controllers: make(map[string]*controller),
	}
}

func (d *Driver) ProviderID() wallet.ProviderID { return wallet.ProviderInternal }

// ImportUserKey registers an existing keypair, e.g. one derived from the
// gateway seed, with userID's controller.
func (d *Driver) ImportUserKey(userID, name string, pair *keys.KeyPair) (*wallet.SigningKey, error) {
	c, ok := d.Controller(userID).(*controller)
	if !ok {
		return nil, signer.NewError(signer.CodeCreateKeyError, "unexpected controller type")
	}
	return c.addKeyPair(name, pair)
}

func (d *Driver) PartyMode() signer.PartyMode { return signer.PartyModeInternal }

func (d *Driver) Controller(userID string) signer.Controller {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c, ok := d.controllers[userID]; ok {
		return c
	}
	c := &controller{
		driver: d,
		userID: userID,
		txs:    make(map[string]*wallet.SigningTransaction),
		config: signer.Configuration{},
	}
	d.controllers[userID] = c
	return c
}

type heldKey struct {
	key  *wallet.SigningKey
	pair *keys.KeyPair
}

type controller struct {
	driver *Driver
	userID string

	mu     sync.Mutex
	keys   []*heldKey
	txs    map[string]*wallet.SigningTransaction
	config signer.Configuration
	subs   []chan *wallet.SigningTransaction
}

func (c *controller) SignTransaction(ctx context.Context, req signer.SignRequest) (*wallet.SigningTransaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	held := c.lookupKey(req.KeyIdentifier)
	if held == nil {
		return nil, signer.NewError(signer.CodeKeyNotFound, fmt.Sprintf("no key matching %q", req.KeyIdentifier))
	}

	hashBytes, err := keys.DecodeHash(req.TxHash)
	if err != nil {
		return nil, signer.NewError(signer.CodeBadArguments, err.Error())
	}

	sig, err := held.pair.SignHash(keys.SigningDigest(hashBytes))
	if err != nil {
		return nil, signer.NewError(signer.CodeSigningError, err.Error())
	}

	txID := req.InternalTxID
	if txID == "" {
		txID = uuid.NewString()
	}

	now := time.Now().UTC()
	tx := &wallet.SigningTransaction{
		TxID:      txID,
		Hash:      req.TxHash,
		Signature: keys.EncodeHash(sig),
		PublicKey: held.key.PublicKey,
		Status:    wallet.TxStatusSigned,
		Metadata:  map[string]string{"provider": string(wallet.ProviderInternal)},
		CreatedAt: now,
		UpdatedAt: now,
		SignedAt:  &now,
	}
	c.txs[txID] = tx
	c.notify(tx)

	c.driver.logger.Debug("Signed transaction with internal key",
		zap.String("user_id", c.userID),
		zap.String("tx_id", txID),
		zap.String("public_key", held.key.PublicKey))

	return cloneTx(tx), nil
}

func (c *controller) GetTransaction(_ context.Context, txID string) (*wallet.SigningTransaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, ok := c.txs[txID]
	if !ok {
		return nil, signer.NewError(signer.CodeTransactionNotFound, fmt.Sprintf("transaction %q not found", txID))
	}
	return cloneTx(tx), nil
}

func (c *controller) GetTransactions(_ context.Context, filter signer.TransactionFilter) ([]*wallet.SigningTransaction, error) {
	if filter.Empty() {
		return nil, signer.NewError(signer.CodeBadArguments, "at least one of txIds or publicKeys is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var out []*wallet.SigningTransaction
	for _, id := range filter.TxIDs {
		if tx, ok := c.txs[id]; ok {
			out = append(out, cloneTx(tx))
		}
	}
	for _, pub := range filter.PublicKeys {
		for _, tx := range c.txs {
			if tx.PublicKey == pub {
				out = append(out, cloneTx(tx))
			}
		}
	}
	return out, nil
}

func (c *controller) GetKeys(_ context.Context) ([]*wallet.SigningKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*wallet.SigningKey, len(c.keys))
	for i, held := range c.keys {
		k := *held.key
		out[i] = &k
	}
	return out, nil
}

func (c *controller) CreateKey(_ context.Context, name string) (*wallet.SigningKey, error) {
	pair, err := keys.GenerateKeyPair()
	if err != nil {
		return nil, signer.NewError(signer.CodeCreateKeyError, err.Error())
	}
	return c.addKeyPair(name, pair)
}

func (c *controller) addKeyPair(name string, pair *keys.KeyPair) (*wallet.SigningKey, error) {
	privateKey := keys.EncodeHash(pair.PrivateKey)
	if c.driver.cipher != nil {
		encrypted, err := c.driver.cipher.Encrypt(pair.PrivateKey)
		if err != nil {
			return nil, signer.NewError(signer.CodeCreateKeyError, err.Error())
		}
		privateKey = encrypted
	}

	now := time.Now().UTC()
	key := &wallet.SigningKey{
		ID:         uuid.NewString(),
		Name:       name,
		PublicKey:  pair.PublicKeyHex(),
		PrivateKey: privateKey,
		Metadata:   map[string]string{"fingerprint": pair.Fingerprint()},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	c.mu.Lock()
	c.keys = append(c.keys, &heldKey{key: key, pair: pair})
	c.mu.Unlock()

	result := *key
	return &result, nil
}

// ImportKeyPair registers an existing keypair with this controller.
func (c *controller) ImportKeyPair(name string, pair *keys.KeyPair) (*wallet.SigningKey, error) {
	return c.addKeyPair(name, pair)
}

func (c *controller) GetConfiguration(_ context.Context) (signer.Configuration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return signer.Redact(c.config), nil
}

func (c *controller) SetConfiguration(_ context.Context, cfg signer.Configuration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config = cfg
	return nil
}

func (c *controller) SubscribeTransactions(ctx context.Context) (<-chan *wallet.SigningTransaction, error) {
	ch := make(chan *wallet.SigningTransaction, 16)

	c.mu.Lock()
	c.subs = append(c.subs, ch)
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		for i, sub := range c.subs {
			if sub == ch {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				break
			}
		}
		c.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// lookupKey matches a key by public key (any supported encoding) or key id.
// Caller holds the lock.
func (c *controller) lookupKey(identifier string) *heldKey {
	normalized := ""
	if raw, err := keys.DecodePublicKey(identifier); err == nil {
		normalized = keys.EncodeHash(raw)
	}
	for _, held := range c.keys {
		if held.key.ID == identifier || held.key.PublicKey == identifier || held.key.PublicKey == normalized {
			return held
		}
	}
	return nil
}

// notify fans a transaction update out to subscribers. Caller holds the lock.
func (c *controller) notify(tx *wallet.SigningTransaction) {
	for _, sub := range c.subs {
		select {
		case sub <- cloneTx(tx):
		default:
		}
	}
}

func cloneTx(tx *wallet.SigningTransaction) *wallet.SigningTransaction {
	out := *tx
	if tx.SignedAt != nil {
		signedAt := *tx.SignedAt
		out.SignedAt = &signedAt
	}
	return &out
}
