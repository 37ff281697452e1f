// Package proxy wraps a signing driver with gateway persistence. Keys are
// served read-through from the store, transactions and configuration are
// written through on every driver interaction, so gateway state survives
// restarts and vendor outages.
package proxy

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/chainsafe/canton-wallet-gateway/pkg/signer"
	"github.com/chainsafe/canton-wallet-gateway/pkg/wallet"
	"github.com/chainsafe/canton-wallet-gateway/pkg/walletstore"
)

// Driver decorates an underlying signing driver with persistence.
type Driver struct {
	inner  signer.Driver
	store  walletstore.Store
	logger *zap.Logger
}

// New wraps driver so that its keys, transactions, and configuration are
// persisted through store.
func New(driver signer.Driver, store walletstore.Store, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{inner: driver, store: store, logger: logger}
}

func (d *Driver) ProviderID() wallet.ProviderID { return d.inner.ProviderID() }

func (d *Driver) PartyMode() signer.PartyMode { return d.inner.PartyMode() }

func (d *Driver) Controller(userID string) signer.Controller {
	return &controller{
		driver: d,
		userID: userID,
		inner:  d.inner.Controller(userID),
	}
}

type controller struct {
	driver *Driver
	userID string
	inner  signer.Controller
}

// SignTransaction always delegates to the driver; the outcome, success or
// vendor-reported state, is persisted before it is returned.
func (c *controller) SignTransaction(ctx context.Context, req signer.SignRequest) (*wallet.SigningTransaction, error) {
	tx, err := c.inner.SignTransaction(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := c.persistTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// GetTransaction serves from the store first. Only when the store has no
// record is the driver consulted; a hit there is persisted with provenance
// marking so later reads are local.
func (c *controller) GetTransaction(ctx context.Context, txID string) (*wallet.SigningTransaction, error) {
	tx, err := c.driver.store.GetSigningTransaction(ctx, c.userID, txID)
	if err == nil {
		return tx, nil
	}
	if !errors.Is(err, walletstore.ErrTransactionNotFound) {
		return nil, fmt.Errorf("failed to read signing transaction: %w", err)
	}

	tx, err = c.inner.GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.Metadata == nil {
		tx.Metadata = map[string]string{}
	}
	tx.Metadata["fetched_from_driver"] = "true"
	if err := c.persistTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// GetTransactions merges persisted records with the driver's current view.
// Driver results win on conflict and are written back; a driver failure
// degrades to the persisted records.
func (c *controller) GetTransactions(ctx context.Context, filter signer.TransactionFilter) ([]*wallet.SigningTransaction, error) {
	if filter.Empty() {
		return nil, signer.NewError(signer.CodeBadArguments, "at least one of txIds or publicKeys is required")
	}

	stored, err := c.driver.store.GetSigningTransactions(ctx, c.userID, filter.TxIDs, filter.PublicKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing transactions: %w", err)
	}

	merged := make(map[string]*wallet.SigningTransaction, len(stored))
	order := make([]string, 0, len(stored))
	for _, tx := range stored {
		merged[tx.TxID] = tx
		order = append(order, tx.TxID)
	}

	fresh, err := c.inner.GetTransactions(ctx, filter)
	if err != nil {
		c.driver.logger.Warn("Falling back to persisted signing transactions",
			zap.String("provider", string(c.driver.inner.ProviderID())),
			zap.String("user_id", c.userID),
			zap.Error(err))
	}
	for _, tx := range fresh {
		if _, ok := merged[tx.TxID]; !ok {
			order = append(order, tx.TxID)
		}
		merged[tx.TxID] = tx
		if err := c.persistTransaction(ctx, tx); err != nil {
			return nil, err
		}
	}

	out := make([]*wallet.SigningTransaction, 0, len(order))
	for _, id := range order {
		out = append(out, merged[id])
	}
	return out, nil
}

// GetKeys treats the store as authoritative once populated: the driver is only
// asked when no keys are cached, and its answer is persisted.
func (c *controller) GetKeys(ctx context.Context) ([]*wallet.SigningKey, error) {
	cached, err := c.driver.store.GetSigningKeys(ctx, c.userID, c.driver.inner.ProviderID())
	if err != nil {
		return nil, fmt.Errorf("failed to read signing keys: %w", err)
	}
	if len(cached) > 0 {
		return cached, nil
	}

	keys, err := c.inner.GetKeys(ctx)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}
	if err := c.driver.store.SetSigningKeys(ctx, c.userID, c.driver.inner.ProviderID(), keys); err != nil {
		return nil, fmt.Errorf("failed to persist signing keys: %w", err)
	}
	return keys, nil
}

func (c *controller) CreateKey(ctx context.Context, name string) (*wallet.SigningKey, error) {
	key, err := c.inner.CreateKey(ctx, name)
	if err != nil {
		return nil, err
	}

	cached, err := c.driver.store.GetSigningKeys(ctx, c.userID, c.driver.inner.ProviderID())
	if err != nil {
		return nil, fmt.Errorf("failed to read signing keys: %w", err)
	}
	cached = append(cached, key)
	if err := c.driver.store.SetSigningKeys(ctx, c.userID, c.driver.inner.ProviderID(), cached); err != nil {
		return nil, fmt.Errorf("failed to persist signing keys: %w", err)
	}
	return key, nil
}

// GetConfiguration overlays persisted settings on the driver's defaults.
// Values are masked the same way the drivers mask their own.
func (c *controller) GetConfiguration(ctx context.Context) (signer.Configuration, error) {
	cfg, err := c.inner.GetConfiguration(ctx)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = signer.Configuration{}
	}

	stored, err := c.driver.store.GetDriverConfig(ctx, c.userID, c.driver.inner.ProviderID())
	if err != nil && !errors.Is(err, walletstore.ErrConfigNotFound) {
		return nil, fmt.Errorf("failed to read driver configuration: %w", err)
	}
	for k, v := range signer.Redact(stored) {
		cfg[k] = v
	}
	return cfg, nil
}

func (c *controller) SetConfiguration(ctx context.Context, cfg signer.Configuration) error {
	if err := c.inner.SetConfiguration(ctx, cfg); err != nil {
		return err
	}
	if err := c.driver.store.SetDriverConfig(ctx, c.userID, c.driver.inner.ProviderID(), cfg); err != nil {
		return fmt.Errorf("failed to persist driver configuration: %w", err)
	}
	return nil
}

// SubscribeTransactions forwards the driver's stream, persisting every update
// as it passes through. Persistence failures are logged, not fatal; the
// stream keeps flowing.
func (c *controller) SubscribeTransactions(ctx context.Context) (<-chan *wallet.SigningTransaction, error) {
	upstream, err := c.inner.SubscribeTransactions(ctx)
	if err != nil {
		return nil, err
	}

	ch := make(chan *wallet.SigningTransaction, 16)
	go func() {
		defer close(ch)
		for tx := range upstream {
			if err := c.persistTransaction(ctx, tx); err != nil {
				c.driver.logger.Warn("Failed to persist streamed signing transaction",
					zap.String("provider", string(c.driver.inner.ProviderID())),
					zap.String("user_id", c.userID),
					zap.String("tx_id", tx.TxID),
					zap.Error(err))
			}
			select {
			case ch <- tx:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (c *controller) persistTransaction(ctx context.Context, tx *wallet.SigningTransaction) error {
	if err := c.driver.store.UpsertSigningTransaction(ctx, c.userID, c.driver.inner.ProviderID(), tx); err != nil {
		return fmt.Errorf("failed to persist signing transaction: %w", err)
	}
	return nil
}

var _ signer.Driver = (*Driver)(nil)
