package custodian

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chainsafe/canton-wallet-gateway/pkg/signer"
	"github.com/chainsafe/canton-wallet-gateway/pkg/wallet"
)

// signOrder is the vendor-neutral signing request passed to a contract.
type signOrder struct {
	TxHash        string
	KeyIdentifier string
	InternalTxID  string
	Note          string
}

// contract is the shared surface a vendor implementation fills in. Every
// operation translates the vendor's endpoint shapes into gateway types;
// transport-level failures are returned as plain errors and mapped to
// fetch_error by the driver.
type contract interface {
	listKeys(ctx context.Context, c *restClient) ([]*wallet.SigningKey, error)
	createKey(ctx context.Context, c *restClient, name string) (*wallet.SigningKey, error)
	submitSignature(ctx context.Context, c *restClient, order signOrder) (*wallet.SigningTransaction, error)
	getTransaction(ctx context.Context, c *restClient, txID string) (*wallet.SigningTransaction, error)
}

// Driver adapts one custody vendor to the signing driver contract.
type Driver struct {
	providerID wallet.ProviderID
	api        contract
	rest       *restClient
	logger     *zap.Logger

	mu          sync.Mutex
	controllers map[string]*controller
}

func newDriver(providerID wallet.ProviderID, api contract, cfg *Config, logger *zap.Logger) (*Driver, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		providerID:  providerID,
		api:         api,
		rest:        newRESTClient(cfg),
		logger:      logger,
		controllers: make(map[string]*controller),
	}, nil
}

func (d *Driver) ProviderID() wallet.ProviderID { return d.providerID }

// PartyMode is external for every custodian: the party holder owns the keys
// and the vendor only signs on request.
func (d *Driver) PartyMode() signer.PartyMode { return signer.PartyModeExternal }

func (d *Driver) Controller(userID string) signer.Controller {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c, ok := d.controllers[userID]; ok {
		return c
	}
	c := &controller{
		driver: d,
		userID: userID,
		rest:   d.rest,
		config: signer.Configuration{
			"base_url": d.rest.cfg.BaseURL,
			"api_key":  d.rest.cfg.APIKey,
		},
		txKeys: make(map[string]string),
	}
	d.controllers[userID] = c
	return c
}

type controller struct {
	driver *Driver
	userID string

	mu     sync.Mutex
	config signer.Configuration
	// rest starts as the driver-wide transport and is replaced when a
	// configuration write changes a transport setting.
	rest *restClient
	// txKeys remembers which public key each submitted transaction was
	// signed with, for public-key filtered lookups.
	txKeys map[string]string
}

func (c *controller) restClient() *restClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rest
}

func (c *controller) SignTransaction(ctx context.Context, req signer.SignRequest) (*wallet.SigningTransaction, error) {
	key, err := c.findKey(ctx, req.KeyIdentifier)
	if err != nil {
		return nil, err
	}

	tx, err := c.driver.api.submitSignature(ctx, c.restClient(), signOrder{
		TxHash:        req.TxHash,
		KeyIdentifier: key.ID,
		InternalTxID:  req.InternalTxID,
		Note:          req.Transaction,
	})
	if err != nil {
		return nil, signer.NewError(signer.CodeSigningError, err.Error())
	}
	tx.PublicKey = key.PublicKey

	c.mu.Lock()
	c.txKeys[tx.TxID] = key.PublicKey
	c.mu.Unlock()

	c.driver.logger.Info("Submitted signing request to custodian",
		zap.String("provider", string(c.driver.providerID)),
		zap.String("user_id", c.userID),
		zap.String("tx_id", tx.TxID),
		zap.String("status", string(tx.Status)))

	return tx, nil
}

func (c *controller) GetTransaction(ctx context.Context, txID string) (*wallet.SigningTransaction, error) {
	tx, err := c.driver.api.getTransaction(ctx, c.restClient(), txID)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, signer.NewError(signer.CodeTransactionNotFound, fmt.Sprintf("transaction %q not found", txID))
		}
		return nil, signer.NewError(signer.CodeFetchError, err.Error())
	}

	c.mu.Lock()
	if pub, ok := c.txKeys[tx.TxID]; ok && tx.PublicKey == "" {
		tx.PublicKey = pub
	}
	c.mu.Unlock()

	return tx, nil
}

func (c *controller) GetTransactions(ctx context.Context, filter signer.TransactionFilter) ([]*wallet.SigningTransaction, error) {
	if filter.Empty() {
		return nil, signer.NewError(signer.CodeBadArguments, "at least one of txIds or publicKeys is required")
	}

	ids := append([]string{}, filter.TxIDs...)
	if len(filter.PublicKeys) > 0 {
		wanted := make(map[string]bool, len(filter.PublicKeys))
		for _, pub := range filter.PublicKeys {
			wanted[pub] = true
		}
		c.mu.Lock()
		for txID, pub := range c.txKeys {
			if wanted[pub] {
				ids = append(ids, txID)
			}
		}
		c.mu.Unlock()
	}

	var out []*wallet.SigningTransaction
	for _, id := range ids {
		tx, err := c.GetTransaction(ctx, id)
		if err != nil {
			if signer.Is(err, signer.CodeTransactionNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

func (c *controller) GetKeys(ctx context.Context) ([]*wallet.SigningKey, error) {
	keys, err := c.driver.api.listKeys(ctx, c.restClient())
	if err != nil {
		return nil, signer.NewError(signer.CodeFetchError, err.Error())
	}
	return keys, nil
}

func (c *controller) CreateKey(ctx context.Context, name string) (*wallet.SigningKey, error) {
	key, err := c.driver.api.createKey(ctx, c.restClient(), name)
	if err != nil {
		var de *signer.Error
		if errors.As(err, &de) {
			return nil, de
		}
		return nil, signer.NewError(signer.CodeCreateKeyError, err.Error())
	}
	return key, nil
}

func (c *controller) GetConfiguration(_ context.Context) (signer.Configuration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return signer.Redact(c.config), nil
}

// SetConfiguration merges cfg into the controller's configuration and applies
// the transport settings (base_url, api_key, api_secret, request_timeout,
// poll_interval) to a rebuilt REST client, so later vendor calls use them.
// Invalid transport values reject the whole write.
func (c *controller) SetConfiguration(_ context.Context, cfg signer.Configuration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	merged := make(signer.Configuration, len(c.config)+len(cfg))
	for k, v := range c.config {
		merged[k] = v
	}
	for k, v := range cfg {
		merged[k] = v
	}

	rest, err := c.rebuildTransport(merged)
	if err != nil {
		return signer.NewError(signer.CodeBadArguments, err.Error())
	}
	c.config = merged
	c.rest = rest
	return nil
}

func (c *controller) rebuildTransport(merged signer.Configuration) (*restClient, error) {
	next := *c.rest.cfg
	if v, ok := merged["base_url"]; ok {
		next.BaseURL = v
	}
	if v, ok := merged["api_key"]; ok {
		next.APIKey = v
	}
	if v, ok := merged["api_secret"]; ok {
		next.APISecret = v
	}
	if v, ok := merged["request_timeout"]; ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid request_timeout: %w", err)
		}
		next.RequestTimeout = d
	}
	if v, ok := merged["poll_interval"]; ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid poll_interval: %w", err)
		}
		next.PollInterval = d
	}
	if err := next.validate(); err != nil {
		return nil, err
	}
	return newRESTClient(&next), nil
}

// SubscribeTransactions polls the vendor for status changes of transactions
// this controller has submitted and emits every transition until ctx ends.
func (c *controller) SubscribeTransactions(ctx context.Context) (<-chan *wallet.SigningTransaction, error) {
	ch := make(chan *wallet.SigningTransaction, 16)

	go func() {
		defer close(ch)

		ticker := time.NewTicker(c.restClient().cfg.PollInterval)
		defer ticker.Stop()

		seen := make(map[string]wallet.TxStatus)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.mu.Lock()
				ids := make([]string, 0, len(c.txKeys))
				for id := range c.txKeys {
					ids = append(ids, id)
				}
				c.mu.Unlock()

				for _, id := range ids {
					tx, err := c.GetTransaction(ctx, id)
					if err != nil {
						continue
					}
					if seen[id] == tx.Status {
						continue
					}
					seen[id] = tx.Status
					select {
					case ch <- tx:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return ch, nil
}

// findKey resolves a key identifier (vendor key id or public key) against the
// vendor's key list.
func (c *controller) findKey(ctx context.Context, identifier string) (*wallet.SigningKey, error) {
	keys, err := c.driver.api.listKeys(ctx, c.restClient())
	if err != nil {
		return nil, signer.NewError(signer.CodeFetchError, err.Error())
	}
	for _, key := range keys {
		if key.ID == identifier || key.PublicKey == identifier {
			return key, nil
		}
	}
	return nil, signer.NewError(signer.CodeKeyNotFound, fmt.Sprintf("no key matching %q", identifier))
}
