package custodian

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/chainsafe/canton-wallet-gateway/pkg/signer"
	"github.com/chainsafe/canton-wallet-gateway/pkg/wallet"
)

// NewFireblocks creates the Fireblocks-backed signing driver.
func NewFireblocks(cfg *Config, logger *zap.Logger) (*Driver, error) {
	return newDriver(wallet.ProviderFireblocks, fireblocksContract{}, cfg, logger)
}

// fireblocksContract maps the Fireblocks vault/transaction endpoints onto the
// shared custodian contract. Raw-message signing goes through the
// transactions API and completes asynchronously.
type fireblocksContract struct{}

type fireblocksKey struct {
	KeyID               string `json:"keyId"`
	PublicKey           string `json:"publicKey"`
	DerivationAlgorithm string `json:"algorithm"`
}

type fireblocksKeysResponse struct {
	Keys []fireblocksKey `json:"keys"`
}

type fireblocksTxRequest struct {
	Operation       string        `json:"operation"`
	Note            string        `json:"note,omitempty"`
	ExternalID      string        `json:"externalTxId,omitempty"`
	ExtraParameters fireblocksRaw `json:"extraParameters"`
}

type fireblocksRaw struct {
	RawMessageData fireblocksRawData `json:"rawMessageData"`
}

type fireblocksRawData struct {
	Messages []fireblocksMessage `json:"messages"`
}

type fireblocksMessage struct {
	Content string `json:"content"`
	KeyID   string `json:"keyId"`
}

type fireblocksTxResponse struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	CreatedAt      int64  `json:"createdAt"`
	LastUpdated    int64  `json:"lastUpdated"`
	SignedMessages []struct {
		Content   string `json:"content"`
		Signature struct {
			FullSig string `json:"fullSig"`
		} `json:"signature"`
	} `json:"signedMessages"`
}

func (fireblocksContract) listKeys(ctx context.Context, c *restClient) ([]*wallet.SigningKey, error) {
	var resp fireblocksKeysResponse
	if err := c.get(ctx, "/v1/vault/keys", &resp); err != nil {
		return nil, err
	}

	out := make([]*wallet.SigningKey, len(resp.Keys))
	for i, k := range resp.Keys {
		out[i] = &wallet.SigningKey{
			ID:        k.KeyID,
			Name:      k.KeyID,
			PublicKey: k.PublicKey,
			Metadata:  map[string]string{"algorithm": k.DerivationAlgorithm},
		}
	}
	return out, nil
}

func (fireblocksContract) createKey(_ context.Context, _ *restClient, _ string) (*wallet.SigningKey, error) {
	// Fireblocks vault keys are provisioned through the workspace console,
	// not the API.
	return nil, signer.NewError(signer.CodeCreateKeyError, "fireblocks does not support self-service key creation")
}

func (fireblocksContract) submitSignature(ctx context.Context, c *restClient, order signOrder) (*wallet.SigningTransaction, error) {
	req := fireblocksTxRequest{
		Operation:  "RAW",
		Note:       order.Note,
		ExternalID: order.InternalTxID,
		ExtraParameters: fireblocksRaw{
			RawMessageData: fireblocksRawData{
				Messages: []fireblocksMessage{{Content: order.TxHash, KeyID: order.KeyIdentifier}},
			},
		},
	}

	var resp fireblocksTxResponse
	if err := c.post(ctx, "/v1/transactions", req, &resp); err != nil {
		return nil, err
	}

	return fireblocksTxToSigningTransaction(&resp, order.TxHash), nil
}

func (fireblocksContract) getTransaction(ctx context.Context, c *restClient, txID string) (*wallet.SigningTransaction, error) {
	var resp fireblocksTxResponse
	if err := c.get(ctx, "/v1/transactions/"+txID, &resp); err != nil {
		return nil, err
	}
	return fireblocksTxToSigningTransaction(&resp, ""), nil
}

func fireblocksTxToSigningTransaction(resp *fireblocksTxResponse, hash string) *wallet.SigningTransaction {
	tx := &wallet.SigningTransaction{
		TxID:      resp.ID,
		Hash:      hash,
		Status:    fireblocksStatus(resp.Status),
		Metadata:  map[string]string{"provider": string(wallet.ProviderFireblocks), "vendor_status": resp.Status},
		CreatedAt: time.UnixMilli(resp.CreatedAt).UTC(),
		UpdatedAt: time.UnixMilli(resp.LastUpdated).UTC(),
	}

	if len(resp.SignedMessages) > 0 {
		tx.Signature = resp.SignedMessages[0].Signature.FullSig
		if tx.Hash == "" {
			tx.Hash = resp.SignedMessages[0].Content
		}
	}
	if tx.Status == wallet.TxStatusSigned {
		signedAt := tx.UpdatedAt
		tx.SignedAt = &signedAt
	}
	return tx
}

func fireblocksStatus(vendor string) wallet.TxStatus {
	switch vendor {
	case "COMPLETED":
		return wallet.TxStatusSigned
	case "CANCELLED", "REJECTED", "BLOCKED":
		return wallet.TxStatusRejected
	case "FAILED":
		return wallet.TxStatusFailed
	default:
		// SUBMITTED, QUEUED, PENDING_SIGNATURE, BROADCASTING, ...
		return wallet.TxStatusPending
	}
}

var _ contract = fireblocksContract{}
