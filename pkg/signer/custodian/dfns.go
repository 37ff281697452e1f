package custodian

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/chainsafe/canton-wallet-gateway/pkg/signer"
	"github.com/chainsafe/canton-wallet-gateway/pkg/wallet"
)

// NewDFNS creates the DFNS-backed signing driver.
func NewDFNS(cfg *Config, logger *zap.Logger) (*Driver, error) {
	return newDriver(wallet.ProviderDFNS, dfnsContract{}, cfg, logger)
}

// dfnsContract maps the DFNS keys/signature-request endpoints onto the shared
// custodian contract. Unlike Fireblocks, DFNS supports creating keys over the
// API.
type dfnsContract struct{}

type dfnsKey struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Scheme    string `json:"scheme"`
	Curve     string `json:"curve"`
	PublicKey string `json:"publicKey"`
	Status    string `json:"status"`
}

type dfnsKeysResponse struct {
	Items []dfnsKey `json:"items"`
}

type dfnsCreateKeyRequest struct {
	Name   string `json:"name,omitempty"`
	Scheme string `json:"scheme"`
	Curve  string `json:"curve"`
}

type dfnsSignatureRequest struct {
	Kind       string `json:"kind"`
	Hash       string `json:"hash"`
	ExternalID string `json:"externalId,omitempty"`
}

type dfnsSignatureResponse struct {
	ID          string `json:"id"`
	KeyID       string `json:"keyId"`
	Status      string `json:"status"`
	DateCreated string `json:"dateRequested"`
	DateSigned  string `json:"dateSigned"`
	Signature   struct {
		R       string `json:"r"`
		S       string `json:"s"`
		Encoded string `json:"encoded"`
	} `json:"signature"`
	Requester struct {
		Hash string `json:"hash"`
	} `json:"requestBody"`
}

func (dfnsContract) listKeys(ctx context.Context, c *restClient) ([]*wallet.SigningKey, error) {
	var resp dfnsKeysResponse
	if err := c.get(ctx, "/keys", &resp); err != nil {
		return nil, err
	}

	out := make([]*wallet.SigningKey, len(resp.Items))
	for i, k := range resp.Items {
		out[i] = dfnsKeyToSigningKey(&k)
	}
	return out, nil
}

func (dfnsContract) createKey(ctx context.Context, c *restClient, name string) (*wallet.SigningKey, error) {
	req := dfnsCreateKeyRequest{
		Name:   name,
		Scheme: "ECDSA",
		Curve:  "secp256k1",
	}

	var resp dfnsKey
	if err := c.post(ctx, "/keys", req, &resp); err != nil {
		return nil, signer.NewError(signer.CodeCreateKeyError, err.Error())
	}
	return dfnsKeyToSigningKey(&resp), nil
}

func (dfnsContract) submitSignature(ctx context.Context, c *restClient, order signOrder) (*wallet.SigningTransaction, error) {
	req := dfnsSignatureRequest{
		Kind:       "Hash",
		Hash:       order.TxHash,
		ExternalID: order.InternalTxID,
	}

	var resp dfnsSignatureResponse
	if err := c.post(ctx, "/keys/"+order.KeyIdentifier+"/signatures", req, &resp); err != nil {
		return nil, err
	}
	return dfnsSignatureToTransaction(&resp, order.TxHash), nil
}

func (dfnsContract) getTransaction(ctx context.Context, c *restClient, txID string) (*wallet.SigningTransaction, error) {
	var resp dfnsSignatureResponse
	if err := c.get(ctx, "/signatures/"+txID, &resp); err != nil {
		return nil, err
	}
	return dfnsSignatureToTransaction(&resp, resp.Requester.Hash), nil
}

func dfnsKeyToSigningKey(k *dfnsKey) *wallet.SigningKey {
	return &wallet.SigningKey{
		ID:        k.ID,
		Name:      k.Name,
		PublicKey: k.PublicKey,
		Metadata: map[string]string{
			"scheme": k.Scheme,
			"curve":  k.Curve,
			"status": k.Status,
		},
	}
}

func dfnsSignatureToTransaction(resp *dfnsSignatureResponse, hash string) *wallet.SigningTransaction {
	tx := &wallet.SigningTransaction{
		TxID:      resp.ID,
		Hash:      hash,
		Signature: resp.Signature.Encoded,
		Status:    dfnsStatus(resp.Status),
		Metadata:  map[string]string{"provider": string(wallet.ProviderDFNS), "vendor_status": resp.Status, "key_id": resp.KeyID},
		CreatedAt: parseDFNSTime(resp.DateCreated),
		UpdatedAt: parseDFNSTime(resp.DateSigned),
	}
	if tx.UpdatedAt.IsZero() {
		tx.UpdatedAt = tx.CreatedAt
	}
	if tx.Status == wallet.TxStatusSigned {
		signedAt := parseDFNSTime(resp.DateSigned)
		if signedAt.IsZero() {
			signedAt = time.Now().UTC()
		}
		tx.SignedAt = &signedAt
	}
	return tx
}

func dfnsStatus(vendor string) wallet.TxStatus {
	switch vendor {
	case "Signed":
		return wallet.TxStatusSigned
	case "Rejected":
		return wallet.TxStatusRejected
	case "Failed":
		return wallet.TxStatusFailed
	default:
		// Pending, Executing, Confirmed, ...
		return wallet.TxStatusPending
	}
}

func parseDFNSTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

var _ contract = dfnsContract{}
