// Package jsonapi implements the gateway's ledger interface over the Canton
// JSON Ledger API. HTTP failures are translated into gRPC status errors so
// callers classify them with the same predicates as a gRPC-backed client.
package jsonapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/chainsafe/canton-wallet-gateway/pkg/config"
	"github.com/chainsafe/canton-wallet-gateway/pkg/keys"
	"github.com/chainsafe/canton-wallet-gateway/pkg/ledger"
)

// Option configures the client.
type Option func(*Client)

// WithLogger sets a custom logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithHTTPClient replaces the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client talks to one participant's JSON Ledger API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// New creates a ledger client from the gateway's ledger configuration. When a
// token file is configured its contents are sent as a bearer token.
func New(cfg *config.LedgerConfig, opts ...Option) (*Client, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("ledger address is required")
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		baseURL: strings.TrimSuffix(cfg.Address, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.Auth.TokenFile != "" {
		raw, err := os.ReadFile(cfg.Auth.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read ledger token file: %w", err)
		}
		c.token = strings.TrimSpace(string(raw))
	}
	return c, nil
}

type participantIDResponse struct {
	ParticipantID string `json:"participantId"`
}

func (c *Client) GetParticipantID(ctx context.Context) (string, error) {
	var resp participantIDResponse
	if err := c.do(ctx, http.MethodGet, "/v2/parties/participant-id", nil, &resp); err != nil {
		return "", err
	}
	return resp.ParticipantID, nil
}

type connectedSynchronizersResponse struct {
	ConnectedSynchronizers []struct {
		SynchronizerID string `json:"synchronizerId"`
	} `json:"connectedSynchronizers"`
}

func (c *Client) GetNetworkID(ctx context.Context) (string, error) {
	var resp connectedSynchronizersResponse
	if err := c.do(ctx, http.MethodGet, "/v2/state/connected-synchronizers", nil, &resp); err != nil {
		return "", err
	}
	if len(resp.ConnectedSynchronizers) == 0 {
		return "", status.Error(codes.FailedPrecondition, "participant is not connected to any synchronizer")
	}
	return resp.ConnectedSynchronizers[0].SynchronizerID, nil
}

type allocatePartyRequest struct {
	PartyIDHint string `json:"partyIdHint"`
}

type partyDetailsResponse struct {
	PartyDetails struct {
		Party   string `json:"party"`
		IsLocal bool   `json:"isLocal"`
	} `json:"partyDetails"`
}

func (c *Client) AllocateParty(ctx context.Context, hint string) (*ledger.PartyDetails, error) {
	var resp partyDetailsResponse
	if err := c.do(ctx, http.MethodPost, "/v2/parties", allocatePartyRequest{PartyIDHint: hint}, &resp); err != nil {
		return nil, err
	}
	return &ledger.PartyDetails{
		PartyID: resp.PartyDetails.Party,
		IsLocal: resp.PartyDetails.IsLocal,
	}, nil
}

// userRight mirrors the JSON API's oneof encoding: exactly one kind field is
// populated per right.
type userRight struct {
	CanActAs         *struct{ Party string `json:"party"` } `json:"canActAs,omitempty"`
	CanReadAs        *struct{ Party string `json:"party"` } `json:"canReadAs,omitempty"`
	CanExecuteAs     *struct{ Party string `json:"party"` } `json:"canExecuteAs,omitempty"`
	CanActAsAnyParty *struct{}                              `json:"canActAsAnyParty,omitempty"`
}

type listUserRightsResponse struct {
	Rights []userRight `json:"rights"`
}

func (c *Client) ListUserRights(ctx context.Context, userID string) ([]ledger.UserRight, error) {
	var resp listUserRightsResponse
	if err := c.do(ctx, http.MethodGet, "/v2/users/"+userID+"/rights", nil, &resp); err != nil {
		return nil, err
	}

	out := make([]ledger.UserRight, 0, len(resp.Rights))
	for _, r := range resp.Rights {
		switch {
		case r.CanActAsAnyParty != nil:
			out = append(out, ledger.UserRight{Kind: ledger.RightCanActAsAnyParty})
		case r.CanActAs != nil:
			out = append(out, ledger.UserRight{Kind: ledger.RightCanActAs, Party: r.CanActAs.Party})
		case r.CanExecuteAs != nil:
			out = append(out, ledger.UserRight{Kind: ledger.RightCanExecuteAs, Party: r.CanExecuteAs.Party})
		case r.CanReadAs != nil:
			out = append(out, ledger.UserRight{Kind: ledger.RightCanReadAs, Party: r.CanReadAs.Party})
		}
	}
	return out, nil
}

type grantUserRightsRequest struct {
	Rights []userRight `json:"rights"`
}

func (c *Client) GrantUserRights(ctx context.Context, userID, partyID string) error {
	req := grantUserRightsRequest{
		Rights: []userRight{
			{CanActAs: &struct{ Party string `json:"party"` }{Party: partyID}},
		},
	}
	return c.do(ctx, http.MethodPost, "/v2/users/"+userID+"/rights", req, nil)
}

type generateTopologyRequest struct {
	PartyHint string `json:"partyHint"`
	PublicKey struct {
		Format  string `json:"format"`
		KeyData string `json:"keyData"`
		KeySpec string `json:"keySpec"`
	} `json:"publicKey"`
}

type generateTopologyResponse struct {
	TopologyTransactions []string `json:"topologyTransactions"`
	MultiHash            string   `json:"multiHash"`
	PublicKeyFingerprint string   `json:"publicKeyFingerprint"`
}

func (c *Client) GenerateExternalPartyTopology(ctx context.Context, publicKey []byte, partyHint string) (*ledger.TopologyBundle, error) {
	var req generateTopologyRequest
	req.PartyHint = partyHint
	req.PublicKey.Format = "CRYPTO_KEY_FORMAT_RAW"
	req.PublicKey.KeyData = base64.StdEncoding.EncodeToString(publicKey)
	req.PublicKey.KeySpec = "SIGNING_KEY_SPEC_EC_SECP256K1"

	var resp generateTopologyResponse
	if err := c.do(ctx, http.MethodPost, "/v2/parties/external/generate-topology", req, &resp); err != nil {
		return nil, err
	}

	combined, err := base64.StdEncoding.DecodeString(resp.MultiHash)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "undecodable multi-hash: %v", err)
	}

	bundle := &ledger.TopologyBundle{
		Transactions:         make([][]byte, len(resp.TopologyTransactions)),
		TxHashes:             make([][]byte, len(resp.TopologyTransactions)),
		CombinedHash:         combined,
		PublicKeyFingerprint: resp.PublicKeyFingerprint,
	}
	for i, encoded := range resp.TopologyTransactions {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "undecodable topology transaction %d: %v", i, err)
		}
		bundle.Transactions[i] = raw
		// The JSON API declares only the combined hash; per-transaction
		// hashes follow the canonical encoding of the transaction bytes.
		bundle.TxHashes[i] = keys.TransactionHash(raw)
	}
	return bundle, nil
}

type allocateExternalRequest struct {
	Namespace              string                 `json:"namespace"`
	OnboardingTransactions []signedTopologyTxJSON `json:"onboardingTransactions"`
}

type signedTopologyTxJSON struct {
	Transaction string `json:"transaction"`
	Signature   struct {
		Format   string `json:"format"`
		Value    string `json:"signature"`
		SignedBy string `json:"signedBy"`
	} `json:"multiHashSignature"`
}

type allocateExternalResponse struct {
	PartyID string `json:"partyId"`
}

func (c *Client) SubmitExternalPartyTopology(ctx context.Context, transactions []ledger.SignedTopologyTransaction, namespace string) (string, error) {
	req := allocateExternalRequest{
		Namespace:              namespace,
		OnboardingTransactions: make([]signedTopologyTxJSON, len(transactions)),
	}
	for i, tx := range transactions {
		var item signedTopologyTxJSON
		item.Transaction = base64.StdEncoding.EncodeToString(tx.Transaction)
		item.Signature.Format = "SIGNATURE_FORMAT_CONCAT"
		item.Signature.Value = base64.StdEncoding.EncodeToString(tx.Signature)
		item.Signature.SignedBy = tx.SignedBy
		req.OnboardingTransactions[i] = item
	}

	var resp allocateExternalResponse
	if err := c.do(ctx, http.MethodPost, "/v2/parties/external/allocate", req, &resp); err != nil {
		return "", err
	}
	return resp.PartyID, nil
}

type listPartiesResponse struct {
	PartyDetails []struct {
		Party string `json:"party"`
	} `json:"partyDetails"`
}

func (c *Client) PartyExists(ctx context.Context, partyID string) (bool, error) {
	var resp listPartiesResponse
	err := c.do(ctx, http.MethodGet, "/v2/parties/"+partyID, nil, &resp)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, err
	}
	for _, pd := range resp.PartyDetails {
		if pd.Party == partyID {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return status.Errorf(codes.Internal, "failed to encode request: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return status.Errorf(codes.Internal, "failed to build request: %v", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return status.Error(codes.DeadlineExceeded, err.Error())
		}
		return status.Error(codes.Unavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return status.Error(statusCode(resp.StatusCode), fmt.Sprintf("ledger returned %d: %s", resp.StatusCode, string(payload)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return status.Errorf(codes.Internal, "failed to decode response: %v", err)
	}
	return nil
}

// statusCode maps HTTP status codes onto the gRPC codes the rest of the
// gateway classifies errors by.
func statusCode(httpStatus int) codes.Code {
	switch httpStatus {
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusConflict:
		return codes.AlreadyExists
	case http.StatusUnauthorized:
		return codes.Unauthenticated
	case http.StatusForbidden:
		return codes.PermissionDenied
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return codes.DeadlineExceeded
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return codes.Unavailable
	case http.StatusBadRequest:
		return codes.InvalidArgument
	default:
		return codes.Internal
	}
}

var _ ledger.Ledger = (*Client)(nil)
