// Package custodian implements the external-custody signing drivers. Both
// vendors (Fireblocks and DFNS) are driven through one shared REST contract;
// only the endpoint shapes differ.
package custodian

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// Config holds the connection settings for one custody vendor.
type Config struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	APIKey  string `mapstructure:"api_key" validate:"required"`
	// APISecret is used by vendors that sign requests (Fireblocks).
	APISecret string `mapstructure:"api_secret"`

	RequestTimeout time.Duration `mapstructure:"request_timeout" default:"30s"`
	// PollInterval drives the transaction-subscription poll loop.
	PollInterval time.Duration `mapstructure:"poll_interval" default:"5s"`
}

func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("nil config")
	}
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("failed to apply config defaults: %w", err)
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid custodian config: %w", err)
	}
	return nil
}

// restClient is the minimal HTTP surface both vendor contracts run on.
type restClient struct {
	cfg    *Config
	client *http.Client
}

func newRESTClient(cfg *Config) *restClient {
	return &restClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

func (r *restClient) get(ctx context.Context, path string, out any) error {
	return r.do(ctx, http.MethodGet, path, nil, out)
}

func (r *restClient) post(ctx context.Context, path string, body, out any) error {
	return r.do(ctx, http.MethodPost, path, body, out)
}

func (r *restClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("request to custodian failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("custodian returned %d: %s", resp.StatusCode, string(payload))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode custodian response: %w", err)
	}
	return nil
}

var errNotFound = fmt.Errorf("custodian resource not found")
