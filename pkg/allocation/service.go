// Package allocation creates parties on the participant and makes sure the
// requesting ledger user ends up with rights over them.
package allocation

import (
	"context"
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/chainsafe/canton-wallet-gateway/pkg/ledger"
	"github.com/chainsafe/canton-wallet-gateway/pkg/topology"
	"github.com/chainsafe/canton-wallet-gateway/pkg/wallet"
)

// Config tunes how long allocation waits for a new party to become visible.
type Config struct {
	// PollAttempts bounds the visibility poll after allocating under a
	// wildcard right.
	PollAttempts int           `mapstructure:"poll_attempts" default:"10" validate:"gte=1"`
	PollInterval time.Duration `mapstructure:"poll_interval" default:"1s" validate:"gt=0"`
}

func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("nil config")
	}
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("failed to apply config defaults: %w", err)
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid allocation config: %w", err)
	}
	return nil
}

// AllocatedParty is the outcome of a successful allocation.
type AllocatedParty struct {
	PartyID   string
	Hint      string
	Namespace string
}

// Service allocates participant-hosted and external parties.
type Service struct {
	ledger ledger.Ledger
	topo   *topology.Controller
	cfg    Config
	logger *zap.Logger
}

// New creates the allocation service.
func New(l ledger.Ledger, topo *topology.Controller, cfg Config, logger *zap.Logger) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{ledger: l, topo: topo, cfg: cfg, logger: logger}, nil
}

// AllocateInternal allocates a participant-hosted party and confirms the user
// can act as it.
func (s *Service) AllocateInternal(ctx context.Context, userID, hint string) (*AllocatedParty, error) {
	details, err := s.ledger.AllocateParty(ctx, hint)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate party: %w", err)
	}

	allocatedHint, namespace, err := wallet.SplitPartyID(details.PartyID)
	if err != nil {
		return nil, fmt.Errorf("participant returned malformed party id: %w", err)
	}

	if err := s.EnsureUserRights(ctx, userID, details.PartyID); err != nil {
		return nil, err
	}

	s.logger.Info("Allocated participant-hosted party",
		zap.String("user_id", userID),
		zap.String("party_id", details.PartyID))

	return &AllocatedParty{PartyID: details.PartyID, Hint: allocatedHint, Namespace: namespace}, nil
}

// AllocateExternal onboards an external party whose key the gateway never
// holds: onboarding transactions are prepared and verified, the combined hash
// is signed through sign, and the signed bundle is submitted. The user's
// rights over the new party are confirmed before returning.
func (s *Service) AllocateExternal(ctx context.Context, userID string, publicKey []byte, hint string, sign topology.SignFunc) (*AllocatedParty, error) {
	prepared, err := s.topo.PrepareExternalPartyTopology(ctx, publicKey, hint)
	if err != nil {
		return nil, err
	}

	signature, err := sign(ctx, prepared.CombinedHash)
	if err != nil {
		return nil, fmt.Errorf("failed to sign combined topology hash: %w", err)
	}

	partyID, err := s.topo.SubmitExternalPartyTopology(ctx, prepared, signature)
	if err != nil {
		return nil, err
	}

	if err := s.EnsureUserRights(ctx, userID, partyID); err != nil {
		return nil, err
	}

	s.logger.Info("Allocated external party",
		zap.String("user_id", userID),
		zap.String("party_id", partyID))

	return &AllocatedParty{PartyID: partyID, Hint: prepared.Hint, Namespace: prepared.Namespace}, nil
}

// EnsureUserRights makes sure userID can act as partyID. Users holding the
// wildcard right need no per-party grant; for them the party is polled until
// it becomes visible on the ledger. Everyone else gets an explicit grant,
// with already-granted treated as success.
func (s *Service) EnsureUserRights(ctx context.Context, userID, partyID string) error {
	rights, err := s.ledger.ListUserRights(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list user rights: %w", err)
	}

	for _, right := range rights {
		if right.IsWildcard() {
			return s.waitPartyVisible(ctx, partyID)
		}
	}

	if err := s.ledger.GrantUserRights(ctx, userID, partyID); err != nil {
		switch {
		case ledger.IsAlreadyExists(err):
			return nil
		case ledger.IsTimelyResponseError(err):
			// The grant may still land; fall back to watching for the party.
			s.logger.Warn("Rights grant did not confirm in time, polling for party visibility",
				zap.String("user_id", userID),
				zap.String("party_id", partyID),
				zap.Error(err))
			return s.waitPartyVisible(ctx, partyID)
		default:
			return fmt.Errorf("failed to grant rights over %s: %w", partyID, err)
		}
	}
	return nil
}

func (s *Service) waitPartyVisible(ctx context.Context, partyID string) error {
	var lastErr error
	for attempt := 0; attempt < s.cfg.PollAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.cfg.PollInterval):
			}
		}

		exists, err := s.ledger.PartyExists(ctx, partyID)
		if err != nil {
			if !ledger.IsTimelyResponseError(err) {
				return fmt.Errorf("failed to check party visibility: %w", err)
			}
			lastErr = err
			continue
		}
		if exists {
			return nil
		}
	}

	if lastErr != nil {
		return fmt.Errorf("party %s not visible after %d attempts: %w", partyID, s.cfg.PollAttempts, lastErr)
	}
	return fmt.Errorf("party %s not visible after %d attempts", partyID, s.cfg.PollAttempts)
}

var _ topology.RightsEnsurer = (*Service)(nil)
