// Package walletsync reconciles ledger-granted party rights with the locally
// persisted wallet set. Parties a user has rights over but no wallet record
// for are resolved to a signing provider by namespace fingerprint and
// materialized; nothing is ever silently dropped.
package walletsync

import (
	"context"
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chainsafe/canton-wallet-gateway/internal/metrics"
	"github.com/chainsafe/canton-wallet-gateway/pkg/ledger"
	"github.com/chainsafe/canton-wallet-gateway/pkg/signer"
	"github.com/chainsafe/canton-wallet-gateway/pkg/wallet"
	"github.com/chainsafe/canton-wallet-gateway/pkg/walletstore"
)

// reasonNoProviderMatched disables wallets whose namespace matched no
// registered signing driver. The wallet stays visible so the party is
// auditable; it becomes usable once a matching driver appears.
const reasonNoProviderMatched = "no signing provider matched"

// Config tunes the reconciliation loop.
type Config struct {
	Interval time.Duration `mapstructure:"interval" default:"30s" validate:"gt=0"`
	// Concurrency bounds how many parties are resolved in parallel within one
	// pass. Driver probing within one party stays sequential so first-registered
	// still wins.
	Concurrency int `mapstructure:"concurrency" default:"4" validate:"gte=1"`
}

func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("nil config")
	}
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("failed to apply config defaults: %w", err)
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid wallet sync config: %w", err)
	}
	return nil
}

// SyncResult reports what one reconciliation pass changed. Removed is
// reserved: the current pass only adds.
type SyncResult struct {
	Added   []*wallet.Wallet
	Removed []*wallet.Wallet
}

// Service is the wallet reconciliation service.
type Service struct {
	ledger   ledger.Ledger
	store    walletstore.Store
	resolver *resolver
	cfg      Config
	logger   *zap.Logger
}

// New creates the reconciliation service.
func New(l ledger.Ledger, registry *signer.Registry, store walletstore.Store, cfg Config, logger *zap.Logger) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		ledger:   l,
		store:    store,
		resolver: &resolver{registry: registry, logger: logger},
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Run reconciles userID's wallets on a fixed interval until ctx is cancelled.
// An immediate pass runs before the first tick; pass failures are logged and
// the loop keeps going.
func (s *Service) Run(ctx context.Context, userID string) {
	s.logger.Info("Starting wallet reconciliation loop",
		zap.String("user_id", userID),
		zap.Duration("interval", s.cfg.Interval))

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.SyncWallets(ctx, userID); err != nil {
			s.logger.Error("Wallet reconciliation pass failed",
				zap.String("user_id", userID),
				zap.Error(err))
		}

		select {
		case <-ctx.Done():
			s.logger.Info("Stopping wallet reconciliation loop", zap.String("user_id", userID))
			return
		case <-ticker.C:
		}
	}
}

// SyncWallets runs one reconciliation pass for userID. A failure reading the
// network, participant identity, or the user's rights aborts the whole pass;
// per-driver failures during resolution only skip that driver. Re-running
// with no ledger-side change is a no-op.
func (s *Service) SyncWallets(ctx context.Context, userID string) (*SyncResult, error) {
	start := time.Now()
	result, err := s.syncWallets(ctx, userID)
	metrics.SyncDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SyncPasses.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.SyncPasses.WithLabelValues("ok").Inc()
	return result, nil
}

func (s *Service) syncWallets(ctx context.Context, userID string) (*SyncResult, error) {
	networkID, err := s.ledger.GetNetworkID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get network id: %w", err)
	}

	participantID, err := s.ledger.GetParticipantID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant id: %w", err)
	}
	_, participantNamespace, err := wallet.SplitPartyID(participantID)
	if err != nil {
		return nil, fmt.Errorf("malformed participant id: %w", err)
	}

	rights, err := s.ledger.ListUserRights(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user rights: %w", err)
	}

	existing, err := s.store.GetWallets(ctx, userID, walletstore.WithNetworkID(networkID))
	if err != nil {
		return nil, fmt.Errorf("failed to load wallets: %w", err)
	}

	newParties, retries := diffParties(rights, existing)
	if len(newParties) == 0 {
		return s.finishPass(ctx, userID, networkID, existing, nil)
	}

	// Parties resolve independently; resolutions is index-aligned with
	// newParties so pass output stays deterministic.
	resolutions := make([]*resolution, len(newParties))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, partyID := range newParties {
		g.Go(func() error {
			_, namespace, err := wallet.SplitPartyID(partyID)
			if err != nil {
				s.logger.Warn("Skipping malformed party id from ledger rights",
					zap.String("party_id", partyID),
					zap.Error(err))
				return nil
			}
			res := s.resolver.resolve(gctx, userID, namespace, participantNamespace)
			resolutions[i] = &res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var added []*wallet.Wallet
	for i, partyID := range newParties {
		res := resolutions[i]
		if res == nil {
			continue
		}
		// A retried wallet that still matches no driver is already stored
		// disabled with the right reason; rewriting it would defeat
		// idempotence.
		if retries[partyID] && !res.Matched {
			continue
		}

		w := s.materialize(userID, partyID, networkID, res)
		if err := s.store.UpsertWallet(ctx, w); err != nil {
			return nil, fmt.Errorf("failed to persist wallet %s: %w", partyID, err)
		}
		added = append(added, w)

		metrics.WalletsAdded.WithLabelValues(string(res.ProviderID), fmt.Sprintf("%t", res.Matched)).Inc()
		msg := "Materialized wallet from ledger rights"
		if retries[partyID] {
			msg = "Repaired previously unmatched wallet"
		}
		s.logger.Info(msg,
			zap.String("user_id", userID),
			zap.String("party_id", partyID),
			zap.String("provider", string(res.ProviderID)),
			zap.Bool("matched", res.Matched))
	}

	return s.finishPass(ctx, userID, networkID, existing, added)
}

// finishPass promotes a primary wallet when none exists yet and at least one
// wallet does.
func (s *Service) finishPass(ctx context.Context, userID, networkID string, existing, added []*wallet.Wallet) (*SyncResult, error) {
	hasPrimary, err := s.store.HasPrimaryWallet(ctx, userID, networkID)
	if err != nil {
		return nil, fmt.Errorf("failed to check primary wallet: %w", err)
	}
	if !hasPrimary {
		candidates := append(append([]*wallet.Wallet{}, existing...), added...)
		if len(candidates) > 0 {
			first := candidates[0]
			if err := s.store.SetPrimaryWallet(ctx, userID, first.PartyID, networkID); err != nil {
				return nil, fmt.Errorf("failed to promote primary wallet: %w", err)
			}
			s.logger.Info("Promoted primary wallet",
				zap.String("user_id", userID),
				zap.String("party_id", first.PartyID))
		}
	}
	return &SyncResult{Added: added}, nil
}

func (s *Service) materialize(userID, partyID, networkID string, res *resolution) *wallet.Wallet {
	hint, namespace, _ := wallet.SplitPartyID(partyID)
	now := time.Now().UTC()
	w := &wallet.Wallet{
		PartyID:           partyID,
		UserID:            userID,
		Hint:              hint,
		Namespace:         namespace,
		PublicKey:         res.PublicKey,
		NetworkID:         networkID,
		SigningProviderID: res.ProviderID,
		Status:            wallet.StatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if !res.Matched {
		w.Disabled = true
		w.Reason = reasonNoProviderMatched
	}
	return w
}

// diffParties returns the parties to resolve this pass, in first-seen rights
// order with one representative right per party: parties with ledger rights
// but no wallet record, plus wallets previously disabled for lack of a
// matching provider. The latter are reported in retries so they are retried
// every pass and repaired once a matching driver appears.
func diffParties(rights []ledger.UserRight, existing []*wallet.Wallet) (parties []string, retries map[string]bool) {
	known := make(map[string]bool, len(existing))
	retries = make(map[string]bool)
	for _, w := range existing {
		if w.Disabled && w.Reason == reasonNoProviderMatched {
			retries[w.PartyID] = true
			continue
		}
		known[w.PartyID] = true
	}

	seen := make(map[string]bool, len(rights))
	for _, right := range rights {
		if right.IsWildcard() || right.Party == "" {
			continue
		}
		if seen[right.Party] || known[right.Party] {
			continue
		}
		seen[right.Party] = true
		parties = append(parties, right.Party)
	}
	return parties, retries
}
