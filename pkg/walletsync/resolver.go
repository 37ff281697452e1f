package walletsync

import (
	"context"

	"go.uber.org/zap"

	"github.com/chainsafe/canton-wallet-gateway/internal/metrics"
	"github.com/chainsafe/canton-wallet-gateway/pkg/keys"
	"github.com/chainsafe/canton-wallet-gateway/pkg/signer"
	"github.com/chainsafe/canton-wallet-gateway/pkg/wallet"
)

// resolution is the outcome of matching one party namespace to a signing
// provider. Matched is false only for the participant fallback.
type resolution struct {
	ProviderID wallet.ProviderID
	PublicKey  string
	Matched    bool
}

// resolver maps party namespaces to signing providers.
type resolver struct {
	registry *signer.Registry
	logger   *zap.Logger
}

// resolve finds the signing provider owning namespace. The participant's own
// namespace is authoritative and checked first; otherwise every registered
// non-participant driver is probed in registration order and the first driver
// reporting a key with a matching fingerprint wins. A driver failure is
// logged and skipped so one misbehaving custodian cannot block resolution of
// unrelated parties.
func (r *resolver) resolve(ctx context.Context, userID, namespace, participantNamespace string) resolution {
	if namespace == participantNamespace {
		return resolution{ProviderID: wallet.ProviderParticipant, Matched: true}
	}

	for _, driver := range r.registry.NonParticipant() {
		driverKeys, err := driver.Controller(userID).GetKeys(ctx)
		if err != nil {
			metrics.DriverProbeErrors.WithLabelValues(string(driver.ProviderID())).Inc()
			r.logger.Warn("Signing driver key lookup failed during resolution",
				zap.String("provider", string(driver.ProviderID())),
				zap.String("user_id", userID),
				zap.String("namespace", namespace),
				zap.Error(err))
			continue
		}

		for _, key := range driverKeys {
			fingerprint, err := keys.FingerprintFromEncoded(key.PublicKey)
			if err != nil {
				r.logger.Warn("Skipping undecodable driver key",
					zap.String("provider", string(driver.ProviderID())),
					zap.String("key_id", key.ID),
					zap.Error(err))
				continue
			}
			if fingerprint == namespace {
				return resolution{ProviderID: driver.ProviderID(), PublicKey: key.PublicKey, Matched: true}
			}
		}
	}

	return resolution{ProviderID: wallet.ProviderParticipant, Matched: false}
}
