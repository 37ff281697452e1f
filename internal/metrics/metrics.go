package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncPasses counts wallet reconciliation passes by outcome
	SyncPasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_wallet_sync_passes_total",
			Help: "Total number of wallet reconciliation passes",
		},
		[]string{"status"},
	)

	// SyncDuration tracks reconciliation pass duration
	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gateway_wallet_sync_duration_seconds",
			Help:    "Wallet reconciliation pass duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// WalletsAdded counts wallets materialized by reconciliation
	WalletsAdded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_wallets_added_total",
			Help: "Total number of wallets added by reconciliation",
		},
		[]string{"provider", "matched"},
	)

	// DriverProbeErrors counts per-driver failures during namespace resolution
	DriverProbeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_driver_probe_errors_total",
			Help: "Total number of driver key lookups that failed during resolution",
		},
		[]string{"provider"},
	)

	// SigningRequests counts signing requests by provider and status
	SigningRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_signing_requests_total",
			Help: "Total number of signing requests",
		},
		[]string{"provider", "status"},
	)

	// PartiesAllocated counts party allocations by mode
	PartiesAllocated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_parties_allocated_total",
			Help: "Total number of parties allocated through the gateway",
		},
		[]string{"mode", "status"},
	)
)
