package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/chainsafe/canton-wallet-gateway/pkg/allocation"
	"github.com/chainsafe/canton-wallet-gateway/pkg/auth"
	"github.com/chainsafe/canton-wallet-gateway/pkg/config"
	"github.com/chainsafe/canton-wallet-gateway/pkg/keys"
	"github.com/chainsafe/canton-wallet-gateway/pkg/ledger/jsonapi"
	"github.com/chainsafe/canton-wallet-gateway/pkg/pgutil"
	"github.com/chainsafe/canton-wallet-gateway/pkg/signer"
	"github.com/chainsafe/canton-wallet-gateway/pkg/signer/custodian"
	"github.com/chainsafe/canton-wallet-gateway/pkg/signer/internaldriver"
	"github.com/chainsafe/canton-wallet-gateway/pkg/signer/participant"
	"github.com/chainsafe/canton-wallet-gateway/pkg/signer/proxy"
	"github.com/chainsafe/canton-wallet-gateway/pkg/topology"
	"github.com/chainsafe/canton-wallet-gateway/pkg/walletstore"
	"github.com/chainsafe/canton-wallet-gateway/pkg/walletsync"
)

var (
	configPath = flag.String("config", "config.yaml", "Path to configuration file")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Canton wallet gateway")

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connection established", zap.String("database", cfg.Database.Database))

	store := walletstore.NewStore(db)

	ledgerClient, err := jsonapi.New(&cfg.Ledger, jsonapi.WithLogger(logger))
	if err != nil {
		logger.Fatal("Failed to initialize ledger client", zap.Error(err))
	}

	registry, err := buildRegistry(cfg, store, logger)
	if err != nil {
		logger.Fatal("Failed to build signing driver registry", zap.Error(err))
	}

	topo := topology.New(ledgerClient, topology.WithLogger(logger))

	allocator, err := allocation.New(ledgerClient, topo, allocation.Config{
		PollAttempts: cfg.Allocation.PollAttempts,
		PollInterval: cfg.Allocation.PollInterval,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize allocation service", zap.Error(err))
	}
	// The allocator both drives the controller and backs its rights step, so
	// onboarding through either entry point confirms the user's rights.
	topology.WithRightsEnsurer(allocator)(topo)

	syncService, err := walletsync.New(ledgerClient, registry, store, walletsync.Config{
		Interval:    cfg.WalletSync.Interval,
		Concurrency: cfg.WalletSync.Concurrency,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize wallet sync service", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	syncDone := make(chan struct{})
	go func() {
		defer close(syncDone)
		syncService.Run(ctx, cfg.Ledger.UserID)
	}()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	if cfg.Monitoring.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	// Admin surface: trigger a reconciliation pass, allocate a
	// participant-hosted party, or verify a party signature.
	validator := auth.NewValidator(cfg.Ledger.Auth.JWKSURL, cfg.Ledger.Auth.JWTIssuer)
	r.Route("/admin", func(r chi.Router) {
		r.Use(bearerAuth(validator, logger))

		r.Post("/sync", func(w http.ResponseWriter, r *http.Request) {
			result, err := syncService.SyncWallets(r.Context(), cfg.Ledger.UserID)
			if err != nil {
				logger.Error("Manual sync failed", zap.Error(err))
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]int{"added": len(result.Added), "removed": len(result.Removed)})
		})
		r.Post("/parties", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Hint string `json:"hint"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid request body", http.StatusBadRequest)
				return
			}
			party, err := allocator.AllocateInternal(r.Context(), cfg.Ledger.UserID, req.Hint)
			if err != nil {
				logger.Error("Party allocation failed", zap.Error(err))
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(party)
		})
		r.Post("/parties/verify", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				PartyID   string `json:"party_id"`
				PublicKey string `json:"public_key"`
				Message   string `json:"message"`
				Signature string `json:"signature"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid request body", http.StatusBadRequest)
				return
			}
			valid, err := auth.VerifyPartySignature(req.PartyID, req.PublicKey, req.Message, req.Signature)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]bool{"valid": valid})
		})
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Monitoring.MetricsPort)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("address", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received, gracefully shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	select {
	case <-syncDone:
	case <-shutdownCtx.Done():
		logger.Warn("Wallet sync loop did not stop before shutdown deadline")
	}

	logger.Info("Gateway stopped")
}

// bearerAuth validates the Authorization bearer token against the configured
// JWKS endpoint and stores the token subject on the request context. Requests
// pass through unauthenticated when no JWKS endpoint is configured.
func bearerAuth(validator *auth.Validator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !validator.IsConfigured() {
				next.ServeHTTP(w, r)
				return
			}
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			subject, err := validator.Subject(token)
			if err != nil {
				logger.Debug("Token rejected", zap.Error(err))
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), subject)))
		})
	}
}

// buildRegistry assembles the signing driver registry. Every driver is
// wrapped in the persistence proxy; registration order decides probe order
// during wallet reconciliation.
func buildRegistry(cfg *config.Config, store walletstore.Store, logger *zap.Logger) (*signer.Registry, error) {
	registry := signer.NewRegistry()

	if err := registry.Register(participant.New()); err != nil {
		return nil, err
	}

	var cipher keys.KeyCipher
	if cfg.Signing.MasterKey != "" {
		masterKey, err := keys.MasterKeyFromBase64(cfg.Signing.MasterKey)
		if err != nil {
			return nil, fmt.Errorf("invalid signing master key: %w", err)
		}
		cipher, err = keys.NewAESKeyCipher(masterKey)
		if err != nil {
			return nil, err
		}
	}

	internal := internaldriver.New(cipher, logger)
	if cfg.Signing.Seed != "" {
		seed, err := base64.StdEncoding.DecodeString(cfg.Signing.Seed)
		if err != nil {
			return nil, fmt.Errorf("invalid signing seed: %w", err)
		}
		pair, err := keys.DeriveKeyPair(cfg.Ledger.UserID, seed)
		if err != nil {
			return nil, fmt.Errorf("failed to derive gateway key: %w", err)
		}
		if _, err := internal.ImportUserKey(cfg.Ledger.UserID, "gateway", pair); err != nil {
			return nil, err
		}
	}
	if err := registry.Register(proxy.New(internal, store, logger)); err != nil {
		return nil, err
	}

	if cfg.Signing.Fireblocks.Enabled {
		driver, err := custodian.NewFireblocks(custodianConfig(cfg.Signing.Fireblocks), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize fireblocks driver: %w", err)
		}
		if err := registry.Register(proxy.New(driver, store, logger)); err != nil {
			return nil, err
		}
	}

	if cfg.Signing.DFNS.Enabled {
		driver, err := custodian.NewDFNS(custodianConfig(cfg.Signing.DFNS), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize dfns driver: %w", err)
		}
		if err := registry.Register(proxy.New(driver, store, logger)); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

func custodianConfig(cfg config.CustodianConfig) *custodian.Config {
	return &custodian.Config{
		BaseURL:        cfg.BaseURL,
		APIKey:         cfg.APIKey,
		APISecret:      cfg.APISecret,
		RequestTimeout: cfg.RequestTimeout,
		PollInterval:   cfg.PollInterval,
	}
}
