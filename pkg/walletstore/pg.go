package walletstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/chainsafe/canton-wallet-gateway/pkg/wallet"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the gateway store.
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

func (s *pgStore) GetWallets(ctx context.Context, userID string, opts ...QueryOption) ([]*wallet.Wallet, error) {
	options := &QueryOptions{}
	for _, opt := range opts {
		opt(options)
	}

	var daos []WalletDao
	query := s.db.NewSelect().
		Model(&daos).
		Where("user_id = ?", userID).
		Order("id ASC")

	if options.NetworkID != nil {
		query = query.Where("network_id = ?", *options.NetworkID)
	}
	if options.PartyID != nil {
		query = query.Where("party_id = ?", *options.PartyID)
	}
	if options.ProviderID != nil {
		query = query.Where("signing_provider_id = ?", string(*options.ProviderID))
	}
	if options.Primary != nil {
		query = query.Where("is_primary = ?", *options.Primary)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}

	wallets := make([]*wallet.Wallet, len(daos))
	for i := range daos {
		wallets[i] = toWallet(&daos[i])
	}
	return wallets, nil
}

func (s *pgStore) GetWallet(ctx context.Context, userID, partyID, networkID string) (*wallet.Wallet, error) {
	dao := new(WalletDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("user_id = ?", userID).
		Where("party_id = ?", partyID).
		Where("network_id = ?", networkID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return toWallet(dao), nil
}

func (s *pgStore) UpsertWallet(ctx context.Context, w *wallet.Wallet) error {
	dao := toWalletDao(w)
	now := time.Now().UTC()
	if dao.CreatedAt.IsZero() {
		dao.CreatedAt = now
	}
	dao.UpdatedAt = now

	_, err := s.db.NewInsert().
		Model(dao).
		On("CONFLICT (party_id, network_id) DO UPDATE").
		Set("hint = EXCLUDED.hint").
		Set("namespace = EXCLUDED.namespace").
		Set("public_key = EXCLUDED.public_key").
		Set("signing_provider_id = EXCLUDED.signing_provider_id").
		Set("disabled = EXCLUDED.disabled").
		Set("reason = EXCLUDED.reason").
		Set("status = EXCLUDED.status").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert wallet: %w", err)
	}
	return nil
}

func (s *pgStore) RemoveWallet(ctx context.Context, userID, partyID, networkID string) error {
	_, err := s.db.NewDelete().
		Model((*WalletDao)(nil)).
		Where("user_id = ?", userID).
		Where("party_id = ?", partyID).
		Where("network_id = ?", networkID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove wallet: %w", err)
	}
	return nil
}

func (s *pgStore) SetPrimaryWallet(ctx context.Context, userID, partyID, networkID string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().
			Model((*WalletDao)(nil)).
			Set("is_primary = FALSE").
			Set("updated_at = NOW()").
			Where("user_id = ?", userID).
			Where("network_id = ?", networkID).
			Where("is_primary = TRUE").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear primary wallets: %w", err)
		}

		res, err := tx.NewUpdate().
			Model((*WalletDao)(nil)).
			Set("is_primary = TRUE").
			Set("updated_at = NOW()").
			Where("user_id = ?", userID).
			Where("party_id = ?", partyID).
			Where("network_id = ?", networkID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to set primary wallet: %w", err)
		}
		if rows, err := res.RowsAffected(); err == nil && rows == 0 {
			return ErrWalletNotFound
		}
		return nil
	})
}

func (s *pgStore) HasPrimaryWallet(ctx context.Context, userID, networkID string) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*WalletDao)(nil)).
		Where("user_id = ?", userID).
		Where("network_id = ?", networkID).
		Where("is_primary = TRUE").
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check primary wallet: %w", err)
	}
	return exists, nil
}

func (s *pgStore) GetSigningKeys(ctx context.Context, userID string, providerID wallet.ProviderID) ([]*wallet.SigningKey, error) {
	var daos []SigningKeyDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("user_id = ?", userID).
		Where("provider_id = ?", string(providerID)).
		Order("pk ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list signing keys: %w", err)
	}

	keys := make([]*wallet.SigningKey, len(daos))
	for i := range daos {
		keys[i] = toSigningKey(&daos[i])
	}
	return keys, nil
}

func (s *pgStore) SetSigningKeys(ctx context.Context, userID string, providerID wallet.ProviderID, keys []*wallet.SigningKey) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*SigningKeyDao)(nil)).
			Where("user_id = ?", userID).
			Where("provider_id = ?", string(providerID)).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear signing keys: %w", err)
		}

		if len(keys) == 0 {
			return nil
		}

		now := time.Now().UTC()
		daos := make([]SigningKeyDao, len(keys))
		for i, k := range keys {
			dao := toSigningKeyDao(userID, providerID, k)
			if dao.CreatedAt.IsZero() {
				dao.CreatedAt = now
			}
			dao.UpdatedAt = now
			daos[i] = *dao
		}

		if _, err := tx.NewInsert().Model(&daos).Exec(ctx); err != nil {
			return fmt.Errorf("failed to store signing keys: %w", err)
		}
		return nil
	})
}

func (s *pgStore) GetSigningTransaction(ctx context.Context, userID, txID string) (*wallet.SigningTransaction, error) {
	dao := new(SigningTransactionDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("user_id = ?", userID).
		Where("id = ?", txID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get signing transaction: %w", err)
	}
	return toSigningTransaction(dao), nil
}

func (s *pgStore) GetSigningTransactions(ctx context.Context, userID string, txIDs, publicKeys []string) ([]*wallet.SigningTransaction, error) {
	var daos []SigningTransactionDao
	query := s.db.NewSelect().
		Model(&daos).
		Where("user_id = ?", userID).
		Order("pk ASC")

	if len(txIDs) > 0 {
		query = query.Where("id IN (?)", bun.In(txIDs))
	}
	if len(publicKeys) > 0 {
		query = query.Where("public_key IN (?)", bun.In(publicKeys))
	}

	if err := query.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list signing transactions: %w", err)
	}

	txs := make([]*wallet.SigningTransaction, len(daos))
	for i := range daos {
		txs[i] = toSigningTransaction(&daos[i])
	}
	return txs, nil
}

func (s *pgStore) UpsertSigningTransaction(ctx context.Context, userID string, providerID wallet.ProviderID, tx *wallet.SigningTransaction) error {
	dao := toSigningTransactionDao(userID, providerID, tx)
	now := time.Now().UTC()
	if dao.CreatedAt.IsZero() {
		dao.CreatedAt = now
	}
	dao.UpdatedAt = now
	if dao.Status == string(wallet.TxStatusSigned) && dao.SignedAt == nil {
		dao.SignedAt = &now
	}

	// signed_at is an audit field: COALESCE keeps the first signing
	// timestamp on any later status update.
	_, err := s.db.NewInsert().
		Model(dao).
		On("CONFLICT (id, user_id) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("signature = EXCLUDED.signature").
		Set("metadata = EXCLUDED.metadata").
		Set("updated_at = EXCLUDED.updated_at").
		Set("signed_at = COALESCE(st.signed_at, EXCLUDED.signed_at)").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert signing transaction: %w", err)
	}
	return nil
}

func (s *pgStore) GetDriverConfig(ctx context.Context, userID string, providerID wallet.ProviderID) (map[string]string, error) {
	dao := new(SigningConfigDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("user_id = ?", userID).
		Where("provider_id = ?", string(providerID)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to get driver config: %w", err)
	}
	return dao.Config, nil
}

func (s *pgStore) SetDriverConfig(ctx context.Context, userID string, providerID wallet.ProviderID, config map[string]string) error {
	dao := &SigningConfigDao{
		UserID:     userID,
		ProviderID: string(providerID),
		Config:     config,
		UpdatedAt:  time.Now().UTC(),
	}

	_, err := s.db.NewInsert().
		Model(dao).
		On("CONFLICT (user_id, provider_id) DO UPDATE").
		Set("config = EXCLUDED.config").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set driver config: %w", err)
	}
	return nil
}
