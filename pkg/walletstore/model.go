package walletstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/chainsafe/canton-wallet-gateway/pkg/wallet"
)

// WalletDao maps directly to the 'wallets' table in PostgreSQL.
type WalletDao struct {
	bun.BaseModel     `bun:"table:wallets,alias:w"`
	ID                int64     `bun:"id,pk,autoincrement"`
	PartyID           string    `bun:"party_id,notnull,unique:wallets_party_network,type:varchar(512)"`
	NetworkID         string    `bun:"network_id,notnull,unique:wallets_party_network,type:varchar(255)"`
	UserID            string    `bun:"user_id,notnull,type:varchar(255)"`
	Hint              string    `bun:"hint,notnull,type:varchar(255)"`
	Namespace         string    `bun:"namespace,notnull,type:varchar(255)"`
	PublicKey         *string   `bun:"public_key,type:text"`
	SigningProviderID string    `bun:"signing_provider_id,notnull,type:varchar(64)"`
	Primary           bool      `bun:"is_primary,notnull,default:false"`
	Disabled          bool      `bun:"disabled,notnull,default:false"`
	Reason            *string   `bun:"reason,type:varchar(500)"`
	Status            string    `bun:"status,notnull,type:varchar(32)"`
	CreatedAt         time.Time `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt         time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}

func toWalletDao(w *wallet.Wallet) *WalletDao {
	dao := &WalletDao{
		PartyID:           w.PartyID,
		NetworkID:         w.NetworkID,
		UserID:            w.UserID,
		Hint:              w.Hint,
		Namespace:         w.Namespace,
		SigningProviderID: string(w.SigningProviderID),
		Primary:           w.Primary,
		Disabled:          w.Disabled,
		Status:            string(w.Status),
		CreatedAt:         w.CreatedAt,
		UpdatedAt:         w.UpdatedAt,
	}

	if w.PublicKey != "" {
		dao.PublicKey = &w.PublicKey
	}
	if w.Reason != "" {
		dao.Reason = &w.Reason
	}

	return dao
}

func toWallet(dao *WalletDao) *wallet.Wallet {
	w := &wallet.Wallet{
		PartyID:           dao.PartyID,
		NetworkID:         dao.NetworkID,
		UserID:            dao.UserID,
		Hint:              dao.Hint,
		Namespace:         dao.Namespace,
		SigningProviderID: wallet.ProviderID(dao.SigningProviderID),
		Primary:           dao.Primary,
		Disabled:          dao.Disabled,
		Status:            wallet.Status(dao.Status),
		CreatedAt:         dao.CreatedAt,
		UpdatedAt:         dao.UpdatedAt,
	}

	if dao.PublicKey != nil {
		w.PublicKey = *dao.PublicKey
	}
	if dao.Reason != nil {
		w.Reason = *dao.Reason
	}

	return w
}

// SigningKeyDao maps directly to the 'signing_keys' table in PostgreSQL.
type SigningKeyDao struct {
	bun.BaseModel `bun:"table:signing_keys,alias:sk"`
	PK            int64             `bun:"pk,pk,autoincrement"`
	KeyID         string            `bun:"id,notnull,unique:signing_keys_user_key,type:varchar(255)"`
	UserID        string            `bun:"user_id,notnull,unique:signing_keys_user_key,type:varchar(255)"`
	ProviderID    string            `bun:"provider_id,notnull,type:varchar(64)"`
	Name          string            `bun:"name,notnull,type:varchar(255)"`
	PublicKey     string            `bun:"public_key,notnull,type:text"`
	PrivateKey    *string           `bun:"private_key,type:text"`
	Metadata      map[string]string `bun:"metadata,type:jsonb"`
	CreatedAt     time.Time         `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt     time.Time         `bun:"updated_at,nullzero,default:current_timestamp"`
}

func toSigningKeyDao(userID string, providerID wallet.ProviderID, k *wallet.SigningKey) *SigningKeyDao {
	dao := &SigningKeyDao{
		KeyID:      k.ID,
		UserID:     userID,
		ProviderID: string(providerID),
		Name:       k.Name,
		PublicKey:  k.PublicKey,
		Metadata:   k.Metadata,
		CreatedAt:  k.CreatedAt,
		UpdatedAt:  k.UpdatedAt,
	}
	if k.PrivateKey != "" {
		dao.PrivateKey = &k.PrivateKey
	}
	return dao
}

func toSigningKey(dao *SigningKeyDao) *wallet.SigningKey {
	k := &wallet.SigningKey{
		ID:        dao.KeyID,
		Name:      dao.Name,
		PublicKey: dao.PublicKey,
		Metadata:  dao.Metadata,
		CreatedAt: dao.CreatedAt,
		UpdatedAt: dao.UpdatedAt,
	}
	if dao.PrivateKey != nil {
		k.PrivateKey = *dao.PrivateKey
	}
	return k
}

// SigningTransactionDao maps directly to the 'signing_transactions' table in PostgreSQL.
type SigningTransactionDao struct {
	bun.BaseModel `bun:"table:signing_transactions,alias:st"`
	PK            int64             `bun:"pk,pk,autoincrement"`
	TxID          string            `bun:"id,notnull,unique:signing_txs_user_tx,type:varchar(255)"`
	UserID        string            `bun:"user_id,notnull,unique:signing_txs_user_tx,type:varchar(255)"`
	ProviderID    string            `bun:"provider_id,notnull,type:varchar(64)"`
	Hash          string            `bun:"hash,notnull,type:text"`
	Signature     *string           `bun:"signature,type:text"`
	PublicKey     string            `bun:"public_key,notnull,type:text"`
	Status        string            `bun:"status,notnull,type:varchar(32)"`
	Metadata      map[string]string `bun:"metadata,type:jsonb"`
	CreatedAt     time.Time         `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt     time.Time         `bun:"updated_at,nullzero,default:current_timestamp"`
	SignedAt      *time.Time        `bun:"signed_at"`
}

func toSigningTransactionDao(userID string, providerID wallet.ProviderID, tx *wallet.SigningTransaction) *SigningTransactionDao {
	dao := &SigningTransactionDao{
		TxID:       tx.TxID,
		UserID:     userID,
		ProviderID: string(providerID),
		Hash:       tx.Hash,
		PublicKey:  tx.PublicKey,
		Status:     string(tx.Status),
		Metadata:   tx.Metadata,
		CreatedAt:  tx.CreatedAt,
		UpdatedAt:  tx.UpdatedAt,
		SignedAt:   tx.SignedAt,
	}
	if tx.Signature != "" {
		dao.Signature = &tx.Signature
	}
	return dao
}

func toSigningTransaction(dao *SigningTransactionDao) *wallet.SigningTransaction {
	tx := &wallet.SigningTransaction{
		TxID:      dao.TxID,
		Hash:      dao.Hash,
		PublicKey: dao.PublicKey,
		Status:    wallet.TxStatus(dao.Status),
		Metadata:  dao.Metadata,
		CreatedAt: dao.CreatedAt,
		UpdatedAt: dao.UpdatedAt,
		SignedAt:  dao.SignedAt,
	}
	if dao.Signature != nil {
		tx.Signature = *dao.Signature
	}
	return tx
}

// SigningConfigDao maps directly to the 'signing_configs' table in PostgreSQL.
type SigningConfigDao struct {
	bun.BaseModel `bun:"table:signing_configs,alias:sc"`
	PK            int64             `bun:"pk,pk,autoincrement"`
	UserID        string            `bun:"user_id,notnull,unique:signing_configs_user_provider,type:varchar(255)"`
	ProviderID    string            `bun:"provider_id,notnull,unique:signing_configs_user_provider,type:varchar(64)"`
	Config        map[string]string `bun:"config,type:jsonb"`
	UpdatedAt     time.Time         `bun:"updated_at,nullzero,default:current_timestamp"`
}
