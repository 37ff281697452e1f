package gatewaydb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	mghelper "github.com/chainsafe/canton-wallet-gateway/pkg/pgutil/migrations"
	"github.com/chainsafe/canton-wallet-gateway/pkg/walletstore"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating signing_transactions table...")
		if err := mghelper.CreateSchema(ctx, db, &walletstore.SigningTransactionDao{}); err != nil {
			return err
		}
		return mghelper.CreateIndexes(ctx, db, "signing_transactions", "user_id", "status", "public_key")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping signing_transactions table...")
		return mghelper.DropTables(ctx, db, &walletstore.SigningTransactionDao{})
	})
}
