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
		log.Println("creating wallets table...")
		if err := mghelper.CreateSchema(ctx, db, &walletstore.WalletDao{}); err != nil {
			return err
		}
		return mghelper.CreateIndexes(ctx, db, "wallets", "user_id", "namespace")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping wallets table...")
		return mghelper.DropTables(ctx, db, &walletstore.WalletDao{})
	})
}
