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
		log.Println("creating signing_keys table...")
		if err := mghelper.CreateSchema(ctx, db, &walletstore.SigningKeyDao{}); err != nil {
			return err
		}
		return mghelper.CreateIndexes(ctx, db, "signing_keys", "user_id", "provider_id")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping signing_keys table...")
		return mghelper.DropTables(ctx, db, &walletstore.SigningKeyDao{})
	})
}
