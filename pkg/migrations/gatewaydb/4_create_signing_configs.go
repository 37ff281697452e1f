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
		log.Println("creating signing_configs table...")
		return mghelper.CreateSchema(ctx, db, &walletstore.SigningConfigDao{})
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping signing_configs table...")
		return mghelper.DropTables(ctx, db, &walletstore.SigningConfigDao{})
	})
}
