// Package gatewaydb holds all the migrations for the gateway database
package gatewaydb

import (
	"context"
	"log"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrations is the gateway database migration set. The numbered files in
// this package register themselves here from their init functions.
var Migrations = migrate.NewMigrations()

// Migrate initializes the migration table if needed and applies all pending
// migrations.
func Migrate(ctx context.Context, db *bun.DB) error {
	migrator := migrate.NewMigrator(db, Migrations)

	if err := migrator.Init(ctx); err != nil {
		return err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		log.Println("gateway DB is up to date")
	} else {
		log.Printf("gateway DB migrated to %s\n", group)
	}
	return nil
}
