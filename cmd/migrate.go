package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/tierforge/tierserve/config"
	pkgzap "github.com/tierforge/tierserve/logger/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run every registered schema's database-tier migration",
	Long:  "Connects the database tier for each schema registered via RegisterMigration and runs its AutoMigrate step, without starting the router.",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if err := config.Init(); err != nil {
		return err
	}
	defer config.Clean()
	if err := pkgzap.Init(); err != nil {
		return err
	}
	defer pkgzap.Clean()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	for _, migrate := range migrators {
		if err := migrate(ctx); err != nil {
			return err
		}
	}
	return nil
}
