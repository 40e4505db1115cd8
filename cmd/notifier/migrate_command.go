package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/narwhalmedia/availability/internal/container"
	gormrepo "github.com/narwhalmedia/availability/internal/infrastructure/persistence/gorm"
	"github.com/narwhalmedia/availability/pkg/database"
)

func newMigrateCommand(cmdCtx *commandContext) *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			z, syncLogger, err := container.ProvideZapLogger(cfg)
			if err != nil {
				return err
			}
			defer syncLogger()

			db, closeDB, err := container.ProvideDatabase(cfg, z)
			if err != nil {
				return err
			}
			defer closeDB()

			out := cmd.OutOrStdout()
			if status {
				pending, err := database.NewMigrator(db, z, gormrepo.Migrations()...).Pending()
				if err != nil {
					return err
				}
				if len(pending) == 0 {
					fmt.Fprintln(out, "Database is up to date")
				}
				for _, m := range pending {
					fmt.Fprintf(out, "pending %s %s\n", m.Version, m.Name)
				}
				return nil
			}

			applied, err := gormrepo.Migrate(db, z)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(out, "No pending migrations")
			}
			for _, version := range applied {
				fmt.Fprintf(out, "applied %s\n", version)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "List pending migrations without applying them")
	return cmd
}
