package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/passport/store"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var dialect, dsn string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the principal and role schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dialect == "" {
				dialect = opts.cfg.Database.Dialect
			}
			if dsn == "" {
				dsn = opts.cfg.Database.DSN
			}
			if dsn == "" {
				return fmt.Errorf("no database dsn: set database.dsn, PASSPORT_DB_DSN or --dsn")
			}

			d, err := store.ParseDialect(dialect)
			if err != nil {
				return err
			}
			db, err := store.Open(cmd.Context(), d, dsn)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := store.Migrate(cmd.Context(), db, d); err != nil {
				return err
			}
			opts.logger.Info("migrations applied", "dialect", string(d))
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}

	cmd.Flags().StringVar(&dialect, "dialect", "", "Database dialect (postgres, sqlite)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Database DSN or SQLite path")
	return cmd
}
