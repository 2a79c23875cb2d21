package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pkordes/shuttle-fleet/internal/config"
	"github.com/pkordes/shuttle-fleet/migrations"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "migrate", Short: "Manage the database schema"}
	cmd.AddCommand(migrateUpCmd())
	cmd.AddCommand(migrateDownCmd())
	cmd.AddCommand(migrateStatusCmd())
	return cmd
}

func migrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSQLDB(cmd.Context(), func(ctx context.Context, db *sql.DB) error {
				applied, err := migrations.Up(ctx, db)
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
					return nil
				}
				for _, v := range applied {
					fmt.Fprintf(cmd.OutOrStdout(), "applied %05d\n", v)
				}
				return nil
			})
		},
	}
}

func migrateDownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSQLDB(cmd.Context(), func(ctx context.Context, db *sql.DB) error {
				p, err := migrations.NewProvider(db)
				if err != nil {
					return err
				}
				res, err := p.Down(ctx)
				if err != nil {
					return fmt.Errorf("migrate down: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rolled back %05d\n", res.Source.Version)
				return nil
			})
		},
	}
}

func migrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSQLDB(cmd.Context(), func(ctx context.Context, db *sql.DB) error {
				p, err := migrations.NewProvider(db)
				if err != nil {
					return err
				}
				statuses, err := p.Status(ctx)
				if err != nil {
					return fmt.Errorf("migrate status: %w", err)
				}

				t := table.NewWriter()
				t.SetOutputMirror(cmd.OutOrStdout())
				t.AppendHeader(table.Row{"Version", "File", "State", "Applied at"})
				for _, s := range statuses {
					applied := ""
					if !s.AppliedAt.IsZero() {
						applied = s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
					}
					t.AppendRow(table.Row{s.Source.Version, s.Source.Path, string(s.State), applied})
				}
				t.Render()
				return nil
			})
		},
	}
}

// withSQLDB opens a database/sql handle from DATABASE_URL for the duration of fn.
func withSQLDB(ctx context.Context, fn func(ctx context.Context, db *sql.DB) error) error {
	dsn, err := config.LoadDatabaseURL()
	if err != nil {
		return err
	}
	db, err := migrations.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, db)
}
