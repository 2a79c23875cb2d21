package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pkordes/shuttle-fleet/internal/config"
	"github.com/pkordes/shuttle-fleet/internal/domain"
	"github.com/pkordes/shuttle-fleet/internal/repo"
	"github.com/pkordes/shuttle-fleet/internal/service"
)

func scanCmd() *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run the delay scan once for one tenant or all of them",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var tenantID uuid.UUID
			if tenant != "" {
				id, err := uuid.Parse(tenant)
				if err != nil {
					return fmt.Errorf("--tenant: %w", err)
				}
				tenantID = id
			}

			cfg, err := config.LoadScan()
			if err != nil {
				return err
			}
			pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer pool.Close()

			log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
			engine := service.NewAnomalyEngine(
				repo.NewTenantRepo(pool), repo.NewServiceRepo(pool), repo.NewAlertRepo(pool),
				service.AnomalyConfig{
					ExpectedDurationMinutes: cfg.ExpectedDurationMinutes,
					DefaultToleranceMinutes: cfg.DefaultDelayToleranceMinutes,
					ScanConcurrency:         cfg.ScanConcurrency,
				},
				nil, log, time.Now,
			)

			var results map[uuid.UUID]domain.ScanResult
			if tenantID == uuid.Nil {
				results, err = engine.ScanAll(ctx)
			} else {
				var res domain.ScanResult
				res, err = engine.Scan(ctx, domain.Scope{TenantID: tenantID, Role: domain.RoleAdmin})
				results = map[uuid.UUID]domain.ScanResult{tenantID: res}
			}
			if err != nil {
				return err
			}

			asJSON, _ := cmd.Flags().GetBool("json")
			return renderScan(cmd.OutOrStdout(), results, asJSON)
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (default: every tenant)")
	return cmd
}

type scanRow struct {
	TenantID uuid.UUID `json:"tenant_id"`
	domain.ScanResult
}

// renderScan prints one row per tenant, ordered by tenant id.
func renderScan(w io.Writer, results map[uuid.UUID]domain.ScanResult, asJSON bool) error {
	rows := make([]scanRow, 0, len(results))
	for id, res := range results {
		rows = append(rows, scanRow{TenantID: id, ScanResult: res})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].TenantID.String() < rows[j].TenantID.String() })

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Tenant", "Analyzed", "Alerts created"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.TenantID.String(), r.Analyzed, r.Created})
	}
	t.Render()
	return nil
}
