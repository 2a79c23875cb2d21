package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pkordes/shuttle-fleet/internal/domain"
	"github.com/pkordes/shuttle-fleet/internal/middleware"
)

func tokenCmd() *cobra.Command {
	var (
		tenant  string
		role    string
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with JWT_SECRET",
		Long: `token signs an HS256 bearer token for local development and smoke tests.
Production tokens come from the identity provider.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("JWT_SECRET")
			if secret == "" {
				return errors.New("required environment variables not set: JWT_SECRET")
			}
			tenantID, err := uuid.Parse(tenant)
			if err != nil {
				return fmt.Errorf("--tenant: %w", err)
			}
			r := domain.Role(role)
			if !r.Valid() {
				return fmt.Errorf("--role: unknown role %q", role)
			}

			tok, err := middleware.IssueToken([]byte(secret), subject, domain.Scope{TenantID: tenantID, Role: r}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleSupervisor), "role: driver, supervisor, planner or admin")
	cmd.Flags().StringVar(&subject, "sub", "fleetctl", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
