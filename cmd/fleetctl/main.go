// Package main is fleetctl, the operator CLI for the shuttle fleet core:
// schema migrations, one-off anomaly scans and development tokens.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fleetctl",
		Short: "Shuttle fleet operator CLI",
		Long: `fleetctl operates a shuttle fleet deployment.
It reads the API server's environment variables: DATABASE_URL and the delay
settings for migrate and scan, JWT_SECRET for token.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Bool("json", false, "output JSON")

	root.AddCommand(migrateCmd())
	root.AddCommand(scanCmd())
	root.AddCommand(tokenCmd())
	return root
}
