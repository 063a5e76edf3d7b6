// Package cli is the operator command line: admin bootstrap and loan review
// without going through HTTP.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"microloan-ledger/internal/app"
	"microloan-ledger/internal/config"
	"microloan-ledger/internal/domain/identity"
)

// Opener builds the App a command runs against.
type Opener func(ctx context.Context, configPath string) (*app.App, error)

// OpenFromConfig loads the TOML file (if any) plus environment and opens the store.
func OpenFromConfig(ctx context.Context, configPath string) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}

func NewRootCmd(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operate the microloan ledger",
		Long: `Operate the microloan ledger: admin bootstrap, loan review and stats.

With the json store driver, writers are serialised within one process only.
Do not run write commands (admin create/reset, loans approve/reject) against
the data dir of a running API; stop the API first or use the sqlite or mysql
driver, where every write is a database transaction.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", os.Getenv("LEDGER_CONFIG"), "TOML config file (env overrides it)")

	root.AddCommand(newAdminCmd(open), newLoansCmd(open), newStatsCmd(open))
	return root
}

// Execute runs ledgerctl against the configured store.
func Execute() error {
	return NewRootCmd(OpenFromConfig).Execute()
}

// withApp opens the ledger for one command and closes it afterwards, which
// also waits for queued notifications.
func withApp(cmd *cobra.Command, open Opener, fn func(ctx context.Context, a *app.App) error) error {
	path, _ := cmd.Flags().GetString("config")
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := open(ctx, path)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	runErr := fn(ctx, a)
	if err := a.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// actorFor loads the named account as the acting principal.
func actorFor(ctx context.Context, a *app.App, username string) (identity.Actor, error) {
	u, err := a.Users.Get(ctx, username)
	if err != nil {
		return identity.Actor{}, fmt.Errorf("acting user %q: %w", username, err)
	}
	return identity.Actor{Username: u.Username, Role: u.Role}, nil
}
