package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"microloan-ledger/internal/app"
	useruc "microloan-ledger/internal/usecase/user"
)

const envAdminPassword = "LEDGER_ADMIN_PASSWORD"

func newAdminCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account or promote an existing user",
		Long: `Create an admin account with a zero balance. An existing account with the
same username is promoted to admin and given the new password; its balance
is kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, err := adminPassword(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				u, created, err := a.Users.EnsureAdmin(ctx, username, password)
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (id %d)\n", u.Username, u.ID)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "promoted %s to admin, balance kept at %s\n", u.Username, u.Balance.StringFixed(2))
				}
				return nil
			})
		},
	}
	create.Flags().String("username", useruc.DefaultAdminUsername, "admin username")
	create.Flags().String("password", "", "admin password (or $"+envAdminPassword+")")

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Remove every admin and recreate the default one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := adminPassword(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				u, err := a.Users.ResetAdmins(ctx, password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reset admins; %s has balance %s\n", u.Username, u.Balance.StringFixed(2))
				return nil
			})
		},
	}
	reset.Flags().String("password", "", "new admin password (or $"+envAdminPassword+")")

	cmd.AddCommand(create, reset)
	return cmd
}

func adminPassword(cmd *cobra.Command) (string, error) {
	p, _ := cmd.Flags().GetString("password")
	if p == "" {
		p = os.Getenv(envAdminPassword)
	}
	if p == "" {
		return "", errors.New("password required: pass --password or set " + envAdminPassword)
	}
	return p, nil
}
