package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"microloan-ledger/internal/app"
	"microloan-ledger/internal/domain/identity"
	domainLoan "microloan-ledger/internal/domain/loan"
	loanuc "microloan-ledger/internal/usecase/loan"
	useruc "microloan-ledger/internal/usecase/user"
)

func newLoansCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loans",
		Short: "List and review loans",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List loans in request order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, _ := cmd.Flags().GetString("status")
			if status != "" && !domainLoan.Status(status).Valid() {
				return fmt.Errorf("unknown status %q", status)
			}
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				loans, err := a.Loans.ListLoans(ctx)
				if err != nil {
					return err
				}
				return printLoans(cmd.OutOrStdout(), a.Loans.Details(loans), domainLoan.Status(status))
			})
		},
	}
	list.Flags().String("status", "", "only loans in this status")

	approve := reviewCmd(open, "approve", "Approve a lender-funded loan", func(ctx context.Context, a *app.App, cmd *cobra.Command, id string) (*domainLoan.Loan, error) {
		actor, err := actingAdmin(ctx, a, cmd)
		if err != nil {
			return nil, err
		}
		return a.Approval.ApproveLoan(ctx, actor, id)
	})
	reject := reviewCmd(open, "reject", "Reject a loan, refunding its lender if already funded", func(ctx context.Context, a *app.App, cmd *cobra.Command, id string) (*domainLoan.Loan, error) {
		actor, err := actingAdmin(ctx, a, cmd)
		if err != nil {
			return nil, err
		}
		return a.Approval.RejectLoan(ctx, actor, id)
	})

	cmd.AddCommand(list, approve, reject)
	return cmd
}

type reviewFn func(ctx context.Context, a *app.App, cmd *cobra.Command, id string) (*domainLoan.Loan, error)

func reviewCmd(open Opener, verb, short string, fn reviewFn) *cobra.Command {
	c := &cobra.Command{
		Use:   verb + " LOAN_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				l, err := fn(ctx, a, cmd, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "loan %s is now %s\n", l.ID, l.Status)
				return nil
			})
		},
	}
	c.Flags().String("as", useruc.DefaultAdminUsername, "admin account to act as")
	return c
}

func actingAdmin(ctx context.Context, a *app.App, cmd *cobra.Command) (identity.Actor, error) {
	name, _ := cmd.Flags().GetString("as")
	return actorFor(ctx, a, name)
}

func printLoans(w io.Writer, loans []loanuc.LoanDetail, status domainLoan.Status) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBORROWER\tAMOUNT\tMONTHS\tSTATUS\tLENDER\tTOTAL\tMONTHLY\tAGE\tOVERDUE")
	for _, l := range loans {
		if status != "" && l.Status != status {
			continue
		}
		total := "-"
		if l.TotalRepayment.Valid {
			total = l.TotalRepayment.Decimal.StringFixed(2)
		}
		lender := l.Lender()
		if lender == "" {
			lender = "-"
		}
		monthly := "-"
		if l.MonthlyPayment.Valid {
			monthly = l.MonthlyPayment.Decimal.StringFixed(2)
		}
		overdue := ""
		if l.Overdue {
			overdue = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t%dd\t%s\n",
			l.ID, l.BorrowerUsername, l.Amount.StringFixed(2), l.DurationMonths, l.Status, lender, total,
			monthly, l.AgeDays, overdue)
	}
	return tw.Flush()
}
