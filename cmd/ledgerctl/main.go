// Command ledgerctl administers a ledger database directly: opening
// accounts, moving money, replaying deposits, reconciling and draining the
// event outbox.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"wallet-ledger/internal/bank"
	"wallet-ledger/internal/config"
	"wallet-ledger/internal/logging"
	"wallet-ledger/internal/models"
	"wallet-ledger/internal/notify"
	"wallet-ledger/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs once the root command has opened
// the database.
type app struct {
	dbPath   string
	bankIBAN string
	debug    bool

	stdin  io.Reader
	cfg    *config.Config
	logger *zap.Logger
	db     *storage.DB
	svc    *bank.Service
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	a := &app{stdin: stdin}
	defer a.close()

	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.Execute()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Administer the wallet ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open()
		},
	}

	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "Path to database file (default $DB_PATH or data/ledger.db)")
	root.PersistentFlags().StringVar(&a.bankIBAN, "bank-iban", "", "IBAN deposits must be addressed to (default $BANK_IBAN)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		a.openCmd(),
		a.balanceCmd(),
		a.historyCmd(),
		a.budgetCmd(),
		a.transferCmd(),
		a.depositCmd(),
		a.reconcileCmd(),
		a.dispatchCmd(),
	)
	return root
}

func (a *app) open() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	if a.bankIBAN != "" {
		cfg.BankIBAN = a.bankIBAN
	}
	a.cfg = cfg

	level := "warn"
	if a.debug {
		level = "debug"
	}
	a.logger, err = logging.New(level, false)
	if err != nil {
		return err
	}

	a.db, err = storage.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	a.svc = bank.NewService(a.db, cfg.BankIBAN, bank.WithLogger(a.logger))
	return nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func (a *app) openCmd() *cobra.Command {
	var na models.NewAccount
	var balance string

	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a new account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if balance != "" {
				amount, err := parseAmount(balance)
				if err != nil {
					return err
				}
				na.OpeningBalance = amount
			}

			acc, err := a.svc.OpenAccount(cmd.Context(), na)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account %d opened for %s (variable symbol %s)\n", acc.ID, acc.Email, acc.VariableSymbol)
			return nil
		},
	}

	cmd.Flags().StringVar(&na.Email, "email", "", "Owner email")
	cmd.Flags().StringVar(&na.OwnerName, "name", "", "Owner name")
	cmd.Flags().StringVar(&na.VariableSymbol, "vs", "", "Variable symbol for incoming payments")
	cmd.Flags().StringVar(&na.IBAN, "iban", "", "External IBAN for withdrawals")
	cmd.Flags().StringVar(&balance, "balance", "", "Opening balance")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("vs")
	return cmd
}

func (a *app) balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account-id>",
		Short: "Show balance, savings and budget of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			acc, err := a.svc.Account(cmd.Context(), id)
			if err != nil {
				return err
			}
			budget, err := a.svc.Budget(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Account:  %d (%s)\n", acc.ID, acc.Email)
			fmt.Fprintf(out, "Balance:  %s %s\n", acc.Balance.StringFixed(2), a.cfg.Currency)
			fmt.Fprintf(out, "Savings:  %s %s\n", acc.Savings.StringFixed(2), a.cfg.Currency)
			if budget.Unlimited {
				fmt.Fprintln(out, "Budget:   none")
			} else {
				fmt.Fprintf(out, "Budget:   %s of %s spent, %s left\n",
					budget.Spent.StringFixed(2), budget.Limit.StringFixed(2), budget.Remaining.StringFixed(2))
			}
			return nil
		},
	}
}

func (a *app) historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <account-id>",
		Short: "List ledger entries of an account, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			entries, err := a.svc.History(cmd.Context(), id, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tKIND\tCATEGORY\tAMOUNT\tCOUNTERPARTY")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					e.CreatedAt.Format(time.RFC3339), e.Kind, e.Category,
					bank.Effect(e, id).StringFixed(2), e.Counterparty)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries (0 for all)")
	return cmd
}

func (a *app) budgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "budget <account-id> <limit>",
		Short: "Set the monthly spending limit (0 removes it)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			limit, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			acc, err := a.svc.SetBudgetLimit(cmd.Context(), id, limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Budget of account %d set to %s %s\n", acc.ID, acc.BudgetLimit.StringFixed(2), a.cfg.Currency)
			return nil
		},
	}
}

func (a *app) transferCmd() *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "transfer <from-account-id> <recipient> <amount>",
		Short: "Transfer money to an account by email or variable symbol",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseID(args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[2])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			transfer := a.svc.Transfer
			if confirm {
				transfer = a.svc.ConfirmTransfer
			}

			tr, err := transfer(ctx, from, args[1], amount)
			var over *bank.BudgetExceededError
			if errors.As(err, &over) {
				ok, perr := a.confirmOverBudget(cmd.OutOrStdout(), over)
				if perr != nil {
					return perr
				}
				if !ok {
					return fmt.Errorf("transfer cancelled: %w", err)
				}
				tr, err = a.svc.ConfirmTransfer(ctx, from, args[1], amount)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Transferred %s %s (transaction %s)\n", tr.Amount.StringFixed(2), a.cfg.Currency, tr.ID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "Proceed even when the amount is over budget")
	return cmd
}

// confirmOverBudget asks whether to go over budget. Non-interactive input on
// a real file (a pipe or redirect) is never read; the caller must pass
// --confirm instead.
func (a *app) confirmOverBudget(out io.Writer, over *bank.BudgetExceededError) (bool, error) {
	if f, ok := a.stdin.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return false, fmt.Errorf("%w; re-run with --confirm to proceed", over)
	}

	fmt.Fprintf(out, "Amount %s is over the remaining budget of %s (limit %s). Proceed? [y/N] ",
		over.Amount.StringFixed(2), over.Remaining.StringFixed(2), over.Limit.StringFixed(2))

	scanner := bufio.NewScanner(a.stdin)
	if !scanner.Scan() {
		fmt.Fprintln(out)
		return false, scanner.Err()
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes", nil
}

func (a *app) depositCmd() *cobra.Command {
	var n models.PaymentNotification
	var amount string

	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Apply an incoming bank payment by variable symbol",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if n.Amount, err = parseAmount(amount); err != nil {
				return err
			}
			if n.ReceiverAccount == "" {
				n.ReceiverAccount = a.cfg.BankIBAN
			}
			if n.Timestamp.IsZero() && n.TransactionID == "" {
				n.Timestamp = time.Now().UTC()
			}

			res, err := a.svc.ApplyDeposit(cmd.Context(), n)
			if err != nil {
				return err
			}
			if res.Duplicate {
				fmt.Fprintf(cmd.OutOrStdout(), "Duplicate notification ignored (key %s)\n", res.Key)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deposited %s %s to account %d (transaction %s)\n",
				res.Transaction.Amount.StringFixed(2), a.cfg.Currency, res.Transaction.ReceiverID, res.Transaction.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&n.VariableSymbol, "vs", "", "Variable symbol of the receiving account")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount received")
	cmd.Flags().StringVar(&n.SenderAccount, "sender", "", "Sender account")
	cmd.Flags().StringVar(&n.ReceiverAccount, "receiver", "", "Receiver IBAN (default the bank IBAN)")
	cmd.Flags().StringVar(&n.TransactionID, "txid", "", "Bank transaction id used for deduplication")
	_ = cmd.MarkFlagRequired("vs")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (a *app) reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile [account-id]",
		Short: "Check balances against the ledger (all accounts when no id is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var ids []int64
			if len(args) == 1 {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				ids = append(ids, id)
			} else {
				accounts, err := a.svc.Accounts(ctx)
				if err != nil {
					return err
				}
				for _, acc := range accounts {
					ids = append(ids, acc.ID)
				}
			}

			return reconcile(ctx, a.svc, ids, cmd.OutOrStdout())
		},
	}
}

func reconcile(ctx context.Context, svc *bank.Service, ids []int64, out io.Writer) error {
	unbalanced := 0
	for _, id := range ids {
		rec, err := svc.Reconcile(ctx, id)
		if err != nil {
			return err
		}
		state := "ok"
		if !rec.Balanced {
			state = "MISMATCH"
			unbalanced++
		}
		fmt.Fprintf(out, "account %d: %s (balance %s, savings %s, ledger %s, %d entries)\n",
			rec.AccountID, state, rec.Balance.StringFixed(2), rec.Savings.StringFixed(2), rec.Ledger.StringFixed(2), rec.Entries)
	}
	if unbalanced > 0 {
		return fmt.Errorf("%d of %d accounts out of balance", unbalanced, len(ids))
	}
	return nil
}

func (a *app) dispatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch",
		Short: "Publish pending outbox events once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			publisher, closePublisher := notify.NewPublisher(a.cfg.Notify, a.logger)
			defer closePublisher()

			d := notify.NewDispatcher(a.db, publisher, notify.WithLogger(a.logger))
			n := d.DispatchOnce(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Published %d events\n", n)
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid account id %q", s)
	}
	return id, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}
