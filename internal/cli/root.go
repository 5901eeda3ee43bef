// Package cli implements escrowctl, the operator tool for inspecting and
// settling ledger escrows without going through the HTTP API.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/srgjo27/escrow_booking/internal/adapter/ledger/xrpl"
	"github.com/srgjo27/escrow_booking/internal/core/domain"
	"github.com/srgjo27/escrow_booking/internal/core/services"
	"github.com/srgjo27/escrow_booking/internal/platform/clock"
	"github.com/srgjo27/escrow_booking/internal/platform/config"
)

type Escrows interface {
	EscrowStatus(ctx context.Context, owner, sequence string) (*services.EscrowStatusResult, error)
	ListEscrows(ctx context.Context, owner string) ([]domain.EscrowRecord, error)
	FinishEscrow(ctx context.Context, in services.EscrowPointerInput) (*services.EscrowTxResult, error)
	CancelEscrow(ctx context.Context, in services.EscrowPointerInput) (*services.EscrowTxResult, error)
}

// Factory builds the escrow service for a command run. The returned func
// releases its connections.
type Factory func(cfg *config.Config, logger *slog.Logger) (Escrows, func(), error)

type app struct {
	factory  Factory
	cfgFile  string
	endpoint string
	verbose  bool

	escrows Escrows
	closeFn func()
}

// LedgerFactory connects to the configured ledger node.
func LedgerFactory(cfg *config.Config, logger *slog.Logger) (Escrows, func(), error) {
	client := xrpl.NewClient(xrpl.Config{
		URL:            cfg.Ledger.RPCURL,
		RequestTimeout: cfg.Ledger.RequestTimeout,
		PollInterval:   cfg.Ledger.PollInterval,
	}, logger)

	svc := services.NewEscrowService(client, xrpl.NewNodeSigner(client), nil, clock.NewSystem(), services.EscrowConfig{
		Endpoint:           cfg.Ledger.RPCURL,
		OperatorCredential: cfg.Ledger.OperatorSeed,
		MinCancelBuffer:    cfg.Escrow.MinCancelBuffer,
		ExplorerBaseURL:    cfg.Ledger.ExplorerURL,
	}, logger)
	if err := svc.EnsureConfigured(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return svc, func() { _ = client.Close() }, nil
}

func NewRootCommand(factory Factory) *cobra.Command {
	a := &app{factory: factory}

	root := &cobra.Command{
		Use:   "escrowctl",
		Short: "Inspect and settle booking deposit escrows",
		Long: `escrowctl talks to the ledger node configured for the booking service
and reports or settles the deposit escrows it created.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVar(&a.endpoint, "rpc", "", "ledger websocket endpoint, overrides XRPL_RPC")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log ledger traffic to stderr")

	root.AddCommand(
		a.statusCommand(),
		a.listCommand(),
		a.releaseCommand(),
		a.refundCommand(),
	)
	for _, cmd := range root.Commands() {
		if cmd.RunE != nil {
			cmd.RunE = a.closing(cmd.RunE)
		}
	}
	return root
}

// closing releases the factory's connections once run returns, error or not.
func (a *app) closing(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer a.close()
		return run(cmd, args)
	}
}

func (a *app) close() {
	if a.closeFn != nil {
		a.closeFn()
		a.closeFn = nil
	}
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.Options{File: a.cfgFile, EnvFiles: []string{".env"}})
	if err != nil {
		return err
	}
	if a.endpoint != "" {
		cfg.Ledger.RPCURL = a.endpoint
	}

	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	escrows, closeFn, err := a.factory(cfg, logger)
	if err != nil {
		return err
	}
	a.escrows = escrows
	a.closeFn = closeFn
	return nil
}

func (a *app) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <owner> <offer-sequence>",
		Short: "Show whether an escrow is still held on the ledger",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.escrows.EscrowStatus(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Escrow %s: %s\n", res.Pointer, res.Status)
			if res.BookingID != "" {
				fmt.Fprintf(out, "Booking: %s\n", res.BookingID)
			}
			if res.Escrow != nil {
				printRecord(out, *res.Escrow)
			}
			return nil
		},
	}
}

func (a *app) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <owner>",
		Short: "List the escrows an account owns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.escrows.ListEscrows(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintf(out, "No escrows owned by %s\n", args[0])
				return nil
			}

			fmt.Fprintf(out, "Escrows owned by %s: %d\n\n", args[0], len(records))
			for i, rec := range records {
				fmt.Fprintf(out, "[%d] %s\n", i+1, rec.Index)
				printRecord(out, rec)
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

func (a *app) releaseCommand() *cobra.Command {
	var seed, fulfillment, condition string

	cmd := &cobra.Command{
		Use:   "release <owner> <offer-sequence>",
		Short: "Finish an escrow and pay its destination",
		Long: `Finish an escrow. The transaction is signed with --seed, or with
ESCROW_OPERATOR_SEED when no seed is given.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.escrows.FinishEscrow(cmd.Context(), services.EscrowPointerInput{
				Credential:    seed,
				Owner:         args[0],
				OfferSequence: args[1],
				Fulfillment:   fulfillment,
				Condition:     condition,
			})
			if err != nil {
				return err
			}
			printTx(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVar(&seed, "seed", "", "finisher wallet seed")
	cmd.Flags().StringVar(&fulfillment, "fulfillment", "", "hex crypto-condition fulfillment")
	cmd.Flags().StringVar(&condition, "condition", "", "hex crypto-condition, required with --fulfillment")
	return cmd
}

func (a *app) refundCommand() *cobra.Command {
	var seed string

	cmd := &cobra.Command{
		Use:   "refund <owner> <offer-sequence>",
		Short: "Cancel an expired escrow and return the deposit to its owner",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.escrows.CancelEscrow(cmd.Context(), services.EscrowPointerInput{
				Credential:    seed,
				Owner:         args[0],
				OfferSequence: args[1],
			})
			if err != nil {
				return err
			}
			printTx(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVar(&seed, "seed", "", "operator wallet seed, defaults to ESCROW_OPERATOR_SEED")
	return cmd
}

func printRecord(w io.Writer, rec domain.EscrowRecord) {
	fmt.Fprintf(w, "    Destination: %s\n", rec.Destination)
	fmt.Fprintf(w, "    Amount: %s\n", rec.Amount)
	if rec.FinishAfter != nil {
		fmt.Fprintf(w, "    Finish after: %s\n", rec.FinishAfter.Format(time.RFC3339))
	}
	if rec.CancelAfter != nil {
		fmt.Fprintf(w, "    Cancel after: %s\n", rec.CancelAfter.Format(time.RFC3339))
	}
	if rec.Condition != "" {
		fmt.Fprintf(w, "    Condition: %s\n", rec.Condition)
	}
}

func printTx(w io.Writer, res *services.EscrowTxResult) {
	fmt.Fprintf(w, "Escrow %s: %s %s\n", res.Pointer, res.Result.TransactionType, res.Result.ResultCode)
	fmt.Fprintf(w, "Hash: %s\n", res.Result.Hash)
	if res.ExplorerURL != "" {
		fmt.Fprintf(w, "Explorer: %s\n", res.ExplorerURL)
	}
}

// Execute runs escrowctl against the real ledger.
func Execute() {
	if err := NewRootCommand(LedgerFactory).Execute(); err != nil {
		os.Exit(1)
	}
}
