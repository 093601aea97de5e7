package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/spf13/cobra"

	"github.com/bitfsorg/potlottery-go/config"
	"github.com/bitfsorg/potlottery-go/lottery"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "potlottery",
		Short:         "Pooled-stake lottery operator tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("datadir", config.DefaultDataDir(), "data directory")
	root.PersistentFlags().String("config", "", "config file (default <datadir>/"+config.FileName+")")
	root.PersistentFlags().String("loglevel", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().String("network", "mainnet", "mainnet, testnet or regtest")
	root.PersistentFlags().String("rpc-url", "", "node JSON-RPC url")

	root.AddCommand(
		InitCmd(),
		EnterCmd(),
		PlayersCmd(),
		BalanceCmd(),
		IDCmd(),
		HistoryCmd(),
		RequestCmd(),
		DeliverCmd(),
		PickCmd(),
		SettleCmd(),
		StatusCmd(),
		WatchCmd(),
		PayoutStatusCmd(),
	)
	return root
}

// withApp opens the app for the duration of fn.
func withApp(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, args, a)
	}
}

func addCallerFlag(cmd *cobra.Command) {
	cmd.Flags().String("caller", "", "acting address (default: configured admin)")
}

// InitCmd writes a config file with fresh oracle and custody keys.
func InitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a new configuration with generated keys",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}
	cmd.Flags().String("admin", "", "administrator address")
	cmd.MarkFlagRequired("admin")
	cmd.Flags().String("entry-fee", "", "entry fee in BSV (default 0.01)")
	cmd.Flags().String("store", "", "bolt or redis")
	cmd.Flags().Bool("no-custody", false, "do not generate a custody key (payouts are not sent on chain)")
	cmd.Flags().Bool("force", false, "overwrite an existing config file")
	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	dataDir, _ := cmd.Flags().GetString("datadir")
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.ConfigPath(dataDir)
	}
	if force, _ := cmd.Flags().GetBool("force"); !force {
		if _, err := config.LoadConfig(path); !errors.Is(err, config.ErrConfigNotFound) {
			return fmt.Errorf("%s already exists; use --force to overwrite", path)
		}
	}

	cfg := config.DefaultConfig()
	cfg.DataDir = dataDir
	cfg.Admin, _ = cmd.Flags().GetString("admin")
	if v, _ := cmd.Flags().GetString("entry-fee"); v != "" {
		cfg.EntryFee = v
	}
	if v, _ := cmd.Flags().GetString("store"); v != "" {
		cfg.Store = v
	}
	if v, _ := cmd.Flags().GetString("network"); cmd.Flags().Changed("network") {
		cfg.Network = v
	}
	if v, _ := cmd.Flags().GetString("rpc-url"); v != "" {
		cfg.RPCURL = v
	}

	oracleKey, err := ec.NewPrivateKey()
	if err != nil {
		return err
	}
	cfg.OracleKey = hex.EncodeToString(oracleKey.Serialize())
	cfg.OraclePubKey = hex.EncodeToString(oracleKey.PubKey().Compressed())

	var custodyAddr string
	if noCustody, _ := cmd.Flags().GetBool("no-custody"); !noCustody {
		custody, err := ec.NewPrivateKey()
		if err != nil {
			return err
		}
		cfg.CustodyKey = hex.EncodeToString(custody.Serialize())
		addr, err := script.NewAddressFromPublicKey(custody.PubKey(), cfg.Mainnet())
		if err != nil {
			return err
		}
		custodyAddr = addr.AddressString
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}
	if err := config.SaveConfig(path, cfg); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "config:        %s\n", path)
	fmt.Fprintf(out, "admin:         %s\n", cfg.Admin)
	fmt.Fprintf(out, "entry fee:     %s BSV\n", cfg.EntryFee)
	fmt.Fprintf(out, "oracle pubkey: %s\n", cfg.OraclePubKey)
	if custodyAddr != "" {
		fmt.Fprintf(out, "custody:       %s\n", custodyAddr)
	}
	return nil
}

// EnterCmd records one entry.
func EnterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enter <address>",
		Short: "Enter the open round",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			stake := a.ledger.Params().EntryFee
			if v, _ := cmd.Flags().GetString("stake"); v != "" {
				var err error
				if stake, err = config.ParseBSV(v); err != nil {
					return err
				}
			}
			if err := a.ledger.Enter(args[0], stake); err != nil {
				return err
			}
			st := a.ledger.Status()
			fmt.Fprintf(cmd.OutOrStdout(), "entered round %d: %d entries, pot %s BSV\n",
				st.RoundID, st.Entrants, config.FormatBSV(st.Pot))
			return nil
		}),
	}
	cmd.Flags().String("stake", "", "stake in BSV (default: the entry fee)")
	return cmd
}

// PlayersCmd lists the current round's entries.
func PlayersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "players",
		Short: "List entries in the current round",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			for i, p := range a.ledger.Players() {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", i, p)
			}
			return nil
		}),
	}
}

// BalanceCmd shows the funds held in custody.
func BalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the custodial balance",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s BSV\n", config.FormatBSV(a.ledger.Balance()))
			return nil
		}),
	}
}

// IDCmd shows the current round id.
func IDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "id",
		Short: "Show the current round id",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			fmt.Fprintln(cmd.OutOrStdout(), a.ledger.LotteryID())
			return nil
		}),
	}
}

// HistoryCmd shows resolved rounds, newest first, or a single round.
func HistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history [round]",
		Short: "Show resolved rounds",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				id, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("round id: %w", err)
				}
				rec, err := a.ledger.Lottery(id)
				if err != nil {
					return err
				}
				printRecord(out, rec)
				return nil
			}
			recs, err := a.ledger.History()
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Fprintln(out, "no resolved rounds")
			}
			for i := len(recs) - 1; i >= 0; i-- {
				printRecord(out, recs[i])
			}
			return nil
		}),
	}
}

func printRecord(w io.Writer, rec *lottery.Record) {
	fmt.Fprintf(w, "round %d\twinner %s\tpayout %s BSV\tentries %d\ttx %s\t%s\n",
		rec.RoundID, rec.Winner, config.FormatBSV(rec.Payout), rec.Entrants,
		rec.PayoutTxID, rec.ResolvedAt.UTC().Format(time.RFC3339))
}

// RequestCmd closes the round and waits for the oracle's delivery.
func RequestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Close the round and request randomness",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			req, err := a.ledger.RequestRandomness(cmd.Context(), a.caller(cmd))
			if err != nil {
				return err
			}
			a.signer.Wait()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "round %d: randomness requested (%s)\n", req.RoundID, req.ID)
			if a.ledger.Status().Fulfilled {
				fmt.Fprintln(out, "randomness delivered; run `potlottery pick`")
			} else {
				fmt.Fprintln(out, "randomness not delivered yet; see `potlottery status`")
			}
			return nil
		}),
	}
	addCallerFlag(cmd)
	return cmd
}

// DeliverCmd re-sends the signing oracle's response for the pending request.
func DeliverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deliver",
		Short: "Deliver the oracle response for the pending request",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			req, ok := a.ledger.Pending()
			if !ok {
				return fmt.Errorf("%w: no randomness request pending", lottery.ErrInvalidState)
			}
			if err := a.signer.Deliver(req); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "round %d: randomness delivered (%s)\n", req.RoundID, req.ID)
			return nil
		}),
	}
}

// PickCmd resolves the round and pays the winner.
func PickCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pick",
		Short: "Pick the winner and pay out the pot",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			rec, err := a.ledger.PickWinner(cmd.Context(), a.caller(cmd))
			if rec != nil {
				printRecord(cmd.OutOrStdout(), rec)
			}
			return err
		}),
	}
	addCallerFlag(cmd)
	return cmd
}

// SettleCmd resolves a round whose payout outcome was never recorded.
func SettleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settle [txid]",
		Short: "Record a payout found on chain, or pay again if none was sent",
		Long: "Use after `pick` reports that the payout outcome is unknown. Check the\n" +
			"chain for a payment to the winner first. Pass its txid to record it;\n" +
			"pass --resend without a txid only if nothing was paid.",
		Args: cobra.MaximumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			var txid string
			if len(args) == 1 {
				txid = args[0]
			}
			resend, _ := cmd.Flags().GetBool("resend")
			if (txid == "") != resend {
				return errors.New("give either a txid or --resend")
			}
			rec, err := a.ledger.SettlePayout(cmd.Context(), a.caller(cmd), txid)
			if rec != nil {
				printRecord(cmd.OutOrStdout(), rec)
			}
			return err
		}),
	}
	addCallerFlag(cmd)
	cmd.Flags().Bool("resend", false, "transfer the pot again")
	return cmd
}

// StatusCmd shows the current round and any pending request.
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current round",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			after, err := a.cfg.StallDuration()
			if err != nil {
				return err
			}
			st := a.ledger.Status()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "round:    %d\n", st.RoundID)
			fmt.Fprintf(out, "phase:    %s\n", st.Phase)
			fmt.Fprintf(out, "entries:  %d\n", st.Entrants)
			fmt.Fprintf(out, "pot:      %s BSV\n", config.FormatBSV(st.Pot))
			fmt.Fprintf(out, "balance:  %s BSV\n", config.FormatBSV(st.Balance))
			if st.RequestID != "" {
				fmt.Fprintf(out, "request:  %s at %s\n", st.RequestID, st.RequestedAt.UTC().Format(time.RFC3339))
				fmt.Fprintf(out, "ready:    %t\n", st.Fulfilled)
				fmt.Fprintf(out, "stalled:  %t\n", a.ledger.Stalled(after))
			}
			if st.Phase == lottery.PhasePaying {
				fmt.Fprintf(out, "winner:   %s\n", st.Winner)
				if st.PayoutTxID != "" {
					fmt.Fprintf(out, "payout:   %s (not yet recorded; run `potlottery pick`)\n", st.PayoutTxID)
				} else {
					fmt.Fprintln(out, "payout:   outcome unknown; see `potlottery settle`")
				}
			}
			return nil
		}),
	}
}

// WatchCmd logs stalled oracle requests until interrupted.
func WatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Report rounds whose oracle request has stalled",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			after, err := a.cfg.StallDuration()
			if err != nil {
				return err
			}
			if after == 0 {
				return errors.New("stall_after is disabled")
			}
			interval, _ := cmd.Flags().GetDuration("interval")
			if interval <= 0 {
				return fmt.Errorf("--interval must be positive, got %s", interval)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			a.ledger.WatchStalled(ctx, interval, after, func(st lottery.Status) {
				fmt.Fprintf(cmd.OutOrStdout(), "round %d stalled: request %s since %s\n",
					st.RoundID, st.RequestID, st.RequestedAt.UTC().Format(time.RFC3339))
			})
			return nil
		}),
	}
	cmd.Flags().Duration("interval", time.Minute, "check interval")
	return cmd
}

// PayoutStatusCmd shows the confirmation status of a round's payout.
func PayoutStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "payout-status <round>",
		Short: "Show the on-chain status of a round's payout",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if a.chain == nil {
				return errors.New("no custody key configured; payouts were not sent on chain")
			}
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("round id: %w", err)
			}
			rec, err := a.ledger.Lottery(id)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			st, err := a.chain.Status(ctx, rec.PayoutTxID)
			if err != nil {
				return err
			}
			tip, err := a.chain.TipHeight(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tx:            %s\n", rec.PayoutTxID)
			fmt.Fprintf(out, "confirmations: %d\n", st.Confirmations)
			fmt.Fprintf(out, "tip height:    %d\n", tip)
			if st.Confirmed {
				fmt.Fprintf(out, "block:         %s (%d)\n", st.BlockHash, st.BlockHeight)
			}
			return nil
		}),
	}
}
