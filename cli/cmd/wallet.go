package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"medmarket/core/ledger"
	"medmarket/core/txlog"
)

func newWalletCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Show wallet status, balance and transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := o.client().Wallet(cmd.Context())
			if err != nil {
				return err
			}
			return o.render(cmd.OutOrStdout(), snap, func(w io.Writer) { printWallet(w, snap) })
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "connect",
		Short: "Connect the session wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := o.client().ConnectWallet(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wallet: %s\n", status)
			return nil
		},
	})
	return cmd
}

func printWallet(w io.Writer, snap ledger.Snapshot) {
	fmt.Fprintf(w, "Wallet: %s\n", snap.Status)
	fmt.Fprintf(w, "Balance: %s ETH ($%s)\n", snap.Balance.ETH, snap.Balance.USD)
	if snap.Error != "" {
		fmt.Fprintf(w, "Last error: %s\n", snap.Error)
	}
	if len(snap.Transactions) == 0 {
		return
	}
	fmt.Fprintln(w)
	printTransactions(w, snap.Transactions)
}

func printTransactions(w io.Writer, txs []txlog.Transaction) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATASET\tAMOUNT\tSTATUS\tDATE")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\t%s\n", tx.ID, tx.DatasetID, tx.Amount, tx.Currency, tx.Status, tx.Timestamp.Format("2006-01-02"))
	}
	tw.Flush()
}
