package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"medmarket/cli/api"
	"medmarket/core/catalog"
)

func newDatasetsCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "datasets",
		Aliases: []string{"ds"},
		Short:   "Browse, buy and publish datasets",
	}
	cmd.AddCommand(
		newSearchCmd(o),
		newShowCmd(o),
		newMineCmd(o),
		newHistoryCmd(o),
		newBuyCmd(o),
		newVerifyCmd(o),
		newPublishCmd(o),
	)
	return cmd
}

func newSearchCmd(o *options) *cobra.Command {
	var q catalog.Query
	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Search the marketplace",
		Example: `  medmarket datasets search diabetes
  medmarket datasets search --type "Wearable Data" --min-rating 4.5`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				q.Text = args[0]
			}
			res, err := o.client().SearchDatasets(cmd.Context(), q)
			if err != nil {
				return err
			}
			return o.render(cmd.OutOrStdout(), res, func(w io.Writer) { printSearch(w, res) })
		},
	}
	cmd.Flags().StringSliceVar(&q.Types, "type", nil, "dataset type (repeatable)")
	cmd.Flags().Float64Var(&q.MaxPrice, "max-price", 0, "maximum price in ETH")
	cmd.Flags().Float64Var(&q.MinRating, "min-rating", 0, "minimum rating")
	cmd.Flags().BoolVar(&q.VerifiedOnly, "verified", false, "only verified datasets")
	cmd.Flags().IntVar(&q.Page, "page", 1, "result page")
	return cmd
}

func printSearch(w io.Writer, res api.SearchResult) {
	if res.Total == 0 {
		fmt.Fprintln(w, "No datasets found")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tPRICE\tRATING\tVERIFIED")
	for _, d := range res.Datasets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%g ETH\t%.1f\t%v\n", d.ID, d.Name, d.Type, d.Price, d.Rating, d.Verified)
	}
	tw.Flush()
	fmt.Fprintf(w, "\nPage %d of %d (%d datasets)\n", res.Page.Page, res.TotalPages, res.Total)
}

func newShowCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show dataset details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := o.client().Dataset(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return o.render(cmd.OutOrStdout(), d, func(w io.Writer) {
				fmt.Fprintf(w, "%s\n%s\n\n", d.Name, d.Description)
				fmt.Fprintf(w, "Type: %s\nSize: %s\nSamples: %d\nPrice: %g ETH\n", d.Type, d.Size, d.Samples, d.Price)
				fmt.Fprintf(w, "Rating: %.1f (%d reviews)\nPurchases: %d\nVerified: %v\n", d.Rating, d.Reviews, d.PurchaseCount, d.Verified)
				fmt.Fprintf(w, "Seller: %s\nData hash: %s\n", d.Seller, d.DataHash)
				if len(d.Tags) > 0 {
					fmt.Fprintf(w, "Tags: %s\n", strings.Join(d.Tags, ", "))
				}
				if len(d.DataPoints) > 0 {
					fmt.Fprintf(w, "Data points: %s\n", strings.Join(d.DataPoints, ", "))
				}
			})
		},
	}
}

func newBuyCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "buy <id>",
		Short: "Purchase a dataset with the session wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := o.client().Purchase(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return o.render(cmd.OutOrStdout(), res, func(w io.Writer) {
				fmt.Fprintln(w, res.Message)
				if tx := res.Transaction; tx != nil {
					fmt.Fprintf(w, "Transaction: %s\nHash: %s\nAmount: %s %s\n", tx.ID, tx.Hash, tx.Amount, tx.Currency)
				}
			})
		},
	}
}

func newVerifyCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <id>",
		Short: "Verify a dataset's integrity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := o.client().Verify(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return o.render(cmd.OutOrStdout(), res, func(w io.Writer) {
				fmt.Fprintln(w, res.Message)
				if res.Timestamp != nil {
					fmt.Fprintf(w, "Verified at: %s\n", res.Timestamp.Format("2006-01-02 15:04:05"))
				}
			})
		},
	}
}

func newPublishCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <listing.json>",
		Short: "Publish a dataset listing",
		Long:  "Publish a dataset listing read from a JSON file, or from stdin when the file is \"-\".",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw []byte
			var err error
			if args[0] == "-" {
				raw, err = io.ReadAll(cmd.InOrStdin())
			} else {
				raw, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}
			if !json.Valid(raw) {
				return fmt.Errorf("%s is not valid JSON", args[0])
			}
			d, err := o.client().Publish(cmd.Context(), raw)
			if err != nil {
				return err
			}
			return o.render(cmd.OutOrStdout(), d, func(w io.Writer) {
				fmt.Fprintf(w, "Published %s (%s, %s)\n", d.ID, d.Name, d.Size)
			})
		},
	}
}

func newMineCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List your published datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := o.client().MyDatasets(cmd.Context())
			if err != nil {
				return err
			}
			return o.render(cmd.OutOrStdout(), ds, func(w io.Writer) {
				printSearch(w, api.SearchResult{Page: catalog.Page{Datasets: ds, Page: 1, TotalPages: 1, Total: len(ds)}})
			})
		},
	}
}

func newHistoryCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show the purchase history of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txs, err := o.client().DatasetTransactions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return o.render(cmd.OutOrStdout(), txs, func(w io.Writer) {
				if len(txs) == 0 {
					fmt.Fprintln(w, "No purchases yet")
					return
				}
				printTransactions(w, txs)
			})
		},
	}
}
