package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newStatusCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Query node status",
		Example: `  medmarket status
  medmarket status --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := o.client().GetStatus(cmd.Context())
			if err != nil {
				return err
			}
			return o.render(cmd.OutOrStdout(), status, func(w io.Writer) {
				fmt.Fprintf(w, "Status: %s\nVersion: %s (api %s)\nUptime: %ds\nDatasets: %d\nWallet: %s\n",
					status.Status, status.Version, status.APIVersion, status.Uptime, status.DatasetCount, status.WalletStatus)
			})
		},
	}
}

func newHealthCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Query node health summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			health, err := o.client().GetHealthMetrics(cmd.Context())
			if err != nil {
				return err
			}
			return o.render(cmd.OutOrStdout(), health, func(w io.Writer) {
				m := health.Metrics
				fmt.Fprintf(w, "Node Health: %s\n", health.Status)
				fmt.Fprintf(w, "Uptime: %ds\n", m.UptimeSeconds)
				fmt.Fprintf(w, "CPU Load: %.2f%%\n", m.CPULoadPercent)
				fmt.Fprintf(w, "Memory Usage: %.2f MB\n", m.MemoryMB)
				fmt.Fprintf(w, "System Memory Used: %.2f%%\n", m.SystemMemoryUsed)
				fmt.Fprintf(w, "Disk Free: %.2f MB\n", m.DiskFreeMB)
				fmt.Fprintf(w, "Store Reachable: %v\n", m.StoreReachable)
				fmt.Fprintf(w, "Session Active: %v\n", m.SessionActive)
				fmt.Fprintf(w, "Wallet: %s\n", m.WalletStatus)
				fmt.Fprintf(w, "Datasets: %d\n", m.DatasetCount)
				fmt.Fprintf(w, "Transactions: %d\n", m.TransactionCount)
			})
		},
	}
}

func newLivenessCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "liveness",
		Short: "Check node liveness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			alive, err := o.client().GetLiveness(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Liveness: %v\n", alive)
			return nil
		},
	}
}

func newReadinessCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "readiness",
		Short: "Check node readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ready, err := o.client().GetReadiness(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Readiness: %v\n", ready)
			return nil
		},
	}
}
