// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atp-router/routerd/router"
)

func registryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect and reload the model registry",
	}
	cmd.AddCommand(registryReloadCmd())
	return cmd
}

func registryReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload <path>",
		Short: "Reload the model registry file and report the models it contains",
		Long: `reload reads and parses the model registry JSON file at <path> and lists
the models it contains. It runs in its own process and does not change the
registry of a running routerd serve. No manifest hash is computed or
checked.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := router.LoadRegistry(args[0])
			if err != nil {
				return fmt.Errorf("registry reload failed: %w", err)
			}
			models := reg.All()
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d models\n", len(models))
			for _, m := range models {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-24s cluster=%-12s status=%-10s grade=%s cost_usd_per_1k=%.4f\n",
					m.ID, m.ClusterID, m.Status, m.SafetyGrade, m.CostUSDPer1K)
			}
			return nil
		},
	}
}
