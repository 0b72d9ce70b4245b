// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "routerd",
	Short: "routerd runs the AI request control plane's data-plane router",
	Long: `routerd accepts ATP frames from clients, admits and schedules them under
QoS/budget limits, routes requests to adapters with circuit breaking and
UCB-scored candidate selection, resolves multi-candidate consensus, and
federates reachability with peer routers over AGP.`,
}

func main() {
	rootCmd.AddCommand(
		serveCmd(),
		configCmd(),
		registryCmd(),
		custodyCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
