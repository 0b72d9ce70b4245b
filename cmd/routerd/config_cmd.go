// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atp-router/routerd/config"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate typed configuration files",
	}
	cmd.AddCommand(configValidateCmd())
	return cmd
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <path>",
		Short: "Load and validate a config.yaml against the §6 schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.LoadFile(args[0])
			if err != nil {
				return fmt.Errorf("config invalid: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config valid: circuit.fail_threshold=%d agp.keepalive_interval=%s observation.dir=%s\n",
				c.Circuit.FailThreshold, c.AGP.KeepaliveInterval, c.Observation.Dir)
			return nil
		},
	}
}
