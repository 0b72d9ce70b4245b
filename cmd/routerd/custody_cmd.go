// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atp-router/routerd/observation"
)

func custodyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "custody",
		Short: "Inspect the append-only model custody log",
	}
	cmd.AddCommand(custodyVerifyCmd())
	return cmd
}

func custodyVerifyCmd() *cobra.Command {
	var keyHex string

	cmd := &cobra.Command{
		Use:   "verify <path>",
		Short: "Walk the custody log's hash chain and report the first broken entry, if any",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := hex.DecodeString(keyHex)
			if err != nil {
				return fmt.Errorf("custody verify: --hmac-key-hex: %w", err)
			}
			brokenAt, err := observation.VerifyChain(args[0], key)
			if err != nil {
				return fmt.Errorf("custody verify failed: %w", err)
			}
			if brokenAt < 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "custody log verified: chain intact")
				return nil
			}
			return fmt.Errorf("custody log broken at entry %d", brokenAt)
		},
	}
	cmd.Flags().StringVar(&keyHex, "hmac-key-hex", "", "hex-encoded HMAC key the log was signed with")
	return cmd
}
