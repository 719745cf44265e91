// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package run

import (
	"github.com/luxfi/log"
	"github.com/spf13/cobra"

	"github.com/luxfi/pledge/config"
)

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "run",
		Short: "Runs the lending ledger and serves its API",
		RunE:  runFunc,
	}
	AddFlags(c.Flags())
	return c
}

func runFunc(c *cobra.Command, args []string) error {
	v, err := BuildViper(c.Flags(), args)
	if err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	logger := log.NewLogger("pledged")
	n, err := newNode(c.Context(), cfg, logger)
	if err != nil {
		return err
	}
	return n.run(c.Context())
}
