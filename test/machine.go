// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/s48/regalloc/regalloc"
)

// Prints a machine environment, for starting new test cases.

func newMachineCommand() *cobra.Command {
	var counts [regalloc.NumRegClasses]int
	cmd := &cobra.Command{
		Use:   "machine [OPTIONS]",
		Short: "Print a machine environment in TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for class, count := range counts {
				if count < 0 {
					return errors.Errorf("negative number of %s registers", regalloc.RegClassT(class))
				}
			}
			data, err := regalloc.MakeMachineEnv(counts[:]...).FormatTOML()
			if err != nil {
				return errors.Wrap(err, "failed to format machine environment")
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&counts[regalloc.Int], "int", 4, "Number of integer registers")
	flags.IntVar(&counts[regalloc.Float], "float", 2, "Number of floating point registers")
	flags.IntVar(&counts[regalloc.Vector], "vector", 0, "Number of vector registers")
	return cmd
}
