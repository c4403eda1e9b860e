// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Runs the register allocator over test cases.
//
//	regalloc-test run [--update] [--jobs N] [--metrics] cases/*.txtar
//	regalloc-test machine --int 4 --float 2
//
// Each case is allocated, the result checked, and the output compared
// with the case's 'want' section.

package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type globalOptionsT struct {
	debug bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var opts globalOptionsT
	cmd := &cobra.Command{
		Use:           "regalloc-test",
		Short:         "Run the fast register allocator over test cases",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logrus.SetOutput(cmd.ErrOrStderr())
			if opts.debug {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
	}
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Log allocator decisions")
	cmd.AddCommand(newRunCommand(), newMachineCommand())
	return cmd
}
