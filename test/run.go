// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package main

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/s48/regalloc/checker"
	"github.com/s48/regalloc/fast"
	"github.com/s48/regalloc/regalloc"
	"github.com/s48/regalloc/textfunc"
)

type runOptionsT struct {
	annotate bool
	ssaCheck bool
	jobs     int
	update   bool
	metrics  bool
}

func newRunCommand() *cobra.Command {
	var opts runOptionsT
	cmd := &cobra.Command{
		Use:   "run [OPTIONS] CASE...",
		Short: "Allocate and check test cases",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd.OutOrStdout(), args, opts)
		},
	}
	addRunFlags(cmd.Flags(), &opts)
	return cmd
}

func addRunFlags(flags *pflag.FlagSet, opts *runOptionsT) {
	flags.BoolVar(&opts.annotate, "annotate", false, "Log the allocations of every instruction")
	flags.BoolVar(&opts.ssaCheck, "ssa-check", true, "Check that each function is in SSA form first")
	flags.IntVarP(&opts.jobs, "jobs", "j", runtime.GOMAXPROCS(0), "Number of cases to allocate at once")
	flags.BoolVar(&opts.update, "update", false, "Rewrite the 'want' sections with the current output")
	flags.BoolVar(&opts.metrics, "metrics", false, "Print allocation metrics when done")
}

func runCommand(out io.Writer, paths []string, opts runOptionsT) error {
	metrics := newMetrics()
	results, err := runCases(paths, opts, metrics)
	if err != nil {
		return err
	}
	failed := 0
	for _, result := range results {
		if result.ok {
			fmt.Fprintf(out, "ok   %s\n", result.name)
		} else {
			failed += 1
			fmt.Fprintf(out, "FAIL %s\n%s", result.name, indent(result.message))
		}
	}
	if opts.metrics {
		if err := metrics.write(out); err != nil {
			return err
		}
	}
	if failed != 0 {
		return errors.Errorf("%d of %d cases failed", failed, len(results))
	}
	return nil
}

type resultT struct {
	name    string
	ok      bool
	got     string // the output, if allocation and checking succeeded
	message string
	stats   regalloc.StatsT
}

// Cases are independent, so they are run in parallel.  An error is
// returned only when a case can't be read or written.

func runCases(paths []string, opts runOptionsT, metrics *metricsT) ([]resultT, error) {
	results := make([]resultT, len(paths))
	var group errgroup.Group
	if 0 < opts.jobs {
		group.SetLimit(opts.jobs)
	}
	for i, path := range paths {
		i, path := i, path
		group.Go(func() error {
			c, err := textfunc.ReadCase(path)
			if err != nil {
				return err
			}
			results[i] = runCase(c, opts)
			metrics.record(results[i])
			if opts.update && !results[i].ok && results[i].got != "" {
				if err := textfunc.WriteCase(path, c, results[i].got); err != nil {
					return err
				}
				results[i].ok = true
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func runCase(c *textfunc.CaseT, opts runOptionsT) resultT {
	log := logrus.WithField("case", c.Name)
	out, err := fast.Run(c.Func, c.Env, fast.OptionsT{
		Logger:      log,
		Annotate:    opts.annotate,
		ValidateSSA: opts.ssaCheck,
	})
	result := resultT{name: c.Name}
	var got string
	if err != nil {
		var raErr *regalloc.RegAllocErrorT
		if !errors.As(err, &raErr) {
			result.message = err.Error()
			return result
		}
		log.WithError(err).Debug("allocation failed")
		got = "error: " + raErr.Kind.String() + "\n"
	} else {
		if err := checker.Check(c.Func, c.Env, out); err != nil {
			result.message = errors.Wrap(err, "bad allocation").Error() + "\n" + textfunc.FormatOutput(c.Func, out)
			return result
		}
		result.stats = out.Stats
		got = textfunc.FormatOutput(c.Func, out)
	}
	result.got = got
	if got == c.Want {
		result.ok = true
	} else {
		result.message = cmp.Diff(c.Want, got)
	}
	return result
}

func indent(text string) string {
	var sb strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		if line != "" {
			sb.WriteString("    " + line)
		}
	}
	if !strings.HasSuffix(sb.String(), "\n") {
		sb.WriteString("\n")
	}
	return sb.String()
}
