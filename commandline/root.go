// SPDX-License-Identifier: GPL-2.0-or-later

// Package commandline implements the qvis command tree.
package commandline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"qvis/bsp"
	"qvis/config"
	"qvis/conlog"
	"qvis/filesystem"
	"qvis/portal"
	"qvis/report"
	"qvis/vis"
)

type options struct {
	output     string
	bspFile    string
	configFile string
	reportFile string

	threads     int
	maxDepth    int
	maxDistance float32
	fast        bool
	full        bool
}

// Execute runs the command line in args, without the program name.
func Execute(ctx context.Context, args []string) error {
	root := NewRoot()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func NewRoot() *cobra.Command {
	var (
		o       options
		verbose bool
	)
	def := config.Default()

	root := &cobra.Command{
		Use:           "qvis [flags] <portalfile>",
		Short:         "qvis computes the potentially visible set of a map",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			l := conlog.New(cmd.ErrOrStderr(), verbose)
			cmd.SetContext(conlog.WithLogger(cmd.Context(), l))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], &o)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	f := root.Flags()
	f.StringVarP(&o.output, "output", "o", "", "visibility lump `file` (default <portalfile>.vis)")
	f.StringVar(&o.bspFile, "bsp", "", "patch the visibility of this bsp `file` instead")
	f.StringVar(&o.configFile, "config", "", "read settings from a toml `file`")
	f.StringVar(&o.reportFile, "report", "", "write a build report to `file`")
	f.IntVarP(&o.threads, "threads", "t", def.Threads, "number of worker threads")
	f.IntVar(&o.maxDepth, "max-depth", def.MaxDepth, "maximum portal chain length")
	f.Float32Var(&o.maxDistance, "maxdistance", 0, "ignore portals further apart, 0 disables")
	f.BoolVar(&o.fast, "fast", false, "only run the rough pass")
	f.BoolVar(&o.full, "full", false, "clip by separating planes on every step")

	root.AddCommand(newInspectCmd())
	return root
}

// settings merges the config file with the flags given explicitly.
func settings(cmd *cobra.Command, o *options) (config.Config, error) {
	c, err := config.Load(o.configFile)
	if err != nil {
		return c, err
	}
	f := cmd.Flags()
	if f.Changed("threads") {
		c.Threads = o.threads
	}
	if f.Changed("max-depth") {
		c.MaxDepth = o.maxDepth
	}
	if f.Changed("maxdistance") {
		c.MaxDistance = o.maxDistance
	}
	if f.Changed("fast") {
		c.Fast = o.fast
	}
	if f.Changed("full") {
		c.Full = o.full
	}
	if c.Threads < 1 || c.MaxDepth < 1 || c.MaxDistance < 0 {
		return c, errors.Errorf("bad settings: threads %d, max depth %d, max distance %v",
			c.Threads, c.MaxDepth, c.MaxDistance)
	}
	return c, nil
}

func run(cmd *cobra.Command, input string, o *options) error {
	ctx := cmd.Context()
	logger := conlog.FromContext(ctx)

	c, err := settings(cmd, o)
	if err != nil {
		return err
	}
	opts := c.Options()
	opts.Logger = logger
	opts.Interval = time.Second
	opts.Progress = progress(logger)

	data, err := filesystem.ReadFile(input)
	if err != nil {
		return err
	}
	g, err := portal.Parse(data, opts.Epsilon)
	if err != nil {
		return errors.Wrap(err, input)
	}
	var container []byte
	if o.bspFile != "" {
		// read early to fail before the long part
		if container, err = filesystem.ReadFile(o.bspFile); err != nil {
			return err
		}
	}

	res, err := vis.Run(ctx, g, opts)
	if err != nil {
		return err
	}

	output := o.output
	var out []byte
	if o.bspFile != "" {
		if out, err = bsp.PatchVisibility(container, res.Lump); err != nil {
			return errors.Wrap(err, o.bspFile)
		}
		if output == "" {
			output = o.bspFile
		}
	} else {
		if out, err = res.Lump.MarshalBinary(); err != nil {
			return err
		}
		if output == "" {
			output = filesystem.ReplaceExt(input, ".vis")
		}
	}
	// the report goes first, the visibility is only committed once
	// everything else is on disk
	if o.reportFile != "" {
		r := report.New(input, opts, res)
		b, err := r.MarshalBinary()
		if err != nil {
			return err
		}
		if err := filesystem.WriteFile(o.reportFile, b, 0644); err != nil {
			return err
		}
		logger.Debug("wrote report", "file", o.reportFile, "id", r.ID)
	}
	if err := filesystem.WriteFile(output, out, 0644); err != nil {
		if o.reportFile != "" {
			os.Remove(o.reportFile)
		}
		return err
	}
	logger.Info("wrote visibility", "file", output, "bytes", len(out))

	fmt.Fprintln(cmd.OutOrStdout(), summary(input, output, res.Stats))
	return nil
}

func progress(logger *log.Logger) func(phase string, done, total int) {
	return func(phase string, done, total int) {
		if total == 0 {
			return
		}
		logger.Info("progress", "phase", phase, "done", fmt.Sprintf("%d%%", done*100/total))
	}
}

// Main runs the command line and returns the process exit code.
func Main(ctx context.Context) int {
	err := Execute(ctx, os.Args[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		fmt.Fprintln(os.Stderr, "qvis: interrupted")
		return 130
	}
	fmt.Fprintln(os.Stderr, "qvis:", err)
	return 1
}
