/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package main

import (
	"flag"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	ctrllog "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

type rootOptions struct {
	configPath string
	verbose    bool
	zapOpts    zap.Options
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{
		zapOpts: zap.Options{},
	}

	cmd := &cobra.Command{
		Use:   "previewsync",
		Short: "Reconcile GitHub deployments with preview environments",
		Long: `previewsync lists the deployments of a GitHub repository and the preview
environments of a hosting platform, and deletes the records on either side
that no longer correspond to a live branch or environment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if opts.verbose {
				opts.zapOpts.Level = zapcore.DebugLevel
			}
			ctrllog.SetLogger(zap.New(zap.UseFlagOptions(&opts.zapOpts)))
		},
	}

	goFlags := flag.NewFlagSet("zap", flag.ContinueOnError)
	opts.zapOpts.BindFlags(goFlags)
	cmd.PersistentFlags().AddGoFlagSet(goFlags)

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML configuration file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	bindConfigFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newRunCommand(opts),
		newServeCommand(opts),
		newTokenCommand(opts),
	)

	return cmd
}
