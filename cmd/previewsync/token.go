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
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mikelane/previewsync/internal/config"
	"github.com/mikelane/previewsync/internal/errdefs"
)

func newTokenCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the GitHub token stored in the OS keyring",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "store",
		Short:   "Read a token from stdin and store it for the repository",
		Example: `  gh auth token | previewsync token store --repository acme/shop`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath, os.Getenv)
			if err != nil {
				return err
			}
			applyFlags(cmd.Flags(), cfg)

			token, err := readToken(cmd)
			if err != nil {
				return err
			}
			if err := cfg.StoreToken(token); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Token stored for %s\n", cfg.GitHub.Repository)
			return nil
		},
	})

	return cmd
}

func readToken(cmd *cobra.Command) (string, error) {
	if cmd.Flags().Changed("token") {
		token, _ := cmd.Flags().GetString("token")
		return token, nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	token := strings.TrimSpace(line)
	if token == "" {
		if err != nil {
			return "", errdefs.Configf("github.token", "no token on stdin: %v", err)
		}
		return "", errdefs.Configf("github.token", "no token on stdin")
	}
	return token, nil
}
