// Copyright 2026 The kpt Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package run

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"

	"github.com/kptdev/matsync/commands"
	"github.com/kptdev/matsync/internal/docs"
	"github.com/kptdev/matsync/internal/util/cmdutil"
	"github.com/kptdev/matsync/pkg/printer"
	"github.com/spf13/cobra"
)

// GetMain returns the root command. The printer of ctx is replaced by one
// writing to the streams of the command.
func GetMain(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "matsync",
		Short:        docs.CliShort,
		Long:         docs.CliLong,
		SilenceUsage: true,
		// We handle all errors in main after return from cobra so we can
		// adjust the error message coming from libraries
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := cmd.Flags().GetBool("help")
			if err != nil {
				return err
			}
			if h {
				return cmd.Help()
			}
			return cmd.Usage()
		},
	}

	cmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	// wire the global printer
	pr := printer.New(cmd.OutOrStdout(), cmd.ErrOrStderr())

	// create context with associated printer
	ctx = printer.WithContext(ctx, pr)
	cmd.SetContext(ctx)

	// help and documentation
	cmd.InitDefaultHelpCmd()
	cmd.AddCommand(commands.GetMatsyncCommands(ctx, "matsync", version)...)

	// enable stack traces
	cmd.PersistentFlags().BoolVar(&cmdutil.StackOnError, "stack-trace", false,
		"Print a stack-trace on failure")

	if _, err := exec.LookPath("git"); err != nil {
		fmt.Fprintf(os.Stderr, "matsync requires that `git` is installed and on the PATH")
		os.Exit(1)
	}

	hideFlags(cmd)
	return cmd
}

// version is set at build time with
// -ldflags "-X github.com/kptdev/matsync/run.version=..."
var version = "unknown"

// hideFlags hides the logging flags, they are rarely needed.
func hideFlags(cmd *cobra.Command) {
	flags := []string{
		"add_dir_header",
		"alsologtostderr",
		"log_backtrace_at",
		"log_dir",
		"log_file",
		"log_file_max_size",
		"logtostderr",
		"one_output",
		"skip_headers",
		"skip_log_headers",
		"stack-trace",
		"stderrthreshold",
		"vmodule",
	}
	for _, f := range flags {
		_ = cmd.PersistentFlags().MarkHidden(f)
	}

	// We need to recurse into subcommands otherwise flags aren't hidden on leaf commands
	for _, child := range cmd.Commands() {
		hideFlags(child)
	}
}
