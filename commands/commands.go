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

package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/kptdev/matsync/internal/cmdcheck"
	"github.com/kptdev/matsync/internal/cmdmodifications"
	"github.com/kptdev/matsync/internal/cmdpoll"
	"github.com/kptdev/matsync/internal/cmdstatus"
	"github.com/kptdev/matsync/internal/cmdupdate"
	"github.com/kptdev/matsync/internal/gitutil"
	"github.com/spf13/cobra"
)

// GetMatsyncCommands returns the set of matsync commands to be registered
func GetMatsyncCommands(ctx context.Context, name, version string) []*cobra.Command {
	c := []*cobra.Command{
		cmdupdate.NewCommand(ctx, name),
		cmdmodifications.NewCommand(ctx, name),
		cmdcheck.NewCommand(ctx, name),
		cmdstatus.NewCommand(ctx, name),
		cmdpoll.NewCommand(ctx, name),
		GetVersionCommand(version),
	}

	// apply cross-cutting issues to commands
	NormalizeCommand(c...)
	return c
}

// GetVersionCommand prints the version of matsync and of the git it runs.
func GetVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of matsync",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", version)
			v, err := gitutil.New("", "").Version(cmd.Context())
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "git: unknown (%v)\n", err)
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "git: %s\n", v)
		},
	}
}

// NormalizeCommand will modify commands to be consistent, e.g. silencing errors
func NormalizeCommand(c ...*cobra.Command) {
	for i := range c {
		cmd := c[i]
		cmd.Short = strings.TrimPrefix(cmd.Short, "[Alpha] ")
		NormalizeCommand(cmd.Commands()...)
	}
}
