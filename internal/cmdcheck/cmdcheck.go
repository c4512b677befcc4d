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

// Package cmdcheck contains the check-connection command
package cmdcheck

import (
	"context"
	"fmt"

	"github.com/kptdev/matsync/internal/docs"
	"github.com/kptdev/matsync/internal/errors"
	"github.com/kptdev/matsync/internal/material"
	"github.com/kptdev/matsync/internal/util/cmdutil"
	"github.com/kptdev/matsync/internal/util/runner"
	"github.com/kptdev/matsync/pkg/printer"
	"github.com/spf13/cobra"
)

// NewRunner returns a command runner.
func NewRunner(ctx context.Context, parent string) *Runner {
	r := &Runner{
		ctx: ctx,
	}
	c := &cobra.Command{
		Use:     "check-connection [flags]",
		Aliases: []string{"check"},
		Short:   docs.CheckShort,
		Long:    docs.CheckShort + "\n" + docs.CheckLong,
		Example: docs.CheckExamples,
		Args:    cobra.NoArgs,
		PreRunE: r.preRunE,
		RunE:    r.runE,
	}
	r.Flags.AddFlags(c)
	c.Flags().StringVarP(&r.Output, "output", "o", "",
		"print the result as yaml or json instead of a message.")
	cmdutil.FixDocs("matsync", parent, c)
	r.Command = c
	return r
}

func NewCommand(ctx context.Context, parent string) *cobra.Command {
	return NewRunner(ctx, parent).Command
}

// Runner contains the run function.
type Runner struct {
	ctx      context.Context
	Flags    cmdutil.MaterialFlags
	Output   string
	Material *material.GitMaterial
	Command  *cobra.Command
}

func (r *Runner) preRunE(c *cobra.Command, _ []string) error {
	const op errors.Op = "cmdcheck.preRunE"
	if r.Output != "" && r.Output != cmdutil.OutputYAML && r.Output != cmdutil.OutputJSON {
		return errors.E(op, errors.InvalidParam, fmt.Errorf("unknown output format %q, must be one of: yaml,json", r.Output))
	}
	m, err := r.Flags.Load(c)
	if err != nil {
		return errors.E(op, err)
	}
	r.Material = material.New(m)
	return nil
}

func (r *Runner) runE(c *cobra.Command, _ []string) error {
	const op errors.Op = "cmdcheck.runE"
	pr := printer.FromContextOrDie(r.ctx).WithSecrets(r.Material.Redactor())
	res := r.Material.CheckConnection(r.ctx)

	if r.Output != "" {
		if err := cmdutil.WriteStructured(pr.OutStream(), r.Output, res); err != nil {
			return errors.E(op, err)
		}
	} else if res.Valid {
		pr.OptPrintf(printer.NewOpt().MaterialName(r.Material.DisplayName()),
			"connection OK (%s)\n", r.Material.LongDescription())
	}
	if !res.Valid {
		return runner.HandleError(c, errors.E(op, errors.Git,
			errors.Repo(r.Material.URL().ForDisplay()), fmt.Errorf("%s", res.Error)))
	}
	return nil
}
