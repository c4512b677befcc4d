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

// Package cmdmodifications contains the modifications command
package cmdmodifications

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/kptdev/matsync/internal/docs"
	"github.com/kptdev/matsync/internal/errors"
	"github.com/kptdev/matsync/internal/material"
	"github.com/kptdev/matsync/internal/util/cmdutil"
	"github.com/kptdev/matsync/internal/util/runner"
	v1 "github.com/kptdev/matsync/pkg/api/material/v1"
	"github.com/kptdev/matsync/pkg/printer"
	"github.com/spf13/cobra"
)

// NewRunner returns a command runner.
func NewRunner(ctx context.Context, parent string) *Runner {
	r := &Runner{
		ctx: ctx,
	}
	c := &cobra.Command{
		Use:        "modifications [flags]",
		Aliases:    []string{"mods", "log"},
		Short:      docs.ModificationsShort,
		Long:       docs.ModificationsShort + "\n" + docs.ModificationsLong,
		Example:    docs.ModificationsExamples,
		Args:       cobra.NoArgs,
		PreRunE:    r.preRunE,
		RunE:       r.runE,
		SuggestFor: []string{"history", "changes"},
	}

	r.Flags.AddFlags(c)
	c.Flags().StringVar((*string)(&r.Since), "since", "",
		"list the commits after this revision instead of the latest one.")
	c.Flags().StringVar(&r.Dir, "dir", "",
		"directory of the clone used for the check. defaults to a directory of MATSYNC_CACHE_DIR derived from the material.")
	c.Flags().StringVarP(&r.Output, "output", "o", cmdutil.OutputTable,
		"output format. one of: table, yaml, json.")
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
	Since    v1.Revision
	Dir      string
	Output   string
	Material *material.GitMaterial
	Command  *cobra.Command
}

func (r *Runner) preRunE(c *cobra.Command, _ []string) error {
	const op errors.Op = "cmdmodifications.preRunE"
	if err := cmdutil.ValidateOutputFormat(r.Output); err != nil {
		return errors.E(op, err)
	}
	m, err := r.Flags.Load(c)
	if err != nil {
		return errors.E(op, err)
	}
	r.Material = material.New(m)
	if r.Dir == "" {
		if r.Dir, err = r.Material.FlyweightDir(); err != nil {
			return errors.E(op, err)
		}
	}
	return nil
}

func (r *Runner) runE(c *cobra.Command, _ []string) error {
	const op errors.Op = "cmdmodifications.runE"
	mods, err := Check(r.ctx, r.Material, r.Dir, r.Since)
	if err != nil {
		return runner.HandleError(c, errors.E(op, err))
	}
	pr := printer.FromContextOrDie(r.ctx).WithSecrets(r.Material.Redactor())
	if len(mods) == 0 && r.Since != "" {
		pr.OptPrintf(printer.NewOpt().MaterialName(r.Material.DisplayName()),
			"no modifications since %s\n", r.Since)
	}
	if r.Output == cmdutil.OutputTable {
		PrintTable(pr.OutStream(), mods)
		return nil
	}
	return cmdutil.WriteStructured(pr.OutStream(), r.Output, mods)
}

// Check runs the modification check of m in dir. An empty since asks for
// the latest modification.
func Check(ctx context.Context, m *material.GitMaterial, dir string, since v1.Revision) (v1.Modifications, error) {
	if since == "" {
		return m.LatestModification(ctx, dir)
	}
	return m.ModificationsSince(ctx, dir, since)
}

// PrintTable renders mods as a table on w.
func PrintTable(w io.Writer, mods v1.Modifications) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"REVISION", "AUTHOR", "TIME", "FILES", "SUBJECT"})
	for i := range mods {
		mod := mods[i]
		t.AppendRow(table.Row{
			v1.ShortRevision(mod.Revision),
			mod.Author,
			mod.Time.Format(time.RFC3339),
			fmt.Sprintf("%d", len(mod.Files)),
			mod.Subject(),
		})
	}
	t.Render()
}
