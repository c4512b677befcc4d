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

// Package cmdupdate contains the update command
package cmdupdate

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/kptdev/matsync/internal/docs"
	"github.com/kptdev/matsync/internal/errors"
	"github.com/kptdev/matsync/internal/material"
	"github.com/kptdev/matsync/internal/types"
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
		Use:        "update [DIR] [flags]",
		Short:      docs.UpdateShort,
		Long:       docs.UpdateShort + "\n" + docs.UpdateLong,
		Example:    docs.UpdateExamples,
		RunE:       r.runE,
		Args:       cobra.MaximumNArgs(1),
		PreRunE:    r.preRunE,
		SuggestFor: []string{"checkout", "sync"},
	}

	r.Flags.AddFlags(c)
	c.Flags().StringVar((*string)(&r.Revision.To), "revision", "",
		"revision to update the working copy to.")
	c.Flags().StringSliceVar(&r.from, "from", nil,
		"earlier revisions of the build window, most recent first. the working copy is deepened until it holds the last one.")
	c.Flags().IntVar(&r.Revision.NumberOfModifications, "modifications", 0,
		"number of modifications in the build window. sets the depth of shallow clones.")
	_ = c.MarkFlagRequired("revision")
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
	from     []string
	Flags    cmdutil.MaterialFlags
	Revision v1.RevisionContext
	Material *v1.GitMaterial
	Dir      string
	Command  *cobra.Command
}

func (r *Runner) preRunE(c *cobra.Command, args []string) error {
	const op errors.Op = "cmdupdate.preRunE"
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return errors.E(op, errors.IO, fmt.Errorf("error resolving the base directory: %w", err))
	}
	r.Dir = abs

	for _, rev := range r.from {
		r.Revision.From = append(r.Revision.From, v1.Revision(rev))
	}
	if r.Revision.NumberOfModifications < 0 {
		return errors.E(op, errors.InvalidParam, fmt.Errorf("--modifications must not be negative"))
	}

	m, err := r.Flags.Load(c)
	if err != nil {
		return errors.E(op, err)
	}
	r.Material = m
	return nil
}

func (r *Runner) runE(c *cobra.Command, _ []string) error {
	const op errors.Op = "cmdupdate.runE"
	m := material.New(r.Material)
	pr := printer.FromContextOrDie(r.ctx).WithSecrets(m.Redactor())

	pr.PrintMaterial(r.Material, false)
	if err := m.UpdateTo(r.ctx, pr.Consumer(), r.Dir, r.Revision); err != nil {
		return runner.HandleError(c, errors.E(op, types.UniquePath(r.Dir), err))
	}
	pr.OptPrintf(printer.NewOpt().MaterialName(r.Material.DisplayName()),
		"updated %s to %s\n", m.WorkingDir(r.Dir), v1.ShortRevision(r.Revision.Latest()))
	return nil
}
