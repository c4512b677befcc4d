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

// Package cmdstatus contains the status command
package cmdstatus

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/kptdev/matsync/internal/docs"
	"github.com/kptdev/matsync/internal/errors"
	"github.com/kptdev/matsync/internal/gitutil"
	"github.com/kptdev/matsync/internal/material"
	"github.com/kptdev/matsync/internal/types"
	"github.com/kptdev/matsync/internal/util/cmdutil"
	"github.com/kptdev/matsync/internal/util/runner"
	"github.com/kptdev/matsync/pkg/printer"
	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"
	"k8s.io/apimachinery/pkg/util/sets"
)

// NewRunner returns a command runner.
func NewRunner(ctx context.Context, parent string) *Runner {
	r := &Runner{
		ctx: ctx,
	}
	c := &cobra.Command{
		Use:     "status [DIR]",
		Short:   docs.StatusShort,
		Long:    docs.StatusShort + "\n" + docs.StatusLong,
		Example: docs.StatusExamples,
		Args:    cobra.MaximumNArgs(1),
		PreRunE: r.preRunE,
		RunE:    r.runE,
	}
	r.Flags.AddFlags(c)
	cmdutil.FixDocs("matsync", parent, c)
	r.Command = c
	return r
}

func NewCommand(ctx context.Context, parent string) *cobra.Command {
	return NewRunner(ctx, parent).Command
}

// Runner contains the run function.
type Runner struct {
	ctx   context.Context
	Flags cmdutil.MaterialFlags
	// Material is nil unless one was given on the command line.
	Material *material.GitMaterial
	Dir      string
	Command  *cobra.Command
}

func (r *Runner) preRunE(c *cobra.Command, args []string) error {
	const op errors.Op = "cmdstatus.preRunE"
	r.Dir = "."
	if len(args) > 0 {
		r.Dir = filepath.Clean(args[0])
	}
	if !r.Flags.Given(c) {
		return nil
	}
	m, err := r.Flags.Load(c)
	if err != nil {
		return errors.E(op, err)
	}
	r.Material = material.New(m)
	return nil
}

func (r *Runner) runE(c *cobra.Command, _ []string) error {
	const op errors.Op = "cmdstatus.runE"
	pr := printer.FromContextOrDie(r.ctx)

	dir := r.Dir
	git := gitutil.New(dir, "")
	if r.Material != nil {
		pr = pr.WithSecrets(r.Material.Redactor())
		dir = r.Material.WorkingDir(r.Dir)
		git = r.Material.Git(dir)
	}

	st := material.ReadState(r.ctx, git)
	if !st.HasMetadata {
		return runner.HandleError(c, errors.E(op, errors.InvalidParam, types.UniquePath(dir),
			fmt.Errorf("%s is not a git working copy", dir)))
	}

	tree := treeprint.New()
	tree.SetValue(dir)
	tree.AddMetaNode("remote", st.RemoteURL.ForDisplay())
	tree.AddMetaNode("branch", st.Branch)
	rev, err := git.CurrentRevision(r.ctx)
	if err != nil {
		rev = "unknown"
	}
	tree.AddMetaNode("revision", string(rev))
	tree.AddMetaNode("shallow", strconv.FormatBool(st.Shallow))
	if st.Submodules.Len() > 0 {
		subs := tree.AddMetaBranch("submodules", strconv.Itoa(st.Submodules.Len()))
		for _, s := range sets.List(st.Submodules) {
			subs.AddNode(s)
		}
	}
	if r.Material != nil {
		d := material.Plan(r.Material.GitMaterial, st)
		tree.AddMetaNode("plan", fmt.Sprintf("%s (%s)", d.Action, d.Reason))
	}

	if _, err := io.WriteString(pr.OutStream(), tree.String()); err != nil {
		return errors.E(op, errors.IO, err)
	}
	return nil
}
