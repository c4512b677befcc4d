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

// Package material keeps working copies of git materials in sync with the
// revisions they are built at.
package material

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kptdev/matsync/internal/command"
	"github.com/kptdev/matsync/internal/errors"
	"github.com/kptdev/matsync/internal/gitutil"
	"github.com/kptdev/matsync/internal/metrics"
	"github.com/kptdev/matsync/internal/redact"
	"github.com/kptdev/matsync/internal/types"
	v1 "github.com/kptdev/matsync/pkg/api/material/v1"
	"k8s.io/klog/v2"
)

const (
	// ProductName prefixes the console lines of a synchronization.
	ProductName = "matsync"

	// UnshallowTryoutStep is how deep a shallow working copy is made before
	// falling back to the full history.
	UnshallowTryoutStep = 100

	// DefaultCloneDepth is the depth of the shallow clones server side
	// checks start from.
	DefaultCloneDepth = 2
)

// CommandLineURL returns the URL of m with its credentials, as handed to
// git.
func CommandLineURL(m *v1.GitMaterial) command.URLArgument {
	return command.NewURLArgument(m.URL).WithCredentials(m.Username, m.Password)
}

// GitMaterial synchronizes working copies of one material.
type GitMaterial struct {
	*v1.GitMaterial

	opts []gitutil.Option
}

// New returns a GitMaterial for m. The options are applied to every git
// command run for it.
func New(m *v1.GitMaterial, opts ...gitutil.Option) *GitMaterial {
	return &GitMaterial{GitMaterial: m, opts: opts}
}

// URL returns the URL git is run with.
func (m *GitMaterial) URL() command.URLArgument {
	return CommandLineURL(m.GitMaterial)
}

// Redactor masks every secret of the material.
func (m *GitMaterial) Redactor() *redact.Redactor {
	var secrets []string
	if m.Password != "" {
		secrets = append(secrets, m.Password)
	}
	secrets = append(secrets, m.URL().Secrets()...)
	secrets = append(secrets, command.NewURLArgument(m.GitMaterial.URL).Secrets()...)
	return redact.New(secrets...)
}

// LongDescription describes the material for humans.
func (m *GitMaterial) LongDescription() string {
	return fmt.Sprintf("URL: %s, Branch: %s", m.URL().ForDisplay(), m.EffectiveBranch())
}

// WorkingDir returns where the working copy of the material lives under
// baseDir.
func (m *GitMaterial) WorkingDir(baseDir string) string {
	if m.Destination == "" {
		return baseDir
	}
	return filepath.Join(baseDir, m.Destination)
}

// Git returns the driver for the working copy in dir.
func (m *GitMaterial) Git(dir string) *gitutil.GitCommand {
	var secrets []string
	for _, s := range m.Redactor().Secrets() {
		secrets = append(secrets, s.Value)
	}
	opts := []gitutil.Option{gitutil.WithSecrets(secrets...)}
	if m.IsSubmodule() {
		opts = append(opts, gitutil.AsSubmodule())
	}
	return gitutil.New(dir, m.Branch, append(opts, m.opts...)...)
}

func (m *GitMaterial) updatingTarget() string {
	if m.Destination == "" {
		return "files"
	}
	return "folder " + m.Destination
}

func (m *GitMaterial) cloneDepth(rc v1.RevisionContext) int {
	if m.ShallowClone {
		return rc.CloneDepth()
	}
	return gitutil.FullDepth
}

func console(out command.OutputConsumer, format string, args ...interface{}) {
	if out != nil {
		out.Stdout(fmt.Sprintf("[%s] "+format, append([]interface{}{ProductName}, args...)...))
	}
}

// UpdateTo brings the working copy under baseDir to the latest revision of
// rc. Failures are returned as they happen; the directory is left as is for
// the next attempt to reconcile.
func (m *GitMaterial) UpdateTo(ctx context.Context, out command.OutputConsumer, baseDir string, rc v1.RevisionContext) (err error) {
	const op errors.Op = "material.UpdateTo"
	start := time.Now()
	dir := m.WorkingDir(baseDir)
	decision := Decision{Action: ActionFetchReset}
	defer func() {
		status := metrics.KeySuccess
		if err != nil {
			status = metrics.KeyError
			err = m.Redactor().RedactError(errors.E(op, types.UniquePath(dir), errors.Repo(m.URL().ForDisplay()), err))
		}
		metrics.ObserveSync(string(decision.Action), status, start)
	}()

	console(out, "Start updating %s at revision %s from %s", m.updatingTarget(), rc.Latest(), m.URL().ForDisplay())
	git := m.Git(dir)

	decision, err = m.prepare(ctx, out, git, m.cloneDepth(rc))
	if err != nil {
		return err
	}
	if err := git.Fetch(ctx, out); err != nil {
		return err
	}
	if err := m.unshallowIfNeeded(ctx, out, git, rc.Oldest()); err != nil {
		return err
	}
	if err := git.ResetWorkingDir(ctx, out, rc.Latest(), m.ShallowClone); err != nil {
		return err
	}
	console(out, "Done.\n")
	return nil
}

// prepare applies the decision of Plan up to a working copy git can fetch
// into.
func (m *GitMaterial) prepare(ctx context.Context, out command.OutputConsumer, git *gitutil.GitCommand, depth int) (Decision, error) {
	const op errors.Op = "material.prepare"
	decision := Plan(m.GitMaterial, ReadState(ctx, git))
	klog.V(2).Infof("%s in %q: %s (%s)", decision.Action, git.Dir(), decision.Reason, m.LongDescription())

	switch decision.Action {
	case ActionClone, ActionReclone:
		if err := deleteDirectory(git.Dir()); err != nil {
			return decision, errors.E(op, err)
		}
		console(out, "Cloning %s", m.URL().ForDisplay())
		if err := git.Clone(ctx, out, m.URL(), gitutil.CloneOptions{Depth: depth}); err != nil {
			return decision, errors.E(op, err)
		}
	case ActionUnshallowThenFetchReset:
		if err := git.Unshallow(ctx, out, gitutil.FullDepth); err != nil {
			return decision, errors.E(op, err)
		}
	}
	return decision, nil
}

// unshallowIfNeeded deepens a shallow working copy until it holds rev,
// first by UnshallowTryoutStep commits and then fully.
func (m *GitMaterial) unshallowIfNeeded(ctx context.Context, out command.OutputConsumer, git *gitutil.GitCommand, rev v1.Revision) error {
	const op errors.Op = "material.unshallowIfNeeded"
	if !git.IsShallow() || git.ContainsRevisionInBranch(ctx, rev) {
		return nil
	}
	if err := git.Unshallow(ctx, out, UnshallowTryoutStep); err != nil {
		return errors.E(op, err)
	}
	if !git.IsShallow() || git.ContainsRevisionInBranch(ctx, rev) {
		return nil
	}
	if err := git.Unshallow(ctx, out, gitutil.FullDepth); err != nil {
		return errors.E(op, err)
	}
	return nil
}

func deleteDirectory(dir string) error {
	const op errors.Op = "material.deleteDirectory"
	if err := os.RemoveAll(dir); err != nil {
		return errors.E(op, errors.IO, types.UniquePath(dir),
			fmt.Errorf("Failed to delete directory: %s: %w", dir, err))
	}
	return nil
}
