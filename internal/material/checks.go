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

package material

import (
	"context"

	"github.com/kptdev/matsync/internal/command"
	"github.com/kptdev/matsync/internal/errors"
	"github.com/kptdev/matsync/internal/gitutil"
	"github.com/kptdev/matsync/internal/metrics"
	"github.com/kptdev/matsync/internal/types"
	v1 "github.com/kptdev/matsync/pkg/api/material/v1"
	"k8s.io/klog/v2"
)

// ValidationResult is the outcome of CheckConnection.
type ValidationResult struct {
	Valid bool `json:"valid" yaml:"valid"`
	// Error is the redacted reason the material is not usable.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// CheckConnection verifies that the repository is reachable with the
// credentials of the material and that it has the branch.
func (m *GitMaterial) CheckConnection(ctx context.Context) ValidationResult {
	git := m.Git("")
	if err := git.CheckConnection(ctx, m.URL()); err != nil {
		return ValidationResult{Error: m.Redactor().RedactError(err).Error()}
	}
	return ValidationResult{Valid: true}
}

// FlyweightDir returns the directory server side checks of the material run
// in.
func (m *GitMaterial) FlyweightDir() (string, error) {
	return gitutil.FlyweightDir(m.GitMaterial)
}

// LatestModification returns the most recent commit of the branch, checked
// in the working copy in dir. The working copy is created if needed and is
// never checked out.
func (m *GitMaterial) LatestModification(ctx context.Context, dir string) (mods v1.Modifications, err error) {
	const op errors.Op = "material.LatestModification"
	defer func() { m.observeCheck(mods, err) }()

	git, err := m.checkoutForChecks(ctx, dir)
	if err != nil {
		return nil, m.checkError(op, dir, err)
	}
	mods, err = git.LatestModification(ctx)
	if err != nil {
		return nil, m.checkError(op, dir, err)
	}
	return mods, nil
}

// ModificationsSince returns the commits of the branch after rev, most
// recent first. A shallow working copy that misses rev is unshallowed and
// the query retried once.
func (m *GitMaterial) ModificationsSince(ctx context.Context, dir string, rev v1.Revision) (mods v1.Modifications, err error) {
	const op errors.Op = "material.ModificationsSince"
	defer func() { m.observeCheck(mods, err) }()

	git, err := m.checkoutForChecks(ctx, dir)
	if err != nil {
		return nil, m.checkError(op, dir, err)
	}
	mods, err = git.ModificationsSince(ctx, rev)
	if err != nil && errors.IsKind(err, errors.Revision) && git.IsShallow() {
		klog.V(2).Infof("revision %s not found in shallow copy %q, unshallowing", rev, dir)
		if uerr := git.Unshallow(ctx, command.Discard, gitutil.FullDepth); uerr != nil {
			return nil, m.checkError(op, dir, uerr)
		}
		mods, err = git.ModificationsSince(ctx, rev)
	}
	if err != nil {
		return nil, m.checkError(op, dir, err)
	}
	return mods, nil
}

// checkoutForChecks makes sure dir holds a clone of the material fit for
// history queries. A copy of another repository or branch is replaced.
func (m *GitMaterial) checkoutForChecks(ctx context.Context, dir string) (*gitutil.GitCommand, error) {
	git := m.Git(dir)
	decision := Plan(m.GitMaterial, ReadState(ctx, git))
	switch decision.Action {
	case ActionClone, ActionReclone:
		klog.V(2).Infof("%s in %q: %s (%s)", decision.Action, dir, decision.Reason, m.LongDescription())
		if err := deleteDirectory(dir); err != nil {
			return nil, err
		}
		depth := gitutil.FullDepth
		if m.ShallowClone {
			depth = DefaultCloneDepth
		}
		if err := git.Clone(ctx, command.Discard, m.URL(), gitutil.CloneOptions{Depth: depth}); err != nil {
			return nil, err
		}
	}
	if !m.ShallowClone {
		if err := git.Unshallow(ctx, command.Discard, gitutil.FullDepth); err != nil {
			return nil, err
		}
	}
	return git, nil
}

func (m *GitMaterial) checkError(op errors.Op, dir string, err error) error {
	return m.Redactor().RedactError(errors.E(op, types.UniquePath(dir), errors.Repo(m.URL().ForDisplay()), err))
}

func (m *GitMaterial) observeCheck(mods v1.Modifications, err error) {
	switch {
	case err != nil:
		metrics.ObserveCheck(metrics.KeyError)
	case len(mods) == 0:
		metrics.ObserveCheck(metrics.KeyNoOp)
	default:
		metrics.ObserveCheck(metrics.KeySuccess)
	}
}
