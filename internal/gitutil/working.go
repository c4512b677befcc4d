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

package gitutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kptdev/matsync/internal/command"
	"github.com/kptdev/matsync/internal/errors"
	"github.com/kptdev/matsync/internal/types"
	v1 "github.com/kptdev/matsync/pkg/api/material/v1"
	"k8s.io/klog/v2"
)

// CloneOptions controls how a repository is cloned.
type CloneOptions struct {
	// Depth limits the history. Zero or FullDepth clones everything.
	Depth int
	// Checkout populates the working tree. By default only the repository
	// metadata is written; a later reset checks out the wanted revision.
	Checkout bool
}

// Clone clones url into the working copy directory.
func (g *GitCommand) Clone(ctx context.Context, out command.OutputConsumer, url command.URLArgument, opts CloneOptions) error {
	const op errors.Op = "gitutil.Clone"
	if err := os.MkdirAll(filepath.Dir(g.dir), 0755); err != nil {
		return errors.E(op, errors.IO, types.UniquePath(g.dir), err)
	}

	shallow := opts.Depth > 0 && opts.Depth < FullDepth
	args := []string{"clone", "--branch=" + g.branch}
	if shallow {
		args = append(args, fmt.Sprintf("--depth=%d", opts.Depth))
	}
	if !opts.Checkout {
		args = append(args, "--no-checkout")
	}
	c := g.cmd(args...).WithArgument(url).WithArg(g.dir)

	if _, err := g.run(ctx, out, c, fmt.Sprintf("git clone failed for [%s]", url.ForDisplay())); err != nil {
		AmendGitExecError(err, func(e *GitExecError) {
			e.Repo = url.ForDisplay()
			e.Ref = g.branch
		})
		return errors.E(op, errors.Repo(url.ForDisplay()), types.UniquePath(g.dir), err)
	}
	if shallow {
		if _, err := g.output(ctx, "config", shallowCloneKey, "true"); err != nil {
			return errors.E(op, types.UniquePath(g.dir), err)
		}
	}
	return nil
}

// shallowCloneKey marks a working copy that was cloned shallow. The mark
// survives unshallowing.
const shallowCloneKey = "matsync.shallowclone"

// ClonedShallow returns true if the working copy was cloned with a limited
// depth, even if it has been unshallowed since.
func (g *GitCommand) ClonedShallow(ctx context.Context) bool {
	out, err := g.output(ctx, "config", "--bool", shallowCloneKey)
	return err == nil && out == "true"
}

// Fetch fetches the remote and lets git compact the repository if needed.
func (g *GitCommand) Fetch(ctx context.Context, out command.OutputConsumer) error {
	const op errors.Op = "gitutil.Fetch"
	url, err := g.WorkingRepositoryURL(ctx)
	if err != nil {
		return errors.E(op, err)
	}
	report(out, "Fetching changes")
	if _, err := g.runInDir(ctx, out, fmt.Sprintf("git fetch failed for [%s]", url.ForDisplay()),
		"fetch", "origin", "--prune", "--recurse-submodules=no"); err != nil {
		AmendGitExecError(err, func(e *GitExecError) {
			e.Repo = url.ForDisplay()
		})
		return errors.E(op, errors.Repo(url.ForDisplay()), types.UniquePath(g.dir), err)
	}
	g.gc(ctx, out)
	return nil
}

// gc never fails the caller; a failed gc only costs disk space.
func (g *GitCommand) gc(ctx context.Context, out command.OutputConsumer) {
	report(out, "Performing git gc")
	if _, err := g.runInDir(ctx, out, "git gc failed", "gc", "--auto"); err != nil {
		klog.Warningf("git gc in %q failed: %v", g.dir, err)
		if out != nil {
			out.Stderr(fmt.Sprintf("[GIT] git gc failed: %v", err))
		}
	}
}

// Unshallow deepens a shallow working copy to depth commits. FullDepth
// fetches the complete history. History is never shortened and nothing is
// checked out.
func (g *GitCommand) Unshallow(ctx context.Context, out command.OutputConsumer, depth int) error {
	const op errors.Op = "gitutil.Unshallow"
	args := []string{"fetch", "origin"}
	if depth >= FullDepth {
		if !g.IsShallow() {
			return nil
		}
		report(out, "Unshallowing repository")
		args = append(args, "--unshallow")
	} else {
		// A smaller depth would cut history that is already there.
		if current, err := g.HistoryDepth(ctx); err == nil && g.IsShallow() && current >= depth {
			klog.V(3).Infof("%s already holds %d commits, not unshallowing to %d", g.dir, current, depth)
			return nil
		}
		report(out, "Unshallowing repository with depth %d", depth)
		args = append(args, fmt.Sprintf("--depth=%d", depth))
	}
	if _, err := g.runInDir(ctx, out, "Unshallow repository failed", args...); err != nil {
		return errors.E(op, types.UniquePath(g.dir), err)
	}
	return nil
}

// HistoryDepth returns the number of commits of the remote branch present
// in the repository.
func (g *GitCommand) HistoryDepth(ctx context.Context) (int, error) {
	const op errors.Op = "gitutil.HistoryDepth"
	out, err := g.output(ctx, "rev-list", "--count", g.remoteBranch())
	if err != nil {
		return 0, errors.E(op, err)
	}
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, errors.E(op, errors.Git, fmt.Errorf("unexpected commit count %q", out))
	}
	return n, nil
}

// FetchAndResetToHead fetches and resets the working copy to the tip of the
// remote branch.
func (g *GitCommand) FetchAndResetToHead(ctx context.Context, out command.OutputConsumer, shallowSubmodules bool) error {
	const op errors.Op = "gitutil.FetchAndResetToHead"
	if err := g.Fetch(ctx, out); err != nil {
		return errors.E(op, err)
	}
	if err := g.ResetWorkingDir(ctx, out, v1.Revision(g.remoteBranch()), shallowSubmodules); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// ResetWorkingDir makes the working copy, submodules included, an exact
// checkout of rev.
func (g *GitCommand) ResetWorkingDir(ctx context.Context, out command.OutputConsumer, rev v1.Revision, shallowSubmodules bool) error {
	const op errors.Op = "gitutil.ResetWorkingDir"
	report(out, "Reset working directory %s", g.dir)
	steps := []func() error{
		func() error { return g.CleanAllUnversionedFiles(ctx, out) },
		func() error { return g.removeSubmoduleSectionsFromGitConfig(ctx, out) },
		func() error { return g.resetHard(ctx, out, rev) },
		func() error { return g.checkoutAllModifiedFilesInSubmodules(ctx, out) },
		func() error { return g.UpdateSubmoduleWithInit(ctx, out, shallowSubmodules) },
		func() error { return g.CleanAllUnversionedFiles(ctx, out) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return errors.E(op, types.UniquePath(g.dir), err)
		}
	}
	return nil
}

func (g *GitCommand) cleanArgs() []string {
	if strings.EqualFold(os.Getenv(CleanKeepIgnoredFilesEnv), "Y") {
		return []string{"clean", "-dff"}
	}
	return []string{"clean", "-dffx"}
}

// CleanAllUnversionedFiles removes untracked files from the working copy
// and every submodule.
func (g *GitCommand) CleanAllUnversionedFiles(ctx context.Context, out command.OutputConsumer) error {
	const op errors.Op = "gitutil.CleanAllUnversionedFiles"
	report(out, "Cleaning all unversioned files in working copy")
	if err := g.submoduleForEachRecursive(ctx, out, g.cleanArgs()...); err != nil {
		return errors.E(op, err)
	}
	if _, err := g.runInDir(ctx, out, "Unable to clean the working copy", g.cleanArgs()...); err != nil {
		return errors.E(op, err)
	}
	return nil
}

func (g *GitCommand) resetHard(ctx context.Context, out command.OutputConsumer, rev v1.Revision) error {
	const op errors.Op = "gitutil.resetHard"
	report(out, "Updating working copy to revision %s", rev)
	if _, err := g.runInDir(ctx, out, fmt.Sprintf("Unable to reset to revision %s", rev),
		"reset", "--hard", string(rev)); err != nil {
		AmendGitExecError(err, func(e *GitExecError) {
			e.Ref = string(rev)
		})
		return errors.E(op, err)
	}
	return nil
}

func (g *GitCommand) checkoutAllModifiedFilesInSubmodules(ctx context.Context, out command.OutputConsumer) error {
	report(out, "Removing modified files in submodules")
	return g.submoduleForEachRecursive(ctx, out, "checkout", ".")
}

// CurrentBranch returns the branch checked out in the working copy.
func (g *GitCommand) CurrentBranch(ctx context.Context) (string, error) {
	const op errors.Op = "gitutil.CurrentBranch"
	branch, err := g.output(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", errors.E(op, err)
	}
	return branch, nil
}

// CheckoutRemoteBranchToLocal creates the local branch tracking the remote
// one.
func (g *GitCommand) CheckoutRemoteBranchToLocal(ctx context.Context, out command.OutputConsumer) error {
	const op errors.Op = "gitutil.CheckoutRemoteBranchToLocal"
	if _, err := g.runInDir(ctx, out, fmt.Sprintf("Unable to check out branch %s", g.branch),
		"checkout", "-b", g.branch, g.remoteBranch()); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// CurrentRevision returns the commit checked out in the working copy.
func (g *GitCommand) CurrentRevision(ctx context.Context) (v1.Revision, error) {
	const op errors.Op = "gitutil.CurrentRevision"
	rev, err := g.output(ctx, "log", "-1", "--pretty=format:%H")
	if err != nil {
		return "", errors.E(op, err)
	}
	return v1.Revision(rev), nil
}

// WorkingRepositoryURL returns the URL of the origin remote.
func (g *GitCommand) WorkingRepositoryURL(ctx context.Context) (command.URLArgument, error) {
	const op errors.Op = "gitutil.WorkingRepositoryURL"
	url, err := g.output(ctx, "config", "remote.origin.url")
	if err != nil {
		return command.URLArgument{}, errors.E(op, err)
	}
	return command.NewURLArgument(url), nil
}

// IsShallow returns true if the working copy has a truncated history.
func (g *GitCommand) IsShallow() bool {
	_, err := os.Stat(filepath.Join(g.dir, ".git", "shallow"))
	return err == nil
}

// ContainsRevisionInBranch returns true if rev is reachable from the remote
// branch. An unknown revision is not contained.
func (g *GitCommand) ContainsRevisionInBranch(ctx context.Context, rev v1.Revision) bool {
	out, err := g.output(ctx, "branch", "-r", "--contains", string(rev))
	if err != nil {
		klog.V(4).Infof("revision %s is not contained in %s: %v", rev, g.remoteBranch(), err)
		return false
	}
	for _, l := range strings.Split(out, "\n") {
		if strings.TrimSpace(l) == g.remoteBranch() {
			return true
		}
	}
	return false
}

// HasRevision returns true if rev names a commit present in the local
// repository.
func (g *GitCommand) HasRevision(ctx context.Context, rev v1.Revision) (bool, error) {
	const op errors.Op = "gitutil.HasRevision"
	c, err := g.inDir("rev-parse", "--verify", "--quiet", string(rev)+"^{commit}")
	if err != nil {
		return false, errors.E(op, err)
	}
	res, err := g.run(ctx, nil, c.AcceptExitCodes(0, 1), "")
	if err != nil {
		return false, errors.E(op, err)
	}
	return res.ExitCode == 0, nil
}

// CheckConnection verifies that url is reachable and has the branch.
func (g *GitCommand) CheckConnection(ctx context.Context, url command.URLArgument) error {
	const op errors.Op = "gitutil.CheckConnection"
	c := g.cmd("ls-remote").WithArgument(url).WithArg("refs/heads/" + g.branch)
	res, err := g.run(ctx, nil, c, fmt.Sprintf("Error performing command: %s", c.String()))
	if err != nil {
		AmendGitExecError(err, func(e *GitExecError) {
			e.Repo = url.ForDisplay()
			e.Ref = g.branch
		})
		return errors.E(op, errors.Repo(url.ForDisplay()), err)
	}
	var refs []string
	for _, l := range res.Stdout() {
		if strings.TrimSpace(l) != "" {
			refs = append(refs, l)
		}
	}
	if len(refs) != 1 {
		return errors.E(op, errors.Git, errors.Repo(url.ForDisplay()),
			fmt.Errorf("The branch %s could not be found.", g.branch))
	}
	return nil
}
