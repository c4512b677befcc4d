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
	"fmt"
	"os"
	"path/filepath"

	"github.com/kptdev/matsync/internal/command"
	"github.com/kptdev/matsync/internal/gitutil"
	v1 "github.com/kptdev/matsync/pkg/api/material/v1"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/klog/v2"
)

// State is what is on disk in a working copy directory. It is read again
// before every decision since anything may have changed it in between.
type State struct {
	// Exists is true if the directory exists and is not empty.
	Exists bool
	// HasMetadata is true if the directory holds a .git directory.
	HasMetadata bool
	Shallow     bool
	// ClonedShallow is true if the copy was cloned shallow, whether or not
	// it has been deepened since.
	ClonedShallow bool
	// RemoteURL is the origin URL, empty when it could not be read.
	RemoteURL command.URLArgument
	// Branch is the checked out branch, empty when it could not be read.
	Branch     string
	Submodules sets.Set[string]
}

// ReadState inspects the working copy git operates on. A working copy that
// is too broken to be queried yields a State the planner reclones.
func ReadState(ctx context.Context, git *gitutil.GitCommand) State {
	st := State{Submodules: sets.New[string]()}
	dir := git.Dir()

	entries, err := os.ReadDir(dir)
	st.Exists = err == nil && len(entries) > 0
	if fi, err := os.Stat(filepath.Join(dir, ".git")); err == nil && fi.IsDir() {
		st.HasMetadata = true
	}
	if !st.HasMetadata {
		return st
	}

	st.Shallow = git.IsShallow()
	st.ClonedShallow = git.ClonedShallow(ctx)
	if url, err := git.WorkingRepositoryURL(ctx); err == nil {
		st.RemoteURL = url
	} else {
		klog.V(2).Infof("unable to read the remote url of %q: %v", dir, err)
	}
	if branch, err := git.CurrentBranch(ctx); err == nil {
		st.Branch = branch
	} else {
		klog.V(2).Infof("unable to read the branch of %q: %v", dir, err)
	}
	if subs, err := git.InitializedSubmodules(ctx); err == nil {
		st.Submodules = subs
	} else {
		klog.V(2).Infof("unable to list the submodules of %q: %v", dir, err)
	}
	return st
}

// Action is what a synchronization does with the working copy before
// fetching.
type Action string

const (
	ActionClone                   Action = "clone"
	ActionFetchReset              Action = "fetch_reset"
	ActionReclone                 Action = "reclone"
	ActionUnshallowThenFetchReset Action = "unshallow_fetch_reset"
)

// Decision is the outcome of Plan.
type Decision struct {
	Action Action
	// Reason explains the action for humans. It never holds secrets.
	Reason string
}

// Plan decides how to bring the working copy described by st to the
// material m. It has no side effects.
func Plan(m *v1.GitMaterial, st State) Decision {
	switch {
	case !st.HasMetadata:
		reason := "no working copy"
		if st.Exists {
			reason = "directory is not a git working copy"
		}
		return Decision{Action: ActionClone, Reason: reason}

	case !v1.SameURL(CommandLineURL(m).ForCommandLine(), st.RemoteURL.ForCommandLine()):
		return Decision{
			Action: ActionReclone,
			Reason: fmt.Sprintf("repository changed from %s to %s", st.RemoteURL.ForDisplay(), CommandLineURL(m).ForDisplay()),
		}

	// A blank branch is never compared.
	case !m.BranchIsBlank() && m.EffectiveBranch() != st.Branch:
		return Decision{
			Action: ActionReclone,
			Reason: fmt.Sprintf("branch changed from %q to %q", st.Branch, m.EffectiveBranch()),
		}

	// A shallow clone deepened by an earlier window is kept.
	case m.ShallowClone && !st.Shallow && !st.ClonedShallow:
		return Decision{Action: ActionReclone, Reason: "shallow clone requested for a full working copy"}

	case !m.ShallowClone && st.Shallow:
		return Decision{Action: ActionUnshallowThenFetchReset, Reason: "full clone requested for a shallow working copy"}
	}
	return Decision{Action: ActionFetchReset, Reason: "working copy is up to date with the material"}
}
