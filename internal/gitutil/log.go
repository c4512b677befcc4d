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

	"github.com/kptdev/matsync/internal/command"
	"github.com/kptdev/matsync/internal/errors"
	"github.com/kptdev/matsync/internal/history"
	"github.com/kptdev/matsync/internal/types"
	v1 "github.com/kptdev/matsync/pkg/api/material/v1"
)

// parserConsumer streams git log stdout into a history.Parser.
type parserConsumer struct {
	p *history.Parser
}

func (c parserConsumer) Stdout(line string) { c.p.Consume(line) }

func (c parserConsumer) Stderr(string) {}

// LatestModification returns the most recent commit of the remote branch.
func (g *GitCommand) LatestModification(ctx context.Context) (v1.Modifications, error) {
	const op errors.Op = "gitutil.LatestModification"
	mods, err := g.gitLog(ctx, true, "-1", g.remoteBranch())
	if err != nil {
		return nil, errors.E(op, err)
	}
	return mods, nil
}

// ModificationsSince returns the commits of the remote branch that came
// after rev, most recent first. A rev that is not an ancestor of the branch
// yields whatever the window holds, possibly nothing. A rev that does not
// exist at all is an errors.Revision error.
func (g *GitCommand) ModificationsSince(ctx context.Context, rev v1.Revision) (v1.Modifications, error) {
	const op errors.Op = "gitutil.ModificationsSince"
	if err := g.fetchUnlessSubmodule(ctx); err != nil {
		return nil, errors.E(op, err)
	}
	found, err := g.HasRevision(ctx, rev)
	if err != nil {
		return nil, errors.E(op, err)
	}
	if !found {
		return nil, errors.E(op, errors.Revision, types.UniquePath(g.dir),
			fmt.Errorf("revision %s does not exist in branch %s", rev, g.branch))
	}
	mods, err := g.gitLog(ctx, false, fmt.Sprintf("%s..%s", rev, g.remoteBranch()))
	if err != nil {
		return nil, errors.E(op, err)
	}
	return mods, nil
}

// ModificationsBetween returns the commits after the oldest revision of rc
// up to and including its latest one. A context without earlier revisions
// yields the latest commit only.
func (g *GitCommand) ModificationsBetween(ctx context.Context, rc v1.RevisionContext) (v1.Modifications, error) {
	const op errors.Op = "gitutil.ModificationsBetween"
	args := []string{"-1", string(rc.Latest())}
	if len(rc.From) > 0 {
		args = []string{fmt.Sprintf("%s..%s", rc.Oldest(), rc.Latest())}
	}
	mods, err := g.gitLog(ctx, false, args...)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return mods, nil
}

// DiffTree returns the files changed by rev.
func (g *GitCommand) DiffTree(ctx context.Context, rev v1.Revision) ([]v1.ModifiedFile, error) {
	const op errors.Op = "gitutil.DiffTree"
	res, err := g.runInDir(ctx, nil, fmt.Sprintf("Unable to list the files of revision %s", rev),
		history.DiffTreeArgs(rev)...)
	if err != nil {
		return nil, errors.E(op, err)
	}
	files, err := history.ParseDiffTree(rev, res.Stdout())
	if err != nil {
		return nil, errors.E(op, err)
	}
	return files, nil
}

func (g *GitCommand) fetchUnlessSubmodule(ctx context.Context) error {
	if g.isSubmodule {
		return nil
	}
	return g.Fetch(ctx, command.Discard)
}

// gitLog runs git log with args and attaches the changed files to every
// parsed modification. Git log only sees what has been fetched, so the
// remote is fetched first when fetch is true.
func (g *GitCommand) gitLog(ctx context.Context, fetch bool, args ...string) (v1.Modifications, error) {
	const op errors.Op = "gitutil.gitLog"
	if fetch {
		if err := g.fetchUnlessSubmodule(ctx); err != nil {
			return nil, errors.E(op, err)
		}
	}

	c, err := g.inDir(append(append([]string(nil), history.LogArgs...), args...)...)
	if err != nil {
		return nil, errors.E(op, err)
	}
	p := &history.Parser{}
	if _, err := g.run(ctx, parserConsumer{p: p}, c, "Unable to read the history"); err != nil {
		return nil, errors.E(op, err)
	}
	mods, err := p.Modifications()
	if err != nil {
		return nil, errors.E(op, types.UniquePath(g.dir), err)
	}
	for i := range mods {
		files, err := g.DiffTree(ctx, mods[i].Revision)
		if err != nil {
			return nil, errors.E(op, err)
		}
		mods[i].Files = files
	}
	return mods, nil
}
