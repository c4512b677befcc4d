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
	"regexp"
	"slices"
	"strings"

	"github.com/kptdev/matsync/internal/command"
	"github.com/kptdev/matsync/internal/errors"
	"k8s.io/apimachinery/pkg/util/sets"
)

var (
	submoduleStatusPattern = regexp.MustCompile(`^.[0-9a-fA-F]{40,64} (.+?)( \(.+\))?$`)
	submoduleURLPattern    = regexp.MustCompile(`^submodule\.(.+)\.url (.+)$`)
)

func (g *GitCommand) hasSubmodules() bool {
	_, err := os.Stat(filepath.Join(g.dir, ".gitmodules"))
	return err == nil
}

// shellQuote quotes s for the shell git submodule foreach runs commands in.
func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$`;&|<>()*?[]#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// submoduleForEachRecursive runs git with args in every submodule,
// recursively.
func (g *GitCommand) submoduleForEachRecursive(ctx context.Context, out command.OutputConsumer, args ...string) error {
	const op errors.Op = "gitutil.submoduleForEachRecursive"
	words := []string{shellQuote(g.gitPath)}
	for _, a := range args {
		words = append(words, shellQuote(a))
	}
	if _, err := g.runInDir(ctx, out, "Unable to run a command in the submodules",
		"submodule", "foreach", "--recursive", strings.Join(words, " ")); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// UpdateSubmoduleWithInit initializes, syncs and updates all submodules. A
// shallow update that fails is retried with the full history.
func (g *GitCommand) UpdateSubmoduleWithInit(ctx context.Context, out command.OutputConsumer, shallow bool) error {
	const op errors.Op = "gitutil.UpdateSubmoduleWithInit"
	if !g.hasSubmodules() {
		return nil
	}
	report(out, "Updating git sub-modules")
	if _, err := g.runInDir(ctx, out, "Unable to initialize submodules", "submodule", "init"); err != nil {
		return errors.E(op, err)
	}
	if err := g.SubmoduleSync(ctx, out); err != nil {
		return errors.E(op, err)
	}

	updated := false
	if shallow {
		v, err := g.Version(ctx)
		if err == nil && v.SupportsSubmoduleDepth() {
			if err := g.updateSubmodules(ctx, out, "--depth=1"); err != nil {
				report(out, "Fetching submodules with depth 1 failed. Retrying with full depth")
			} else {
				updated = true
			}
		}
	}
	if !updated {
		if err := g.updateSubmodules(ctx, out); err != nil {
			return errors.E(op, err)
		}
	}

	report(out, "Git sub-module status")
	if _, err := g.runInDir(ctx, out, "Unable to print the submodule status", "submodule", "status"); err != nil {
		return errors.E(op, err)
	}
	return nil
}

func (g *GitCommand) updateSubmodules(ctx context.Context, out command.OutputConsumer, extra ...string) error {
	args := append([]string{"submodule", "update", "--init", "--recursive"}, extra...)
	_, err := g.runInDir(ctx, out, "Unable to update submodules", args...)
	return err
}

// SubmoduleSync points the submodule remotes at the URLs in .gitmodules.
func (g *GitCommand) SubmoduleSync(ctx context.Context, out command.OutputConsumer) error {
	const op errors.Op = "gitutil.SubmoduleSync"
	if _, err := g.runInDir(ctx, out, "Unable to sync submodules", "submodule", "sync", "--recursive"); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// SubmoduleFolders returns the paths of the submodules of the working copy.
func (g *GitCommand) SubmoduleFolders(ctx context.Context) ([]string, error) {
	const op errors.Op = "gitutil.SubmoduleFolders"
	res, err := g.runInDir(ctx, nil, "Unable to list submodules", "submodule", "status")
	if err != nil {
		return nil, errors.E(op, err)
	}
	var folders []string
	for _, l := range res.Stdout() {
		if strings.TrimSpace(l) == "" {
			continue
		}
		m := submoduleStatusPattern.FindStringSubmatch(l)
		if m == nil {
			return nil, errors.E(op, errors.Git, fmt.Errorf("unable to parse git submodule output line %q", l))
		}
		folders = append(folders, m[1])
	}
	return folders, nil
}

// InitializedSubmodules returns the set of submodule paths that are checked
// out.
func (g *GitCommand) InitializedSubmodules(ctx context.Context) (sets.Set[string], error) {
	const op errors.Op = "gitutil.InitializedSubmodules"
	if !g.hasSubmodules() {
		return sets.New[string](), nil
	}
	folders, err := g.SubmoduleFolders(ctx)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return sets.New(folders...), nil
}

// SubmoduleURLs returns the URL of every submodule keyed by name.
func (g *GitCommand) SubmoduleURLs(ctx context.Context) (map[string]string, error) {
	return g.resolver(ctx, g)
}

// ConfigSubmoduleURLs reads submodule URLs from the repository
// configuration. It is the default SubmoduleURLResolver.
func ConfigSubmoduleURLs(ctx context.Context, g *GitCommand) (map[string]string, error) {
	const op errors.Op = "gitutil.ConfigSubmoduleURLs"
	c, err := g.inDir("config", "--get-regexp", `^submodule\..+\.url`)
	if err != nil {
		return nil, errors.E(op, err)
	}
	// git config exits with 1 when nothing matches.
	res, err := g.run(ctx, nil, c.AcceptExitCodes(0, 1), "Unable to read submodule urls")
	if err != nil {
		return nil, errors.E(op, err)
	}
	urls := map[string]string{}
	for _, l := range res.Stdout() {
		if m := submoduleURLPattern.FindStringSubmatch(strings.TrimSpace(l)); m != nil {
			urls[m[1]] = m[2]
		}
	}
	return urls, nil
}

// ChangeSubmoduleURL rewrites the URL of submodule name in .gitmodules.
func (g *GitCommand) ChangeSubmoduleURL(ctx context.Context, name string, url command.URLArgument) error {
	const op errors.Op = "gitutil.ChangeSubmoduleURL"
	c, err := g.inDir("config", "--file", ".gitmodules", "submodule."+name+".url")
	if err != nil {
		return errors.E(op, err)
	}
	if _, err := g.run(ctx, nil, c.WithArgument(url),
		fmt.Sprintf("Unable to change the url of submodule %s", name)); err != nil {
		AmendGitExecError(err, func(e *GitExecError) {
			e.Submodule = name
		})
		return errors.E(op, err)
	}
	return nil
}

// removeSubmoduleSectionsFromGitConfig drops submodule configuration so
// that submodules removed upstream do not linger.
func (g *GitCommand) removeSubmoduleSectionsFromGitConfig(ctx context.Context, out command.OutputConsumer) error {
	const op errors.Op = "gitutil.removeSubmoduleSectionsFromGitConfig"
	report(out, "Cleaning submodule configurations in .git/config")
	urls, err := g.SubmoduleURLs(ctx)
	if err != nil {
		return errors.E(op, err)
	}
	names := make([]string, 0, len(urls))
	for name := range urls {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if _, err := g.runInDir(ctx, out, fmt.Sprintf("Unable to remove the configuration of submodule %s", name),
			"config", "--remove-section", "submodule."+name); err != nil {
			AmendGitExecError(err, func(e *GitExecError) {
				e.Submodule = name
			})
			return errors.E(op, err)
		}
	}
	return nil
}
