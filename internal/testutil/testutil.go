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

// Package testutil builds real git repositories for tests.
package testutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	v1 "github.com/kptdev/matsync/pkg/api/material/v1"
	"github.com/otiai10/copy"
	"github.com/stretchr/testify/assert"
	assertnow "gotest.tools/assert"
)

const TmpDirPrefix = "test-matsync"

// FirstCommitTime is the author and committer date of the first commit of
// every TestGitRepo. Each later commit is one minute newer.
var FirstCommitTime = time.Date(2009, time.August, 11, 12, 37, 9, 0, time.FixedZone("", -7*60*60))

var AssertNoError = assertnow.NilError

// gitEnv isolates git from the configuration of the machine running the
// tests.
var gitEnv = map[string]string{
	"GIT_CONFIG_NOSYSTEM": "1",
	"GIT_AUTHOR_NAME":     "Cruise Developer",
	"GIT_AUTHOR_EMAIL":    "cruise@example.com",
	"GIT_COMMITTER_NAME":  "Cruise Developer",
	"GIT_COMMITTER_EMAIL": "cruise@example.com",
	"GIT_TERMINAL_PROMPT": "0",
	// Local submodules are cloned over the file protocol.
	"GIT_CONFIG_COUNT":   "2",
	"GIT_CONFIG_KEY_0":   "protocol.file.allow",
	"GIT_CONFIG_VALUE_0": "always",
	"GIT_CONFIG_KEY_1":   "init.defaultBranch",
	"GIT_CONFIG_VALUE_1": v1.DefaultBranch,
}

// ConfigureGitEnv prepares the environment for tests running git and runs
// them. Use it from TestMain:
//
//	func TestMain(m *testing.M) {
//		os.Exit(testutil.ConfigureGitEnv(m))
//	}
func ConfigureGitEnv(m *testing.M) int {
	home, err := os.MkdirTemp("", TmpDirPrefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create home directory: %v\n", err)
		return 1
	}
	defer os.RemoveAll(home)

	env := map[string]string{
		"HOME":              home,
		"XDG_CONFIG_HOME":   filepath.Join(home, ".config"),
		"MATSYNC_CACHE_DIR": filepath.Join(home, "cache"),
	}
	for k, v := range gitEnv {
		env[k] = v
	}
	for k, v := range env {
		if err := os.Setenv(k, v); err != nil {
			fmt.Fprintf(os.Stderr, "failed to set %s: %v\n", k, err)
			return 1
		}
	}
	return m.Run()
}

// TestGitRepo manages a local git repository for testing
type TestGitRepo struct {
	t *testing.T

	// RepoDirectory is the temp directory of the git repo
	RepoDirectory string

	commits int
}

// NewTestGitRepo initializes an empty repository on the master branch.
func NewTestGitRepo(t *testing.T) *TestGitRepo {
	g := &TestGitRepo{
		t:             t,
		RepoDirectory: filepath.Join(t.TempDir(), "repo"),
	}
	AssertNoError(t, os.MkdirAll(g.RepoDirectory, 0700))
	g.Git("init", "--initial-branch="+v1.DefaultBranch)
	return g
}

// URL returns the file:// URL of the repository. Shallow clones need the
// file protocol, git ignores --depth for plain local paths.
func (g *TestGitRepo) URL() string {
	return "file://" + g.RepoDirectory
}

// Git runs git in the repository and returns its trimmed output. Commits get
// deterministic dates.
func (g *TestGitRepo) Git(args ...string) string {
	g.t.Helper()
	return runGit(g.t, g.RepoDirectory, g.nextDate(), args...)
}

func (g *TestGitRepo) nextDate() string {
	return FirstCommitTime.Add(time.Duration(g.commits) * time.Minute).Format(time.RFC3339)
}

// WriteFile writes content to path, relative to the repository root.
func (g *TestGitRepo) WriteFile(path, content string) {
	g.t.Helper()
	full := filepath.Join(g.RepoDirectory, path)
	AssertNoError(g.t, os.MkdirAll(filepath.Dir(full), 0700))
	AssertNoError(g.t, os.WriteFile(full, []byte(content), 0600))
}

// CommitFile writes and commits one file and returns the new revision.
func (g *TestGitRepo) CommitFile(path, content, message string) v1.Revision {
	g.t.Helper()
	g.WriteFile(path, content)
	g.Git("add", path)
	return g.Commit(message)
}

// RemoveFile deletes and commits one file and returns the new revision.
func (g *TestGitRepo) RemoveFile(path, message string) v1.Revision {
	g.t.Helper()
	g.Git("rm", "-q", path)
	return g.Commit(message)
}

// Commit commits the staged changes and returns the new revision.
func (g *TestGitRepo) Commit(message string) v1.Revision {
	g.t.Helper()
	g.Git("commit", "-q", "-m", message)
	g.commits++
	return g.Head()
}

// Amend rewrites the last commit with a new message and returns the new
// revision.
func (g *TestGitRepo) Amend(message string) v1.Revision {
	g.t.Helper()
	g.Git("commit", "-q", "--amend", "-m", message)
	g.commits++
	return g.Head()
}

// ResetHard moves the current branch to rev, dropping later commits.
func (g *TestGitRepo) ResetHard(rev v1.Revision) {
	g.t.Helper()
	g.Git("reset", "-q", "--hard", string(rev))
}

// Head returns the revision of HEAD.
func (g *TestGitRepo) Head() v1.Revision {
	g.t.Helper()
	return v1.Revision(g.Git("rev-parse", "HEAD"))
}

// CheckoutBranch checks out branch, creating it first if create is true.
func (g *TestGitRepo) CheckoutBranch(branch string, create bool) {
	g.t.Helper()
	if create {
		g.Git("checkout", "-q", "-b", branch)
		return
	}
	g.Git("checkout", "-q", branch)
}

// AddSubmodule adds sub at path and commits it.
func (g *TestGitRepo) AddSubmodule(sub *TestGitRepo, path string) v1.Revision {
	g.t.Helper()
	g.Git("submodule", "add", "-q", sub.RepoDirectory, path)
	return g.Commit("Added submodule " + path)
}

// CopyRepo duplicates the repository, history included, into a new
// temporary directory.
func CopyRepo(t *testing.T, g *TestGitRepo) *TestGitRepo {
	t.Helper()
	dst := filepath.Join(t.TempDir(), "repo")
	AssertNoError(t, copy.Copy(g.RepoDirectory, dst))
	return &TestGitRepo{
		t:             t,
		RepoDirectory: dst,
		commits:       g.commits,
	}
}

// NewRepoWithCommits creates a repository with n commits, each adding the
// file file<i>.txt. The revisions are returned oldest first.
func NewRepoWithCommits(t *testing.T, n int) (*TestGitRepo, []v1.Revision) {
	t.Helper()
	g := NewTestGitRepo(t)
	var revs []v1.Revision
	for i := 1; i <= n; i++ {
		revs = append(revs, g.CommitFile(
			fmt.Sprintf("file%d.txt", i),
			fmt.Sprintf("content %d\n", i),
			fmt.Sprintf("Added file%d.txt", i),
		))
	}
	return g, revs
}

// GitOutput runs git in dir and returns its trimmed output.
func GitOutput(t *testing.T, dir string, args ...string) string {
	t.Helper()
	return runGit(t, dir, "", args...)
}

func runGit(t *testing.T, dir, date string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	if date != "" {
		cmd.Env = append(cmd.Env, "GIT_AUTHOR_DATE="+date, "GIT_COMMITTER_DATE="+date)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s in %q failed: %v\n%s", strings.Join(args, " "), dir, err, out)
	}
	return strings.TrimSpace(string(out))
}

// AssertFileContent verifies the content of path, relative to dir.
func AssertFileContent(t *testing.T, dir, path, expected string) bool {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, path))
	if !assert.NoError(t, err) {
		return false
	}
	return assert.Equal(t, expected, string(b))
}

// AssertNoFile verifies that path, relative to dir, does not exist.
func AssertNoFile(t *testing.T, dir, path string) bool {
	t.Helper()
	_, err := os.Stat(filepath.Join(dir, path))
	return assert.True(t, os.IsNotExist(err), "expected %s to not exist", path)
}
