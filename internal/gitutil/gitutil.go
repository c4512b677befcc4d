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

// Package gitutil drives the git executable over a working copy.
package gitutil

import (
	"context"
	"crypto/md5"
	"encoding/base32"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/kptdev/matsync/internal/command"
	"github.com/kptdev/matsync/internal/errors"
	"github.com/kptdev/matsync/internal/process"
	"github.com/kptdev/matsync/internal/types"
	v1 "github.com/kptdev/matsync/pkg/api/material/v1"
	"k8s.io/klog/v2"
)

const (
	// GitPathEnv is the name of the environment variable that selects the
	// git executable. Defaults to git on PATH if unspecified.
	GitPathEnv = "MATSYNC_GIT"

	// RepoCacheDirEnv is the name of the environment variable that controls
	// the cache directory for server side checks. Defaults to
	// UserHomeDir/.matsync/materials if unspecified.
	RepoCacheDirEnv = "MATSYNC_CACHE_DIR"

	// CleanKeepIgnoredFilesEnv set to Y makes git clean leave ignored files
	// in place.
	CleanKeepIgnoredFilesEnv = "MATSYNC_GIT_CLEAN_KEEP_IGNORED_FILES"

	// FullDepth asks for the complete history.
	FullDepth = math.MaxInt32
)

// SubmoduleURLResolver returns the URL of every submodule of the working
// copy, keyed by submodule name.
type SubmoduleURLResolver func(ctx context.Context, g *GitCommand) (map[string]string, error)

// Option configures a GitCommand.
type Option func(*GitCommand)

// WithEnv adds environment overrides to every git invocation.
func WithEnv(env map[string]string) Option {
	return func(g *GitCommand) {
		for k, v := range env {
			g.env[k] = v
		}
	}
}

// WithSecrets registers values that must never be shown, such as a password
// that is not part of any argument.
func WithSecrets(secrets ...string) Option {
	return func(g *GitCommand) {
		g.secrets = append(g.secrets, secrets...)
	}
}

// AsSubmodule marks the working copy as a submodule of another one. History
// queries on a submodule do not fetch first.
func AsSubmodule() Option {
	return func(g *GitCommand) {
		g.isSubmodule = true
	}
}

// WithSubmoduleURLResolver replaces how submodule URLs are looked up.
func WithSubmoduleURLResolver(r SubmoduleURLResolver) Option {
	return func(g *GitCommand) {
		g.resolver = r
	}
}

// WithRunner runs git on r instead of process.Default.
func WithRunner(r *process.Runner) Option {
	return func(g *GitCommand) {
		g.runner = r
	}
}

// WithGitPath overrides the git executable.
func WithGitPath(p string) Option {
	return func(g *GitCommand) {
		g.gitPath = p
	}
}

// GitCommand runs git commands for one working copy and one branch.
type GitCommand struct {
	dir         string
	branch      string
	gitPath     string
	env         map[string]string
	secrets     []string
	isSubmodule bool
	resolver    SubmoduleURLResolver
	runner      *process.Runner
}

// New returns a GitCommand for the working copy in dir. A blank branch
// means v1.DefaultBranch.
func New(dir, branch string, opts ...Option) *GitCommand {
	if strings.TrimSpace(branch) == "" {
		branch = v1.DefaultBranch
	}
	g := &GitCommand{
		dir:      dir,
		branch:   strings.TrimSpace(branch),
		gitPath:  gitPath(),
		env:      map[string]string{},
		resolver: ConfigSubmoduleURLs,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func gitPath() string {
	if p := os.Getenv(GitPathEnv); p != "" {
		return p
	}
	return "git"
}

// Dir returns the working copy directory.
func (g *GitCommand) Dir() string {
	return g.dir
}

// Branch returns the branch the commands operate on.
func (g *GitCommand) Branch() string {
	return g.branch
}

// IsSubmodule returns true if the working copy is a submodule.
func (g *GitCommand) IsSubmodule() bool {
	return g.isSubmodule
}

func (g *GitCommand) remoteBranch() string {
	return "origin/" + g.branch
}

// cmd returns a git command line without a working directory.
func (g *GitCommand) cmd(args ...string) *command.CommandLine {
	return command.New(g.gitPath).
		WithArgs(args...).
		WithEnv(g.env).
		WithNonArgSecrets(g.secrets...).
		WithRunner(g.runner)
}

// inDir returns a git command line running in the working copy.
func (g *GitCommand) inDir(args ...string) (*command.CommandLine, error) {
	const op errors.Op = "gitutil.inDir"
	c, err := g.cmd(args...).WithWorkingDir(g.dir)
	if err != nil {
		return nil, errors.E(op, types.UniquePath(g.dir), err)
	}
	return c, nil
}

// run runs c and turns a rejected exit code into a *GitExecError.
func (g *GitCommand) run(ctx context.Context, out command.OutputConsumer, c *command.CommandLine, msg string) (*command.Result, error) {
	const op errors.Op = "gitutil.run"
	res, err := c.RunOrFail(ctx, out, msg)
	if err == nil {
		return res, nil
	}

	var cmdErr *command.CommandError
	if !errors.As(err, &cmdErr) {
		if errors.IsKind(err, errors.Spawn) {
			return res, errors.E(op, errors.Spawn, &GitExecError{
				Type:    GitExecutableNotFound,
				Args:    c.DisplayArgs(),
				Command: c.String(),
				Err:     err,
			})
		}
		return res, err
	}

	stdErr := strings.Join(res.Stderr(), "\n")
	return res, errors.E(op, errors.Git, &GitExecError{
		Type:      determineErrorType(stdErr),
		Args:      c.DisplayArgs(),
		Command:   c.String(),
		Submodule: submodulePath(stdErr),
		StdOut:    cmdErr.StdOut,
		StdErr:    cmdErr.StdErr,
		Err:       cmdErr,
	})
}

// runInDir builds a command running in the working copy and runs it.
func (g *GitCommand) runInDir(ctx context.Context, out command.OutputConsumer, msg string, args ...string) (*command.Result, error) {
	c, err := g.inDir(args...)
	if err != nil {
		return nil, err
	}
	return g.run(ctx, out, c, msg)
}

// output runs a query in the working copy and returns its trimmed stdout.
func (g *GitCommand) output(ctx context.Context, args ...string) (string, error) {
	res, err := g.runInDir(ctx, nil, "", args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.OutputAsString()), nil
}

func report(out command.OutputConsumer, format string, args ...interface{}) {
	msg := fmt.Sprintf("[GIT] "+format, args...)
	klog.V(3).Info(msg)
	if out != nil {
		out.Stdout(msg)
	}
}

var versionPattern = regexp.MustCompile(`git version (\d+)\.(\d+)(?:\.(\d+))?`)

var minSubmoduleDepthVersion = semver.MustParse("2.10.0")

// Version is the version of the git executable.
type Version struct {
	*semver.Version
}

// SupportsSubmoduleDepth returns true if git can update submodules
// shallowly.
func (v Version) SupportsSubmoduleDepth() bool {
	return !v.LessThan(minSubmoduleDepthVersion)
}

// ParseVersion parses the output of git version, for example
// "git version 2.39.2 (Apple Git-143)".
func ParseVersion(s string) (Version, error) {
	const op errors.Op = "gitutil.ParseVersion"
	m := versionPattern.FindStringSubmatch(s)
	if m == nil {
		return Version{}, errors.E(op, errors.Git, fmt.Errorf("unable to parse git version %q", strings.TrimSpace(s)))
	}
	patch := m[3]
	if patch == "" {
		patch = "0"
	}
	v, err := semver.NewVersion(fmt.Sprintf("%s.%s.%s", m[1], m[2], patch))
	if err != nil {
		return Version{}, errors.E(op, errors.Git, err)
	}
	return Version{v}, nil
}

// Version returns the version of the git executable.
func (g *GitCommand) Version(ctx context.Context) (Version, error) {
	const op errors.Op = "gitutil.Version"
	res, err := g.run(ctx, nil, g.cmd("version"), "unable to determine the git version")
	if err != nil {
		return Version{}, errors.E(op, err)
	}
	return ParseVersion(res.OutputAsString())
}

// getRepoDir returns the cache directory name for a material. This takes
// the md5 hash of the fingerprint and then base32 encodes it to make sure
// it doesn't contain characters that aren't legal in directory names.
func getRepoDir(fingerprint string) string {
	sum := md5.Sum([]byte(fingerprint))
	return strings.ToLower(strings.TrimRight(base32.StdEncoding.EncodeToString(sum[:]), "="))
}

// getRepoCacheDir returns the root of the cache directories.
func getRepoCacheDir() (string, error) {
	const op errors.Op = "gitutil.getRepoCacheDir"
	if dir := os.Getenv(RepoCacheDirEnv); dir != "" {
		return dir, nil
	}

	// cache location unspecified, use UserHomeDir/.matsync/materials
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.E(op, errors.IO, fmt.Errorf(
			"error looking up user home dir: %w", err))
	}
	return filepath.Join(dir, ".matsync", "materials"), nil
}

// FlyweightDir returns the directory server side checks of m run in. The
// same material always maps to the same directory.
func FlyweightDir(m *v1.GitMaterial) (string, error) {
	const op errors.Op = "gitutil.FlyweightDir"
	cacheDir, err := getRepoCacheDir()
	if err != nil {
		return "", errors.E(op, err)
	}
	if err := os.MkdirAll(cacheDir, 0700); err != nil {
		return "", errors.E(op, errors.IO, fmt.Errorf(
			"error creating cache directory for materials: %w", err))
	}
	return filepath.Join(cacheDir, getRepoDir(m.Fingerprint())), nil
}
