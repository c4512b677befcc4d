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
	"fmt"
	"regexp"
	"strings"

	"github.com/kptdev/matsync/internal/errors"
	"github.com/kptdev/matsync/internal/redact"
)

type GitExecErrorType int

const (
	Unknown GitExecErrorType = iota
	GitExecutableNotFound
	UnknownReference
	HTTPSAuthRequired
	RepositoryNotFound
	RepositoryUnavailable
	SubmoduleFailure
)

func (t GitExecErrorType) String() string {
	switch t {
	case GitExecutableNotFound:
		return "git executable not found"
	case UnknownReference:
		return "unknown reference"
	case HTTPSAuthRequired:
		return "authentication required"
	case RepositoryNotFound:
		return "repository not found"
	case RepositoryUnavailable:
		return "repository unavailable"
	case SubmoduleFailure:
		return "submodule failure"
	}
	return "unknown"
}

// GitExecError is returned when a git command exits with a rejected code or
// cannot be started. Every text field holds the masked display form.
type GitExecError struct {
	Type GitExecErrorType
	// Args are the masked arguments, without the git executable.
	Args    []string
	Err     error
	Command string
	Repo    string
	Ref     string
	// Submodule is the path of the submodule git was working on when it
	// failed, if any.
	Submodule string
	StdErr    string
	StdOut    string
}

func (e *GitExecError) Error() string {
	b := new(strings.Builder)
	msg := e.Err.Error()
	b.WriteString(msg)
	if e.Submodule != "" {
		fmt.Fprintf(b, " (submodule path %q)", e.Submodule)
	}
	if s := strings.TrimSpace(e.StdErr); s != "" && !strings.Contains(msg, s) {
		b.WriteString(": ")
		b.WriteString(s)
	}
	return b.String()
}

func (e *GitExecError) Unwrap() error {
	return e.Err
}

// Redact returns a copy of e with all secrets masked.
func (e *GitExecError) Redact(r *redact.Redactor) error {
	return &GitExecError{
		Type:      e.Type,
		Args:      r.RedactLines(e.Args),
		Err:       r.RedactError(e.Err),
		Command:   r.Redact(e.Command),
		Repo:      r.Redact(e.Repo),
		Ref:       r.Redact(e.Ref),
		Submodule: r.Redact(e.Submodule),
		StdErr:    r.Redact(e.StdErr),
		StdOut:    r.Redact(e.StdOut),
	}
}

// AmendGitExecError calls f with the *GitExecError in the chain of err, if
// there is one.
func AmendGitExecError(err error, f func(e *GitExecError)) {
	var gitExecErr *GitExecError
	if errors.As(err, &gitExecErr) {
		f(gitExecErr)
	}
}

var submodulePathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`submodule path '([^']+)'`),
	regexp.MustCompile(`Failed to clone '([^']+)'`),
	regexp.MustCompile(`Stopping at '([^']+)'`),
	regexp.MustCompile(`run_command returned non-zero status for (\S+?)\.?$`),
}

// submodulePath finds the path of the failing submodule in git's stderr.
// Paths are reported relative to the repository root.
func submodulePath(stdErr string) string {
	for _, line := range strings.Split(stdErr, "\n") {
		for _, p := range submodulePathPatterns {
			if m := p.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
				return m[1]
			}
		}
	}
	return ""
}

func determineErrorType(stdErr string) GitExecErrorType {
	switch {
	case strings.Contains(stdErr, "unknown revision or path not in the working tree"),
		strings.Contains(stdErr, "bad revision"),
		strings.Contains(stdErr, "Remote branch") && strings.Contains(stdErr, "not found"):
		return UnknownReference
	case strings.Contains(stdErr, "could not read Username"),
		strings.Contains(stdErr, "Authentication failed"):
		return HTTPSAuthRequired
	case strings.Contains(stdErr, "Could not resolve host"):
		return RepositoryUnavailable
	case matches(`fatal: repository '.*' not found`, stdErr),
		matches(`fatal: '.*' does not appear to be a git repository`, stdErr):
		return RepositoryNotFound
	case submodulePath(stdErr) != "":
		return SubmoduleFailure
	}
	return Unknown
}

func matches(pattern, s string) bool {
	matched, err := regexp.MatchString(pattern, s)
	if err != nil {
		// Only an invalid pattern fails, which is a programming error.
		panic(err)
	}
	return matched
}
