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

// Package command builds command lines out of secret-aware arguments and
// runs them, keeping every secret out of the text shown to humans.
package command

import (
	"context"
	"fmt"
	"maps"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/kptdev/matsync/internal/errors"
	"github.com/kptdev/matsync/internal/process"
	"github.com/kptdev/matsync/internal/redact"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"k8s.io/klog/v2"
)

// CommandLine describes one invocation of an external program. It is
// configured through its With methods and must not be modified once it has
// been handed to Run; runs take a snapshot so a configured CommandLine can
// be run any number of times.
type CommandLine struct {
	executable string
	args       []Argument
	dir        string
	env        map[string]string
	input      *string
	encoding   encoding.Encoding
	secrets    []string
	success    func(exitCode int) bool
	runner     *process.Runner
}

// New returns a CommandLine for executable.
func New(executable string) *CommandLine {
	return &CommandLine{
		executable: executable,
		env:        map[string]string{},
	}
}

// WithArg appends a plain argument.
func (c *CommandLine) WithArg(arg string) *CommandLine {
	c.args = append(c.args, StringArgument(arg))
	return c
}

// WithArgs appends plain arguments.
func (c *CommandLine) WithArgs(args ...string) *CommandLine {
	for _, a := range args {
		c.WithArg(a)
	}
	return c
}

// WithArgument appends any Argument.
func (c *CommandLine) WithArgument(arg Argument) *CommandLine {
	c.args = append(c.args, arg)
	return c
}

// WithPassword appends an argument that is always displayed masked.
func (c *CommandLine) WithPassword(password string) *CommandLine {
	return c.WithArgument(PasswordArgument(password))
}

// WithURL appends a repository URL whose password is masked for display.
func (c *CommandLine) WithURL(rawURL string) *CommandLine {
	return c.WithArgument(NewURLArgument(rawURL))
}

// WithWorkingDir sets the working directory. It fails immediately when dir
// does not exist or is not a directory.
func (c *CommandLine) WithWorkingDir(dir string) (*CommandLine, error) {
	const op errors.Op = "command.WithWorkingDir"
	fi, err := os.Stat(dir)
	if err != nil {
		return c, errors.E(op, errors.Config,
			fmt.Errorf("working directory %q of %s does not exist: %w", dir, c.executable, err))
	}
	if !fi.IsDir() {
		return c, errors.E(op, errors.Config,
			fmt.Errorf("working directory %q of %s is not a directory", dir, c.executable))
	}
	c.dir = dir
	return c, nil
}

// WithEnv adds environment overrides. Later values for a key win.
func (c *CommandLine) WithEnv(env map[string]string) *CommandLine {
	maps.Copy(c.env, env)
	return c
}

// WithInput sets text written to stdin.
func (c *CommandLine) WithInput(input string) *CommandLine {
	c.input = &input
	return c
}

// WithEncoding sets the text encoding of stdin and of both output streams,
// by its WHATWG or IANA name.
func (c *CommandLine) WithEncoding(name string) (*CommandLine, error) {
	const op errors.Op = "command.WithEncoding"
	enc, err := htmlindex.Get(name)
	if err != nil {
		return c, errors.E(op, errors.Config, fmt.Errorf("unsupported encoding %q: %w", name, err))
	}
	c.encoding = enc
	return c, nil
}

// WithNonArgSecrets registers secrets that are not arguments, for example
// values passed through the environment, so they are masked in output.
func (c *CommandLine) WithNonArgSecrets(secrets ...string) *CommandLine {
	c.secrets = append(c.secrets, secrets...)
	return c
}

// WithSuccessPredicate replaces the default "exit code is zero" check.
func (c *CommandLine) WithSuccessPredicate(success func(exitCode int) bool) *CommandLine {
	c.success = success
	return c
}

// AcceptExitCodes treats each of codes as success.
func (c *CommandLine) AcceptExitCodes(codes ...int) *CommandLine {
	return c.WithSuccessPredicate(func(exitCode int) bool {
		for _, code := range codes {
			if code == exitCode {
				return true
			}
		}
		return false
	})
}

// WithRunner runs the command on r instead of process.Default.
func (c *CommandLine) WithRunner(r *process.Runner) *CommandLine {
	c.runner = r
	return c
}

// Executable returns the program name.
func (c *CommandLine) Executable() string {
	return c.executable
}

// WorkingDir returns the working directory, empty if unset.
func (c *CommandLine) WorkingDir() string {
	return c.dir
}

// Args returns the real argument values.
func (c *CommandLine) Args() []string {
	out := make([]string, 0, len(c.args))
	for _, a := range c.args {
		out = append(out, a.ForCommandLine())
	}
	return out
}

// DisplayArgs returns the masked argument values.
func (c *CommandLine) DisplayArgs() []string {
	out := make([]string, 0, len(c.args))
	for _, a := range c.args {
		out = append(out, a.ForDisplay())
	}
	return out
}

// String returns the masked command line. Secrets registered without an
// argument are masked too.
func (c *CommandLine) String() string {
	return c.Redactor().Redact(strings.Join(append([]string{c.executable}, c.DisplayArgs()...), " "))
}

// Redactor returns a redactor for every secret of the command line.
func (c *CommandLine) Redactor() *redact.Redactor {
	secrets := append([]string(nil), c.secrets...)
	for _, a := range c.args {
		if h, ok := a.(SecretHolder); ok {
			secrets = append(secrets, h.Secrets()...)
		}
	}
	return redact.New(secrets...)
}

// Spec returns the immutable snapshot handed to the process runner.
func (c *CommandLine) Spec() process.Spec {
	s := process.Spec{
		Path:     c.executable,
		Args:     c.Args(),
		Dir:      c.dir,
		Env:      maps.Clone(c.env),
		Encoding: c.encoding,
		Display:  c.String(),
	}
	if c.input != nil {
		s.Input, s.HasInput = *c.input, true
	}
	return s
}

func (c *CommandLine) succeeded(exitCode int) bool {
	if c.success != nil {
		return c.success(exitCode)
	}
	return exitCode == 0
}

// Run runs the command and streams redacted output to out. A non-nil error
// means the command could not be run to completion; a rejected exit code
// is reported through Result.Failed.
func (c *CommandLine) Run(ctx context.Context, out OutputConsumer) (*Result, error) {
	const op errors.Op = "command.Run"
	if out == nil {
		out = Discard
	}
	red := c.Redactor()
	res := &Result{Command: c.String(), redactor: red}

	var mu sync.Mutex
	stdout := process.LineSinkFunc(func(line string) {
		mu.Lock()
		res.stdout = append(res.stdout, line)
		mu.Unlock()
		out.Stdout(red.Redact(line))
	})
	stderr := process.LineSinkFunc(func(line string) {
		mu.Lock()
		res.stderr = append(res.stderr, line)
		mu.Unlock()
		out.Stderr(red.Redact(line))
	})

	runner := c.runner
	if runner == nil {
		runner = process.Default
	}
	code, err := runner.Run(ctx, c.Spec(), stdout, stderr)
	res.ExitCode = code
	if err != nil {
		return res, red.RedactError(errors.E(op, err))
	}
	res.failed = !c.succeeded(code)
	if res.failed {
		klog.V(3).Infof("%s failed with exit code %d", res.Command, code)
	}
	return res, nil
}

// RunOrFail runs the command and returns a *CommandError, with msg as its
// summary, when the exit code is rejected.
func (c *CommandLine) RunOrFail(ctx context.Context, out OutputConsumer, msg string) (*Result, error) {
	const op errors.Op = "command.RunOrFail"
	res, err := c.Run(ctx, out)
	if err != nil {
		return res, err
	}
	if res.Failed() {
		return res, errors.E(op, newCommandError(msg, res))
	}
	return res, nil
}

// RunWithTimeout runs the command every interval until it succeeds or
// timeout expires. Output of every attempt is streamed to out.
func (c *CommandLine) RunWithTimeout(ctx context.Context, out OutputConsumer, interval, timeout time.Duration) (*Result, error) {
	var last *Result
	err := process.PollUntil(ctx, c.String(), interval, timeout, func(ctx context.Context) (bool, error) {
		res, err := c.RunOrFail(ctx, out, "")
		last = res
		if err != nil {
			return false, err
		}
		return true, nil
	})
	return last, c.Redactor().RedactError(err)
}
