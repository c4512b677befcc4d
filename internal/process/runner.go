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

// Package process runs external programs, draining their output streams
// concurrently and tracking every live child until it has been reaped.
package process

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/kptdev/matsync/internal/errors"
	"github.com/kptdev/matsync/internal/metrics"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
	"k8s.io/klog/v2"
)

// LineSink receives the lines of one output stream, without line endings.
type LineSink interface {
	Consume(line string)
}

// LineSinkFunc adapts a function to a LineSink.
type LineSinkFunc func(line string)

func (f LineSinkFunc) Consume(line string) { f(line) }

// Discard drops all lines.
var Discard LineSink = LineSinkFunc(func(string) {})

// Spec is an immutable snapshot of an invocation.
type Spec struct {
	// Path is the program to run. It is resolved against PATH when it
	// contains no separator.
	Path string
	// Args are passed literally, never through a shell.
	Args []string
	// Dir is the working directory, empty for the current one.
	Dir string
	// Env overrides are merged into the environment of this process.
	Env map[string]string
	// Input is written to stdin when HasInput is set, then stdin is closed.
	Input    string
	HasInput bool
	// Encoding decodes output and encodes input. Nil means UTF-8.
	Encoding encoding.Encoding
	// Display is the masked command line used in logs and errors.
	Display string
}

// StartError is returned when the program could not be started at all.
type StartError struct {
	Command string
	Dir     string
	PATH    string
	Err     error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("could not start process %q in %q: %v. PATH is %q",
		e.Command, e.Dir, e.Err, e.PATH)
}

func (e *StartError) Unwrap() error {
	return e.Err
}

// Runner starts processes and keeps them in its Table while they run.
type Runner struct {
	Table *Table
}

// NewRunner returns a Runner with its own process table.
func NewRunner() *Runner {
	return &Runner{Table: NewTable()}
}

// Default is the runner used when callers do not provide one.
var Default = NewRunner()

// Run executes spec and blocks until the process has exited and both
// output streams are fully drained. The exit code is returned together with
// a nil error when the process ran to completion, whatever its exit code.
// When ctx is done the whole process group is killed.
func (r *Runner) Run(ctx context.Context, spec Spec, stdout, stderr LineSink) (int, error) {
	const op errors.Op = "process.Run"
	if stdout == nil {
		stdout = Discard
	}
	if stderr == nil {
		stderr = Discard
	}
	display := spec.Display
	if display == "" {
		display = spec.Path
	}
	program := filepath.Base(spec.Path)
	start := time.Now()

	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = MergeEnv(os.Environ(), spec.Env)
	configureProcessGroup(cmd)

	if spec.HasInput {
		input := spec.Input
		if spec.Encoding != nil {
			encoded, _, err := transform.String(spec.Encoding.NewEncoder(), input)
			if err != nil {
				return -1, errors.E(op, errors.Config, fmt.Errorf("encoding input for %s: %w", display, err))
			}
			input = encoded
		}
		cmd.Stdin = strings.NewReader(input)
	}

	outPipe, err := cmd.StdoutPipe()
	if err != nil {
		return -1, errors.E(op, errors.Internal, err)
	}
	errPipe, err := cmd.StderrPipe()
	if err != nil {
		return -1, errors.E(op, errors.Internal, err)
	}

	klog.V(4).Infof("running %s in %q", display, spec.Dir)
	if err := cmd.Start(); err != nil {
		metrics.ObserveProcess(program, "spawn_error", start)
		return -1, errors.E(op, errors.Spawn, &StartError{
			Command: display,
			Dir:     spec.Dir,
			PATH:    searchPath(spec.Env),
			Err:     err,
		})
	}

	h := r.table().register(cmd)
	defer r.table().release(h)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			klog.V(2).Infof("killing %s: %v", display, ctx.Err())
			if err := killProcessGroup(cmd); err != nil {
				klog.Warningf("failed to kill %s: %v", display, err)
			}
		case <-done:
		}
	}()

	var g errgroup.Group
	g.Go(func() error { return pump(outPipe, spec.Encoding, stdout) })
	g.Go(func() error { return pump(errPipe, spec.Encoding, stderr) })
	pumpErr := g.Wait()
	waitErr := cmd.Wait()

	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		metrics.ObserveProcess(program, metrics.KeyError, start)
		kind := errors.Other
		if ctxErr == context.DeadlineExceeded {
			kind = errors.Timeout
		}
		return exitCode, errors.E(op, kind, fmt.Errorf("%s: %w", display, ctxErr))
	}
	if pumpErr != nil {
		metrics.ObserveProcess(program, metrics.KeyError, start)
		return exitCode, errors.E(op, errors.IO, fmt.Errorf("reading output of %s: %w", display, pumpErr))
	}
	if waitErr != nil {
		if _, ok := waitErr.(*exec.ExitError); !ok {
			metrics.ObserveProcess(program, metrics.KeyError, start)
			return exitCode, errors.E(op, errors.Internal, fmt.Errorf("waiting for %s: %w", display, waitErr))
		}
	}

	outcome := metrics.KeySuccess
	if exitCode != 0 {
		outcome = metrics.KeyError
	}
	metrics.ObserveProcess(program, outcome, start)
	klog.V(4).Infof("%s exited with code %d", display, exitCode)
	return exitCode, nil
}

func (r *Runner) table() *Table {
	if r.Table == nil {
		r.Table = NewTable()
	}
	return r.Table
}

// pump reads rc line by line until EOF. Lines of any length are supported.
func pump(rc io.Reader, enc encoding.Encoding, sink LineSink) error {
	if enc != nil {
		rc = transform.NewReader(rc, enc.NewDecoder())
	}
	br := bufio.NewReader(rc)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			sink.Consume(strings.TrimRight(line, "\r\n"))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// MergeEnv returns base with overrides applied. Keys of overrides replace
// existing entries and are appended in sorted order otherwise.
func MergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		k, _, _ := strings.Cut(kv, "=")
		if _, found := overrides[k]; found {
			continue
		}
		out = append(out, kv)
	}
	for _, k := range slices.Sorted(maps.Keys(overrides)) {
		out = append(out, k+"="+overrides[k])
	}
	return out
}

func searchPath(overrides map[string]string) string {
	if p, found := overrides["PATH"]; found {
		return p
	}
	return os.Getenv("PATH")
}
