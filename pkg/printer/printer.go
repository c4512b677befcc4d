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

// Package printer defines utilities to display matsync CLI output.
package printer

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/kptdev/matsync/internal/command"
	"github.com/kptdev/matsync/internal/redact"
	"github.com/kptdev/matsync/internal/types"
	v1 "github.com/kptdev/matsync/pkg/api/material/v1"
)

// Printer defines capabilities to display content in the matsync CLI.
// Everything written through a Printer is redacted.
type Printer interface {
	PrintMaterial(m *v1.GitMaterial, leadingNewline bool)
	Printf(format string, args ...interface{})
	OptPrintf(opt *Options, format string, args ...interface{})
	// Consumer returns an OutputConsumer that prints the output of
	// external commands.
	Consumer() command.OutputConsumer
	// WithSecrets returns a Printer that additionally masks the secrets
	// of r.
	WithSecrets(r *redact.Redactor) Printer
	OutStream() io.Writer
	ErrStream() io.Writer
}

// Options are optional options for printer
type Options struct {
	// Material is the display name of the material
	Material string
	// Path is the working copy directory
	Path types.UniquePath
}

// NewOpt returns a pointer to new options
func NewOpt() *Options {
	return &Options{}
}

// MaterialName sets the material name in options
func (opt *Options) MaterialName(name string) *Options {
	opt.Material = name
	return opt
}

// Dir sets the working copy directory in options
func (opt *Options) Dir(p types.UniquePath) *Options {
	opt.Path = p
	return opt
}

// New returns an instance of Printer.
func New(outStream, errStream io.Writer) Printer {
	if outStream == nil {
		outStream = os.Stdout
	}
	if errStream == nil {
		errStream = os.Stderr
	}
	return &printer{
		outStream: outStream,
		errStream: errStream,
		mu:        &sync.Mutex{},
	}
}

// printer implements default Printer to be used in matsync codebase.
type printer struct {
	outStream io.Writer
	errStream io.Writer
	redactor  *redact.Redactor
	// mu is shared by the printers derived with WithSecrets so that lines
	// of concurrent synchronizations do not interleave.
	mu *sync.Mutex
}

// The key type is unexported to prevent collisions with context keys defined in
// other packages.
type contextKey int

// printerKey is the context key for the printer.  Its value of zero is
// arbitrary.  If this package defined other context keys, they would have
// different integer values.
const printerKey contextKey = 0

// OutStream returns the StdOut stream, this can be used by callers to print
// command output to stdout, do not print error/debug logs to this stream
func (pr *printer) OutStream() io.Writer {
	return pr.outStream
}

// ErrStream returns the StdErr stream, this can be used by callers to print
// command output to stderr, print only error/debug/info logs to this stream
func (pr *printer) ErrStream() io.Writer {
	return pr.errStream
}

func (pr *printer) WithSecrets(r *redact.Redactor) Printer {
	cp := *pr
	cp.redactor = pr.redactor.Merge(r)
	return &cp
}

func (pr *printer) write(w io.Writer, s string) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	fmt.Fprint(w, pr.redactor.Redact(s))
}

// PrintMaterial prints the material display name to stderr
func (pr *printer) PrintMaterial(m *v1.GitMaterial, leadingNewline bool) {
	s := fmt.Sprintf("Material %q:\n", m.DisplayName())
	if leadingNewline {
		s = "\n" + s
	}
	pr.write(pr.errStream, s)
}

// Printf is the wrapper over fmt.Printf that displays the output.
// this will print messages to stderr stream
func (pr *printer) Printf(format string, args ...interface{}) {
	pr.write(pr.errStream, fmt.Sprintf(format, args...))
}

// OptPrintf is the wrapper over fmt.Printf that displays the output according
// to the opt, this will print messages to stderr stream
func (pr *printer) OptPrintf(opt *Options, format string, args ...interface{}) {
	if opt == nil {
		pr.Printf(format, args...)
		return
	}
	if opt.Material != "" {
		format = fmt.Sprintf("Material %q: ", opt.Material) + format
	} else if !opt.Path.Empty() {
		// try to print relative path of the working copy if we can else use abs path
		relPath, err := opt.Path.RelativePath()
		if err != nil {
			relPath = string(opt.Path)
		}
		format = fmt.Sprintf("Working copy %q: ", relPath) + format
	}
	pr.Printf(format, args...)
}

// Consumer prints stdout lines of commands to the out stream and stderr
// lines to the err stream.
func (pr *printer) Consumer() command.OutputConsumer {
	return consumer{pr}
}

type consumer struct {
	pr *printer
}

func (c consumer) Stdout(line string) {
	c.pr.write(c.pr.outStream, line+"\n")
}

func (c consumer) Stderr(line string) {
	c.pr.write(c.pr.errStream, line+"\n")
}

// Helper functions to set and retrieve printer instance from a context.
// Defining them here avoids the context key collision.

// FromContextOrDie returns printer instance associated with the context.
func FromContextOrDie(ctx context.Context) Printer {
	pr, ok := ctx.Value(printerKey).(Printer)
	if ok {
		return pr
	}
	panic("printer missing in context")
}

// WithContext creates new context from the given parent context
// by setting the printer instance.
func WithContext(ctx context.Context, pr Printer) context.Context {
	return context.WithValue(ctx, printerKey, pr)
}
