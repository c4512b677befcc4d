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

package command

import (
	"fmt"
	"strings"

	"github.com/kptdev/matsync/internal/redact"
)

// Result is the outcome of a finished invocation. The raw accessors are
// meant for parsing; anything shown to a human must go through the display
// accessors.
type Result struct {
	// Command is the masked command line.
	Command  string
	ExitCode int

	stdout   []string
	stderr   []string
	failed   bool
	redactor *redact.Redactor
}

// Failed returns true if the success predicate of the invocation rejected
// the exit code.
func (r *Result) Failed() bool {
	return r.failed
}

// Stdout returns the unredacted stdout lines.
func (r *Result) Stdout() []string {
	return r.stdout
}

// Stderr returns the unredacted stderr lines.
func (r *Result) Stderr() []string {
	return r.stderr
}

// OutputAsString returns the unredacted stdout joined by newlines.
func (r *Result) OutputAsString() string {
	return strings.Join(r.stdout, "\n")
}

// OutputForDisplay returns the redacted stdout lines.
func (r *Result) OutputForDisplay() []string {
	return r.redactor.RedactLines(r.stdout)
}

// ErrorForDisplay returns the redacted stderr lines.
func (r *Result) ErrorForDisplay() []string {
	return r.redactor.RedactLines(r.stderr)
}

// Redactor returns the redactor of the invocation.
func (r *Result) Redactor() *redact.Redactor {
	return r.redactor
}

// Describe renders the command, the exit code and both streams, redacted.
func (r *Result) Describe() string {
	b := new(strings.Builder)
	fmt.Fprintf(b, "--- Command ---\n%s\n", r.Command)
	fmt.Fprintf(b, "--- Exit code (%d) ---\n", r.ExitCode)
	b.WriteString("--- Standard out ---\n")
	for _, l := range r.OutputForDisplay() {
		b.WriteString(l)
		b.WriteString("\n")
	}
	b.WriteString("--- Standard err ---\n")
	for _, l := range r.ErrorForDisplay() {
		b.WriteString(l)
		b.WriteString("\n")
	}
	b.WriteString("---\n")
	return b.String()
}
