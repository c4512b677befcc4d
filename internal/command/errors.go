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

// CommandError is returned when a command ran but its exit code was
// rejected. All fields hold display text only.
type CommandError struct {
	// Message is the caller provided summary, e.g. "git fetch failed for [url]".
	Message  string
	Command  string
	ExitCode int
	StdOut   string
	StdErr   string
}

func (e *CommandError) Error() string {
	b := new(strings.Builder)
	if e.Message != "" {
		b.WriteString(e.Message)
		b.WriteString(": ")
	}
	fmt.Fprintf(b, "%s exited with code %d", e.Command, e.ExitCode)
	if s := strings.TrimSpace(e.StdErr); s != "" {
		b.WriteString(": ")
		b.WriteString(s)
	}
	return b.String()
}

// Redact returns a copy of e with all secrets masked.
func (e *CommandError) Redact(r *redact.Redactor) error {
	return &CommandError{
		Message:  r.Redact(e.Message),
		Command:  r.Redact(e.Command),
		ExitCode: e.ExitCode,
		StdOut:   r.Redact(e.StdOut),
		StdErr:   r.Redact(e.StdErr),
	}
}

func newCommandError(msg string, res *Result) *CommandError {
	return &CommandError{
		Message:  res.redactor.Redact(msg),
		Command:  res.Command,
		ExitCode: res.ExitCode,
		StdOut:   strings.Join(res.OutputForDisplay(), "\n"),
		StdErr:   strings.Join(res.ErrorForDisplay(), "\n"),
	}
}
