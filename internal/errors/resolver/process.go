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

package resolver

import (
	goerrors "errors"
	"fmt"

	"github.com/kptdev/matsync/internal/command"
	"github.com/kptdev/matsync/internal/errors"
	"github.com/kptdev/matsync/internal/process"
)

const (
	// exitCodeTimeout matches timeout(1).
	exitCodeTimeout = 124
	// exitCodeNotFound matches the shell for a missing program.
	exitCodeNotFound = 127
)

const (
	timeoutError = `
Error: Timed out after {{ .elapsed }} waiting for {{ .description }} ({{ .attempts }} attempts).
{{- template "Details" .details }}
`

	startError = `
Error: Unable to start {{ printf "%q" .command }}{{ if gt (len .dir) 0 }} in {{ printf "%q" .dir }}{{ end }}.
{{- template "Details" .details }}
`

	commandError = `
Error: {{ if gt (len .message) 0 }}{{ .message }}: {{ end }}{{ printf "%q" .command }} exited with code {{ .exitCode }}.
{{- template "Details" .details }}
`
)

// timeoutErrorResolver resolves bounded waits that expired.
type timeoutErrorResolver struct{}

func (*timeoutErrorResolver) Resolve(err error) (ResolvedResult, bool) {
	var timeoutErr *process.TimeoutError
	if !goerrors.As(err, &timeoutErr) {
		return ResolvedResult{}, false
	}
	var lastErr string
	if timeoutErr.LastErr != nil {
		lastErr = timeoutErr.LastErr.Error()
	}
	return ResolvedResult{
		Message: ExecuteTemplate(timeoutError, map[string]interface{}{
			"elapsed":     timeoutErr.Elapsed.String(),
			"description": timeoutErr.Description,
			"attempts":    timeoutErr.Attempts,
			"details":     details(lastErr),
		}),
		ExitCode: exitCodeTimeout,
	}, true
}

type startErrorResolver struct{}

func (*startErrorResolver) Resolve(err error) (ResolvedResult, bool) {
	var startErr *process.StartError
	if !goerrors.As(err, &startErr) {
		return ResolvedResult{}, false
	}
	return ResolvedResult{
		Message: ExecuteTemplate(startError, map[string]interface{}{
			"command": startErr.Command,
			"dir":     startErr.Dir,
			"details": details(fmt.Sprintf("%v", startErr.Err), fmt.Sprintf("PATH is %q", startErr.PATH)),
		}),
		ExitCode: exitCodeNotFound,
	}, true
}

// commandErrorResolver handles failed commands other than git.
type commandErrorResolver struct{}

func (*commandErrorResolver) Resolve(err error) (ResolvedResult, bool) {
	var cmdErr *command.CommandError
	if !goerrors.As(err, &cmdErr) {
		return ResolvedResult{}, false
	}
	return ResolvedResult{
		Message: ExecuteTemplate(commandError, map[string]interface{}{
			"message":  cmdErr.Message,
			"command":  cmdErr.Command,
			"exitCode": cmdErr.ExitCode,
			"details":  details(cmdErr.StdOut, cmdErr.StdErr),
		}),
	}, true
}

// revisionErrorResolver handles revisions that do not exist in the branch.
type revisionErrorResolver struct{}

func (*revisionErrorResolver) Resolve(err error) (ResolvedResult, bool) {
	if !errors.IsKind(err, errors.Revision) {
		return ResolvedResult{}, false
	}
	var e *errors.Error
	msg := err.Error()
	for goerrors.As(err, &e) {
		if e.Kind == errors.Revision && e.Err != nil {
			msg = e.Err.Error()
			break
		}
		err = e.Err
	}
	return ResolvedResult{
		Message: "Error: " + msg + ". The branch may have been rewritten; a full check from the latest modification is needed.",
	}, true
}
