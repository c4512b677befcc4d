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

	"github.com/kptdev/matsync/internal/gitutil"
)

const (
	unknownRefGitExecError = `
Error: Unknown ref {{ printf "%q" .ref }}. Please verify that the reference exists in upstream repo {{ printf "%q" .repo }}.
{{- template "Details" .details }}
`

	gitNotFoundGitExecError = `
Error: No git executable found. matsync requires git to be installed and available in the path, or named by $MATSYNC_GIT.
`

	authRequiredGitExecError = `
Error: Repository {{ printf "%q" .repo }} requires authentication. Set the username and password of the material.
{{- template "Details" .details }}
`

	unavailableGitExecError = `
Error: Unable to access repository {{ printf "%q" .repo }}.
{{- template "Details" .details }}
`

	notFoundGitExecError = `
Error: Repository {{ printf "%q" .repo }} not found.
{{- template "Details" .details }}
`

	submoduleGitExecError = `
Error: Failed to update submodule {{ printf "%q" .submodule }} of repo {{ printf "%q" .repo }}.
{{- template "Details" .details }}
`

	genericGitExecError = `
Error: Failed to execute git command {{ printf "%q" .gitcmd }}
{{- if gt (len .repo) 0 }} against repo {{ printf "%q" .repo }}{{ end }}
{{- if gt (len .ref) 0 }} for reference {{ printf "%q" .ref }}{{ end }}
{{- template "Details" .details }}
`
)

// gitExecErrorResolver is an implementation of the ErrorResolver interface
// that can produce error messages for errors of the gitutil.GitExecError type.
// The fields of a GitExecError are already redacted when it reaches here.
type gitExecErrorResolver struct{}

func (*gitExecErrorResolver) Resolve(err error) (ResolvedResult, bool) {
	var gitExecErr *gitutil.GitExecError
	if !goerrors.As(err, &gitExecErr) {
		return ResolvedResult{}, false
	}
	tmplArgs := map[string]interface{}{
		"gitcmd":    gitExecErr.Command,
		"repo":      gitExecErr.Repo,
		"ref":       gitExecErr.Ref,
		"submodule": gitExecErr.Submodule,
		"details":   details(gitExecErr.StdOut, gitExecErr.StdErr),
	}

	var tmpl string
	exitCode := 1
	switch gitExecErr.Type {
	case gitutil.UnknownReference:
		tmpl = unknownRefGitExecError
	case gitutil.GitExecutableNotFound:
		tmpl = gitNotFoundGitExecError
		exitCode = exitCodeNotFound
	case gitutil.HTTPSAuthRequired:
		tmpl = authRequiredGitExecError
	case gitutil.RepositoryUnavailable:
		tmpl = unavailableGitExecError
	case gitutil.RepositoryNotFound:
		tmpl = notFoundGitExecError
	case gitutil.SubmoduleFailure:
		tmpl = submoduleGitExecError
	default:
		tmpl = genericGitExecError
	}
	return ResolvedResult{
		Message:  ExecuteTemplate(tmpl, tmplArgs),
		ExitCode: exitCode,
	}, true
}
