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
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kptdev/matsync/internal/errors"
	"github.com/kptdev/matsync/internal/gitutil"
	"github.com/kptdev/matsync/internal/process"
	v1 "github.com/kptdev/matsync/pkg/api/material/v1"
	"github.com/stretchr/testify/assert"
)

func TestResolveError_order(t *testing.T) {
	gitNotFound := errors.E(errors.Op("gitutil.Clone"), errors.Git, &gitutil.GitExecError{
		Type:    gitutil.GitExecutableNotFound,
		Command: "git clone",
		Err:     fmt.Errorf("exec: \"git\": executable file not found in $PATH"),
	})

	testCases := map[string]struct {
		err              error
		extra            ErrorResolver
		expectedPrefix   string
		expectedExitCode int
	}{
		"timeout wins over the git failure it wraps": {
			err: errors.E(errors.Op("material.LatestModification"), &process.TimeoutError{
				Description: "latest modification",
				Elapsed:     time.Second,
				Attempts:    1,
				LastErr:     gitNotFound,
			}),
			expectedPrefix:   "Error: Timed out after 1s waiting for latest modification",
			expectedExitCode: 124,
		},
		"wrapped validation error": {
			err: errors.E(errors.Op("material.Validate"), errors.InvalidParam,
				&v1.ValidateError{Field: "branch", Value: "a..b", Reason: "is not a valid branch name"}),
			expectedPrefix:   "Error: material is invalid:\nField: `branch`",
			expectedExitCode: 1,
		},
		"added resolver does not shadow the built-in ones": {
			err:              gitNotFound,
			extra:            &materialErrorResolver{exitCode: 99},
			expectedPrefix:   "Error: No git executable found.",
			expectedExitCode: 127,
		},
		"added resolver handles what the built-in ones do not": {
			err:              &materialError{material: "git@example.com:r.git"},
			extra:            &materialErrorResolver{exitCode: 99},
			expectedPrefix:   "Error: material git@example.com:r.git is broken",
			expectedExitCode: 99,
		},
		"zero exit code becomes one": {
			err:              &materialError{material: "git@example.com:r.git"},
			extra:            &materialErrorResolver{},
			expectedPrefix:   "Error: material git@example.com:r.git is broken",
			expectedExitCode: 1,
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			org := errorResolvers
			defer func() {
				errorResolvers = org
			}()
			if tc.extra != nil {
				AddErrorResolver(tc.extra)
			}

			rr, ok := ResolveError(tc.err)
			if !assert.True(t, ok) {
				t.FailNow()
			}
			assert.True(t, strings.HasPrefix(rr.Message, tc.expectedPrefix), rr.Message)
			assert.Equal(t, tc.expectedExitCode, rr.ExitCode)
		})
	}
}

type materialErrorResolver struct {
	exitCode int
}

func (r *materialErrorResolver) Resolve(err error) (ResolvedResult, bool) {
	var materialErr *materialError
	if !errors.As(err, &materialErr) {
		return ResolvedResult{}, false
	}
	return ResolvedResult{
		Message:  "Error: " + materialErr.Error(),
		ExitCode: r.exitCode,
	}, true
}

type materialError struct {
	material string
}

func (e *materialError) Error() string {
	return fmt.Sprintf("material %s is broken", e.material)
}
