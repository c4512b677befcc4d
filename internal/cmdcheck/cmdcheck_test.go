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

package cmdcheck_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/kptdev/matsync/internal/cmdcheck"
	"github.com/kptdev/matsync/internal/errors"
	"github.com/kptdev/matsync/internal/testutil"
	"github.com/kptdev/matsync/pkg/printer/fake"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	os.Exit(testutil.ConfigureGitEnv(m))
}

func TestCmd(t *testing.T) {
	g, _ := testutil.NewRepoWithCommits(t, 1)

	testCases := map[string]struct {
		args           []string
		expectedKind   errors.Kind
		expectedError  string
		expectedOut    string
		expectedErrOut string
	}{
		"reachable": {
			args:           []string{"--url", g.URL(), "--name", "app"},
			expectedErrOut: "Material \"app\": connection OK (URL: " + g.URL() + ", Branch: master)\n",
		},
		"reachable as yaml": {
			args:        []string{"--url", g.URL(), "-o", "yaml"},
			expectedOut: "valid: true\n",
		},
		"missing branch": {
			args:          []string{"--url", g.URL(), "--branch", "nope"},
			expectedKind:  errors.Git,
			expectedError: "The branch nope could not be found.",
		},
		"missing branch as json": {
			args:          []string{"--url", g.URL(), "--branch", "nope", "-o", "json"},
			expectedKind:  errors.Git,
			expectedError: "The branch nope could not be found.",
			expectedOut:   "\"valid\": false",
		},
		"table output is not supported": {
			args:          []string{"--url", g.URL(), "-o", "table"},
			expectedKind:  errors.InvalidParam,
			expectedError: "unknown output format",
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			var out, errOut bytes.Buffer
			r := cmdcheck.NewRunner(fake.CtxWithPrinter(&out, &errOut), "matsync")
			r.Command.SilenceUsage = true
			r.Command.SilenceErrors = true
			r.Command.SetArgs(tc.args)
			err := r.Command.Execute()

			if tc.expectedError != "" {
				if !assert.Error(t, err) {
					t.FailNow()
				}
				assert.Contains(t, err.Error(), tc.expectedError)
				assert.True(t, errors.IsKind(err, tc.expectedKind))
			} else if !assert.NoError(t, err) {
				t.FailNow()
			}
			assert.Contains(t, out.String(), tc.expectedOut)
			if tc.expectedErrOut != "" {
				assert.Equal(t, tc.expectedErrOut, errOut.String())
			}
		})
	}
}
