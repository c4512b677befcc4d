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

package cmdstatus_test

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/kptdev/matsync/internal/cmdstatus"
	"github.com/kptdev/matsync/internal/errors"
	"github.com/kptdev/matsync/internal/material"
	"github.com/kptdev/matsync/internal/testutil"
	v1 "github.com/kptdev/matsync/pkg/api/material/v1"
	"github.com/kptdev/matsync/pkg/printer/fake"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	os.Exit(testutil.ConfigureGitEnv(m))
}

func workingCopy(t *testing.T, m *v1.GitMaterial, rev v1.Revision) string {
	t.Helper()
	dir := t.TempDir()
	err := material.New(m).UpdateTo(context.Background(), nil, dir, v1.RevisionContext{To: rev})
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	return dir
}

func TestCmd(t *testing.T) {
	g, revs := testutil.NewRepoWithCommits(t, 2)
	dir := workingCopy(t, &v1.GitMaterial{URL: g.URL()}, revs[1])
	other := testutil.NewTestGitRepo(t)

	testCases := map[string]struct {
		args        []string
		expected    []string
		notExpected []string
	}{
		"working copy only": {
			args: []string{dir},
			expected: []string{
				"[remote]  " + g.URL(),
				"[branch]  master",
				"[revision]  " + string(revs[1]),
				"[shallow]  false",
			},
			notExpected: []string{"plan", "submodules"},
		},
		"same material": {
			args:     []string{dir, "--url", g.URL()},
			expected: []string{"[plan]  fetch_reset"},
		},
		"other repository": {
			args:     []string{dir, "--url", other.URL()},
			expected: []string{"[plan]  reclone (repository changed from"},
		},
		"shallow requested": {
			args:     []string{dir, "--url", g.URL(), "--shallow"},
			expected: []string{"[plan]  reclone (shallow clone requested for a full working copy)"},
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			var out bytes.Buffer
			r := cmdstatus.NewRunner(fake.CtxWithPrinter(&out, &bytes.Buffer{}), "matsync")
			r.Command.SilenceUsage = true
			r.Command.SilenceErrors = true
			r.Command.SetArgs(tc.args)
			if !assert.NoError(t, r.Command.Execute()) {
				t.FailNow()
			}
			for _, e := range tc.expected {
				assert.Contains(t, out.String(), e)
			}
			for _, e := range tc.notExpected {
				assert.NotContains(t, out.String(), e)
			}
		})
	}
}

func TestCmd_destination(t *testing.T) {
	g, revs := testutil.NewRepoWithCommits(t, 1)
	base := workingCopy(t, &v1.GitMaterial{URL: g.URL(), Destination: "src"}, revs[0])

	var out bytes.Buffer
	r := cmdstatus.NewRunner(fake.CtxWithPrinter(&out, &bytes.Buffer{}), "matsync")
	r.Command.SetArgs([]string{base, "--url", g.URL(), "--destination", "src"})
	if !assert.NoError(t, r.Command.Execute()) {
		t.FailNow()
	}
	assert.Contains(t, out.String(), "[revision]  "+string(revs[0]))
	assert.Contains(t, out.String(), "[plan]  fetch_reset")
}

func TestCmd_notAWorkingCopy(t *testing.T) {
	r := cmdstatus.NewRunner(fake.CtxWithDefaultPrinter(), "matsync")
	r.Command.SilenceUsage = true
	r.Command.SilenceErrors = true
	r.Command.SetArgs([]string{t.TempDir()})
	err := r.Command.Execute()
	if !assert.Error(t, err) {
		t.FailNow()
	}
	assert.True(t, errors.IsKind(err, errors.InvalidParam))
	assert.Contains(t, err.Error(), "is not a git working copy")
}
