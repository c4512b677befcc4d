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

//go:build unix

package process_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kptdev/matsync/internal/errors"
	. "github.com/kptdev/matsync/internal/process"
	"github.com/stretchr/testify/assert"
	"golang.org/x/text/encoding/charmap"
)

type lines struct {
	mu  sync.Mutex
	all []string
}

func (l *lines) Consume(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.all = append(l.all, line)
}

func sh(script string) Spec {
	return Spec{Path: "sh", Args: []string{"-c", script}, Display: "sh -c " + script}
}

func TestRun(t *testing.T) {
	testCases := map[string]struct {
		spec           Spec
		expectedCode   int
		expectedStdout []string
		expectedStderr []string
	}{
		"both streams": {
			spec:           sh("echo out; echo err >&2"),
			expectedStdout: []string{"out"},
			expectedStderr: []string{"err"},
		},
		"non-zero exit is not an error": {
			spec:           sh("echo failing >&2; exit 3"),
			expectedCode:   3,
			expectedStderr: []string{"failing"},
		},
		"environment override": {
			spec: func() Spec {
				s := sh(`echo "$MATSYNC_TEST_VALUE"`)
				s.Env = map[string]string{"MATSYNC_TEST_VALUE": "overridden"}
				return s
			}(),
			expectedStdout: []string{"overridden"},
		},
		"input is written then closed": {
			spec: func() Spec {
				s := Spec{Path: "cat"}
				s.Input, s.HasInput = "line one\nline two\n", true
				return s
			}(),
			expectedStdout: []string{"line one", "line two"},
		},
		"output is decoded": {
			spec: func() Spec {
				s := sh(`printf 'caf\351\n'`)
				s.Encoding = charmap.ISO8859_1
				return s
			}(),
			expectedStdout: []string{"café"},
		},
		"last line without newline": {
			spec:           sh("printf 'a\\nb'"),
			expectedStdout: []string{"a", "b"},
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			var stdout, stderr lines
			code, err := NewRunner().Run(context.Background(), tc.spec, &stdout, &stderr)
			if !assert.NoError(t, err) {
				t.FailNow()
			}
			assert.Equal(t, tc.expectedCode, code)
			assert.Equal(t, tc.expectedStdout, stdout.all)
			assert.Equal(t, tc.expectedStderr, stderr.all)
		})
	}
}

func TestRun_drainsLargeOutputOnBothStreams(t *testing.T) {
	const n = 20000
	var stdout, stderr lines
	script := fmt.Sprintf(`i=0; while [ $i -lt %d ]; do echo out$i; echo err$i >&2; i=$((i+1)); done`, n)
	code, err := NewRunner().Run(context.Background(), sh(script), &stdout, &stderr)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, 0, code)
	assert.Len(t, stdout.all, n)
	assert.Len(t, stderr.all, n)
	assert.Equal(t, "err19999", stderr.all[n-1])
}

func TestRun_startFailure(t *testing.T) {
	spec := Spec{
		Path:    "matsync-no-such-binary",
		Display: "matsync-no-such-binary --flag",
		Env:     map[string]string{"PATH": "/nonexistent/bin"},
	}
	_, err := NewRunner().Run(context.Background(), spec, nil, nil)
	if !assert.Error(t, err) {
		t.FailNow()
	}
	assert.True(t, errors.IsKind(err, errors.Spawn))

	var startErr *StartError
	if !assert.True(t, errors.As(err, &startErr)) {
		t.FailNow()
	}
	assert.Equal(t, "/nonexistent/bin", startErr.PATH)
	assert.Contains(t, err.Error(), "could not start process")
	assert.Contains(t, err.Error(), "/nonexistent/bin")
}

func TestRun_cancellationKillsProcessGroup(t *testing.T) {
	r := NewRunner()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Run(ctx, sh("sleep 30 & sleep 30"), nil, nil)
	if !assert.Error(t, err) {
		t.FailNow()
	}
	assert.True(t, errors.IsKind(err, errors.Timeout))
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Equal(t, 0, r.Table.Len())
}

func TestTerminateAll(t *testing.T) {
	r := NewRunner()
	started := make(chan struct{})
	result := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), sh("echo ready; sleep 30"), LineSinkFunc(func(string) {
			close(started)
		}), nil)
		result <- err
	}()

	<-started
	assert.Equal(t, 1, r.Table.Len())
	assert.Equal(t, 1, r.Table.TerminateAll())
	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("process was not terminated")
	}
	assert.Equal(t, 0, r.Table.Len())
}

func TestMergeEnv(t *testing.T) {
	got := MergeEnv([]string{"A=1", "B=2", "C=3"}, map[string]string{"B": "two", "D": "4"})
	assert.Equal(t, []string{"A=1", "C=3", "B=two", "D=4"}, got)
}

func TestPollUntil(t *testing.T) {
	t.Run("succeeds after retries", func(t *testing.T) {
		calls := 0
		err := PollUntil(context.Background(), "third call", 10*time.Millisecond, 5*time.Second,
			func(context.Context) (bool, error) {
				calls++
				if calls < 3 {
					return false, fmt.Errorf("not yet")
				}
				return true, nil
			})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("times out with the last diagnostic", func(t *testing.T) {
		err := PollUntil(context.Background(), "never", 10*time.Millisecond, 100*time.Millisecond,
			func(context.Context) (bool, error) {
				return false, fmt.Errorf("still failing")
			})
		if !assert.Error(t, err) {
			t.FailNow()
		}
		assert.True(t, errors.IsKind(err, errors.Timeout))

		var te *TimeoutError
		if !assert.True(t, errors.As(err, &te)) {
			t.FailNow()
		}
		assert.Greater(t, te.Attempts, 1)
		assert.EqualError(t, te.LastErr, "still failing")
		assert.Contains(t, err.Error(), "waiting for never")
	})
}
