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

package command_test

import (
	"testing"

	. "github.com/kptdev/matsync/internal/command"
	"github.com/kptdev/matsync/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestTranslateCommandLine(t *testing.T) {
	testCases := map[string]struct {
		input    string
		expected []string
	}{
		"empty": {
			input: "",
		},
		"only whitespace": {
			input: " \t\n ",
		},
		"plain words": {
			input:    "git  log\t-1",
			expected: []string{"git", "log", "-1"},
		},
		"double quotes": {
			input:    `git commit -m "a message with spaces"`,
			expected: []string{"git", "commit", "-m", "a message with spaces"},
		},
		"single quotes keep double quotes": {
			input:    `echo 'say "hi"'`,
			expected: []string{"echo", `say "hi"`},
		},
		"double quotes keep single quotes": {
			input:    `echo "it's"`,
			expected: []string{"echo", "it's"},
		},
		"adjacent quoted and unquoted text": {
			input:    `--message="hello world"!`,
			expected: []string{"--message=hello world!"},
		},
		"empty quoted string": {
			input:    `a '' b ""`,
			expected: []string{"a", "", "b", ""},
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			got, err := TranslateCommandLine(tc.input)
			if !assert.NoError(t, err) {
				t.FailNow()
			}
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestTranslateCommandLine_unbalanced(t *testing.T) {
	for _, input := range []string{`echo "open`, `echo 'open`, `"`, `a "b' c`} {
		_, err := TranslateCommandLine(input)
		if !assert.Error(t, err, input) {
			continue
		}
		assert.True(t, errors.IsKind(err, errors.InvalidParam))
	}
}
