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

package history

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/kptdev/matsync/internal/errors"
	v1 "github.com/kptdev/matsync/pkg/api/material/v1"
	"github.com/stretchr/testify/assert"
)

const threeCommits = `commit 4e55d27dc7aad26dadb02a33db0518cb5ec54888
Author: Cruise Developer <cruise@cruise-sf3.(none)>
Date:   2009-08-11 13:08:51 -0700

    Added 'run-till-file-exists' ant target

commit 7d14e6ba1a9ac9ee0b0ed4e3e3a5ce5b24d5e4b7
Author: Cruise Developer <cruise@cruise-sf3.(none)>
Date:   2009-08-11 13:04:37 -0700

    Added 'build' ant target

commit 46cceff864c830bbeab0a7aaa31707ae2302762f
Author: Cruise Developer <cruise@cruise-sf3.(none)>
Date:   2009-08-11 12:37:09 -0700

    Added build.xml

    Implemented the default target.
`

func mustTime(t *testing.T, s string) time.Time {
	tm, err := time.Parse("2006-01-02 15:04:05 -0700", s)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	return tm
}

func TestParse_threeCommits(t *testing.T) {
	mods, err := Parse(strings.Split(threeCommits, "\n"))
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	expected := v1.Modifications{
		{
			Revision:       "4e55d27dc7aad26dadb02a33db0518cb5ec54888",
			Author:         "Cruise Developer",
			Email:          "cruise@cruise-sf3.(none)",
			Time:           mustTime(t, "2009-08-11 13:08:51 -0700"),
			Comment:        "Added 'run-till-file-exists' ant target",
			AdditionalData: map[string]string{v1.AdditionalDataSubject: "Added 'run-till-file-exists' ant target"},
		},
		{
			Revision:       "7d14e6ba1a9ac9ee0b0ed4e3e3a5ce5b24d5e4b7",
			Author:         "Cruise Developer",
			Email:          "cruise@cruise-sf3.(none)",
			Time:           mustTime(t, "2009-08-11 13:04:37 -0700"),
			Comment:        "Added 'build' ant target",
			AdditionalData: map[string]string{v1.AdditionalDataSubject: "Added 'build' ant target"},
		},
		{
			Revision:       "46cceff864c830bbeab0a7aaa31707ae2302762f",
			Author:         "Cruise Developer",
			Email:          "cruise@cruise-sf3.(none)",
			Time:           mustTime(t, "2009-08-11 12:37:09 -0700"),
			Comment:        "Added build.xml\n\nImplemented the default target.",
			AdditionalData: map[string]string{v1.AdditionalDataSubject: "Added build.xml"},
		},
	}
	if diff := cmp.Diff(expected, mods); diff != "" {
		t.Errorf("modifications differ (-want +got):\n%s", diff)
	}
}

func TestParse_headerVariants(t *testing.T) {
	testCases := map[string]struct {
		lines            []string
		expectedRevision v1.Revision
		expectedAuthor   string
		expectedEmail    string
		expectedComment  string
	}{
		"ansi colored header": {
			lines: []string{
				"\x1b[33mcommit 5def073a425dfe239aabd4bf8039ffe3b0e8856b\x1b[m",
				"Author: Jane <jane@example.com>",
				"Date:   2020-01-02 03:04:05 +0000",
				"",
				"    colored",
			},
			expectedRevision: "5def073a425dfe239aabd4bf8039ffe3b0e8856b",
			expectedAuthor:   "Jane",
			expectedEmail:    "jane@example.com",
			expectedComment:  "colored",
		},
		"decorated header": {
			lines: []string{
				"commit 5def073a425dfe239aabd4bf8039ffe3b0e8856b (HEAD -> master, origin/master)",
				"Author: Jane <jane@example.com>",
				"Date:   2020-01-02 03:04:05 +0000",
				"",
				"    decorated",
			},
			expectedRevision: "5def073a425dfe239aabd4bf8039ffe3b0e8856b",
			expectedAuthor:   "Jane",
			expectedEmail:    "jane@example.com",
			expectedComment:  "decorated",
		},
		"merge commit": {
			lines: []string{
				"commit 5def073a425dfe239aabd4bf8039ffe3b0e8856b",
				"Merge: 4e55d27 7d14e6b",
				"Author: Jane <jane@example.com>",
				"Date:   2020-01-02 03:04:05 +0000",
				"",
				"    Merge branch 'dev'",
			},
			expectedRevision: "5def073a425dfe239aabd4bf8039ffe3b0e8856b",
			expectedAuthor:   "Jane",
			expectedEmail:    "jane@example.com",
			expectedComment:  "Merge branch 'dev'",
		},
		"author without email": {
			lines: []string{
				"commit 5def073a425dfe239aabd4bf8039ffe3b0e8856b",
				"Author: build bot",
				"Date:   2020-01-02 03:04:05 +0000",
				"",
				"    automated",
			},
			expectedRevision: "5def073a425dfe239aabd4bf8039ffe3b0e8856b",
			expectedAuthor:   "build bot",
			expectedComment:  "automated",
		},
		"blank lines collapse": {
			lines: []string{
				"commit 5def073a425dfe239aabd4bf8039ffe3b0e8856b",
				"Author: Jane <jane@example.com>",
				"Date:   2020-01-02 03:04:05 +0000",
				"",
				"    subject",
				"",
				"",
				"    ",
				"    body",
				"",
				"",
			},
			expectedRevision: "5def073a425dfe239aabd4bf8039ffe3b0e8856b",
			expectedAuthor:   "Jane",
			expectedEmail:    "jane@example.com",
			expectedComment:  "subject\n\nbody",
		},
		"indented subject keeps extra spaces": {
			lines: []string{
				"commit 5def073a425dfe239aabd4bf8039ffe3b0e8856b",
				"Author: Jane <jane@example.com>",
				"Date:   2020-01-02 03:04:05 +0000",
				"",
				"      two leading spaces",
			},
			expectedRevision: "5def073a425dfe239aabd4bf8039ffe3b0e8856b",
			expectedAuthor:   "Jane",
			expectedEmail:    "jane@example.com",
			expectedComment:  "  two leading spaces",
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			mods, err := Parse(tc.lines)
			if !assert.NoError(t, err) {
				t.FailNow()
			}
			if !assert.Len(t, mods, 1) {
				t.FailNow()
			}
			assert.Equal(t, tc.expectedRevision, mods[0].Revision)
			assert.Equal(t, tc.expectedAuthor, mods[0].Author)
			assert.Equal(t, tc.expectedEmail, mods[0].Email)
			assert.Equal(t, tc.expectedComment, mods[0].Comment)
			assert.Equal(t, strings.Split(tc.expectedComment, "\n")[0], mods[0].Subject())
		})
	}
}

func TestParse_nameStatus(t *testing.T) {
	testCases := map[string]struct {
		lines         []string
		expectedFiles map[v1.Revision][]v1.ModifiedFile
	}{
		"file lists of consecutive commits": {
			lines: []string{
				"commit 4e55d27dc7aad26dadb02a33db0518cb5ec54888",
				"Author: Cruise Developer <cruise@cruise-sf3.(none)>",
				"Date:   2009-08-11 13:08:51 -0700",
				"",
				"    Added 'run-till-file-exists' ant target",
				"",
				"M\tbuild.xml",
				"A\tsrc/run.sh",
				"",
				"commit 46cceff864c830bbeab0a7aaa31707ae2302762f",
				"Author: Cruise Developer <cruise@cruise-sf3.(none)>",
				"Date:   2009-08-11 12:37:09 -0700",
				"",
				"    Added build.xml",
				"",
				"A\tbuild.xml",
				"R087\told.txt\tnew.txt",
			},
			expectedFiles: map[v1.Revision][]v1.ModifiedFile{
				"4e55d27dc7aad26dadb02a33db0518cb5ec54888": {
					{Path: "build.xml", Action: v1.Modified},
					{Path: "src/run.sh", Action: v1.Added},
				},
				"46cceff864c830bbeab0a7aaa31707ae2302762f": {
					{Path: "build.xml", Action: v1.Added},
					{Path: "new.txt", Action: v1.Renamed},
				},
			},
		},
		"commit without changed files": {
			lines: []string{
				"commit 4e55d27dc7aad26dadb02a33db0518cb5ec54888",
				"Author: Cruise Developer <cruise@cruise-sf3.(none)>",
				"Date:   2009-08-11 13:08:51 -0700",
				"",
				"    empty",
				"",
				"commit 46cceff864c830bbeab0a7aaa31707ae2302762f",
				"Author: Cruise Developer <cruise@cruise-sf3.(none)>",
				"Date:   2009-08-11 12:37:09 -0700",
				"",
				"    Added build.xml",
				"",
				"A\tbuild.xml",
			},
			expectedFiles: map[v1.Revision][]v1.ModifiedFile{
				"4e55d27dc7aad26dadb02a33db0518cb5ec54888": nil,
				"46cceff864c830bbeab0a7aaa31707ae2302762f": {
					{Path: "build.xml", Action: v1.Added},
				},
			},
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			mods, err := Parse(tc.lines)
			if !assert.NoError(t, err) {
				t.FailNow()
			}
			if !assert.Len(t, mods, len(tc.expectedFiles)) {
				t.FailNow()
			}
			for _, m := range mods {
				assert.Equal(t, tc.expectedFiles[m.Revision], m.Files, m.Revision)
				assert.Equal(t, m.Subject(), m.Comment)
			}
		})
	}
}

func TestParse_emptyOutput(t *testing.T) {
	mods, err := Parse(nil)
	assert.NoError(t, err)
	assert.Empty(t, mods)

	mods, err = Parse([]string{"", ""})
	assert.NoError(t, err)
	assert.Empty(t, mods)
}

func TestParse_errors(t *testing.T) {
	testCases := map[string]struct {
		lines    []string
		expected string
	}{
		"text before any commit": {
			lines:    []string{"fatal: not a commit"},
			expected: "appears before any commit header",
		},
		"garbage in header": {
			lines: []string{
				"commit 5def073a425dfe239aabd4bf8039ffe3b0e8856b",
				"    not a header",
			},
			expected: "unexpected line",
		},
		"unparsable date": {
			lines: []string{
				"commit 5def073a425dfe239aabd4bf8039ffe3b0e8856b",
				"Date:   yesterday",
			},
			expected: "unparsable date",
		},
		"text after the message": {
			lines: []string{
				"commit 5def073a425dfe239aabd4bf8039ffe3b0e8856b",
				"Date:   2020-01-02 03:04:05 +0000",
				"",
				"    subject",
				"",
				"not a file entry",
			},
			expected: "after the message of commit",
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			_, err := Parse(tc.lines)
			if !assert.Error(t, err) {
				t.FailNow()
			}
			assert.Contains(t, err.Error(), tc.expected)
			assert.True(t, errors.IsKind(err, errors.Internal))
		})
	}
}

func TestParser_streaming(t *testing.T) {
	p := &Parser{}
	for _, l := range strings.Split(threeCommits, "\n") {
		p.Consume(l)
	}
	mods, err := p.Modifications()
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, []v1.Revision{
		"4e55d27dc7aad26dadb02a33db0518cb5ec54888",
		"7d14e6ba1a9ac9ee0b0ed4e3e3a5ce5b24d5e4b7",
		"46cceff864c830bbeab0a7aaa31707ae2302762f",
	}, mods.Revisions())

	// The returned slice is a copy.
	mods[0].Comment = "changed"
	again, err := p.Modifications()
	assert.NoError(t, err)
	assert.Equal(t, "Added 'run-till-file-exists' ant target", again[0].Comment)
}

func TestParseDiffTree(t *testing.T) {
	const rev = v1.Revision("46cceff864c830bbeab0a7aaa31707ae2302762f")
	testCases := map[string]struct {
		lines    []string
		expected []v1.ModifiedFile
		err      bool
	}{
		"all actions": {
			lines: []string{
				string(rev),
				"A\tbuild.xml",
				"M\tsrc/main.go",
				"D\told.txt",
				"R100\tdocs/a.md\tdocs/b.md",
				"T\tlink",
			},
			expected: []v1.ModifiedFile{
				{Path: "build.xml", Action: v1.Added},
				{Path: "src/main.go", Action: v1.Modified},
				{Path: "old.txt", Action: v1.Deleted},
				{Path: "docs/b.md", Action: v1.Renamed},
				{Path: "link", Action: v1.Unknown},
			},
		},
		"empty commit": {
			lines: []string{string(rev), ""},
		},
		"unparsable line": {
			lines: []string{string(rev), "garbage"},
			err:   true,
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			files, err := ParseDiffTree(rev, tc.lines)
			if tc.err {
				if assert.Error(t, err) {
					assert.Contains(t, err.Error(), "unable to parse git diff-tree output line")
				}
				return
			}
			if !assert.NoError(t, err) {
				t.FailNow()
			}
			assert.Equal(t, tc.expected, files)
		})
	}
}

func TestDiffTreeArgs(t *testing.T) {
	assert.Equal(t, []string{"diff-tree", "--name-status", "--root", "-r", "abc"}, DiffTreeArgs("abc"))
}
