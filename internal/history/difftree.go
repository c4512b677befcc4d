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
	"fmt"
	"regexp"
	"strings"

	"github.com/kptdev/matsync/internal/errors"
	v1 "github.com/kptdev/matsync/pkg/api/material/v1"
)

// DiffTreeArgs returns the git arguments listing the files changed by rev.
func DiffTreeArgs(rev v1.Revision) []string {
	return []string{"diff-tree", "--name-status", "--root", "-r", string(rev)}
}

var diffTreePattern = regexp.MustCompile(`^([A-Z])[0-9]*\t(.+)$`)

// ParseDiffTree parses the output of git diff-tree --name-status for rev.
// The leading line holding the revision itself is skipped. For renames and
// copies the new path is kept.
func ParseDiffTree(rev v1.Revision, lines []string) ([]v1.ModifiedFile, error) {
	const op errors.Op = "history.ParseDiffTree"
	var files []v1.ModifiedFile
	for _, raw := range lines {
		line := ansiPattern.ReplaceAllString(raw, "")
		if line == "" || line == string(rev) {
			continue
		}
		f, ok := parseNameStatus(line)
		if !ok {
			return nil, errors.E(op, errors.Internal,
				fmt.Errorf("unable to parse git diff-tree output line %q of revision %s", line, rev))
		}
		files = append(files, f)
	}
	return files, nil
}

// parseNameStatus parses one line in the --name-status format.
func parseNameStatus(line string) (v1.ModifiedFile, bool) {
	m := diffTreePattern.FindStringSubmatch(line)
	if m == nil {
		return v1.ModifiedFile{}, false
	}
	paths := strings.Split(m[2], "\t")
	return v1.ModifiedFile{
		Path:   paths[len(paths)-1],
		Action: v1.ParseGitAction(m[1]),
	}, true
}
