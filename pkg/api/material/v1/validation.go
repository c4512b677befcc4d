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

package v1

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Validate checks the fields of a material that can be checked without
// touching the network.
func (m *GitMaterial) Validate() error {
	if strings.TrimSpace(m.URL) == "" {
		return &ValidateError{
			Field:  "url",
			Reason: "must specify the repository url",
		}
	}
	if strings.ContainsAny(strings.TrimSpace(m.Branch), " \t\n~^:?*[\\") {
		return &ValidateError{
			Field:  "branch",
			Value:  m.Branch,
			Reason: "is not a valid branch name",
		}
	}
	if err := validateRelativePath("destination", m.Destination); err != nil {
		return err
	}
	if err := validateRelativePath("submoduleFolder", m.SubmoduleFolder); err != nil {
		return err
	}
	if m.Password != "" && m.Username == "" && !strings.Contains(m.URL, "@") {
		return &ValidateError{
			Field:  "username",
			Reason: "must be set when a password is given",
		}
	}
	return nil
}

// validateRelativePath makes sure p stays inside the directory it is
// relative to.
func validateRelativePath(field, p string) error {
	if p == "" {
		return nil
	}
	if filepath.IsAbs(p) {
		return &ValidateError{
			Field:  field,
			Value:  p,
			Reason: "must be a relative path",
		}
	}
	clean := filepath.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return &ValidateError{
			Field:  field,
			Value:  p,
			Reason: "must not point outside of the base directory",
		}
	}
	return nil
}

// ValidateError is the error returned when validation fails.
type ValidateError struct {
	// Field is the field that causes error
	Field string
	// Value is the value of invalid field
	Value string
	// Reason is the reason for the error
	Reason string
}

func (e *ValidateError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("material is invalid:\nField: `%s`\n", e.Field))
	if e.Value != "" {
		sb.WriteString(fmt.Sprintf("Value: %q\n", e.Value))
	}
	sb.WriteString(fmt.Sprintf("Reason: %s\n", e.Reason))
	return sb.String()
}
