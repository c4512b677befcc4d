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

package errors

import (
	"fmt"
	"strings"
)

// ValidationError is returned when a material descriptor or an invocation
// is not valid.
type ValidationError struct {
	Violations Violations
}

func (e *ValidationError) Error() string {
	var reasons []string
	for _, v := range e.Violations {
		if v.Reason != "" {
			reasons = append(reasons, fmt.Sprintf("%s: %s", v.Field, v.Reason))
		}
	}
	msg := fmt.Sprintf("validation failed for fields %s", joinQuoted(e.Violations.Fields()))
	if len(reasons) > 0 {
		msg += " (" + strings.Join(reasons, "; ") + ")"
	}
	return msg
}

type ViolationType string

const (
	Missing ViolationType = "missing"
	Invalid ViolationType = "invalid"
)

type Violations []Violation

func (v Violations) Fields() []string {
	var fields []string
	for _, v := range v {
		fields = append(fields, v.Field)
	}
	return fields
}

type Violation struct {
	Field  string
	Value  string
	Type   ViolationType
	Reason string
}

func joinQuoted(s []string) string {
	quoted := make([]string, 0, len(s))
	for _, e := range s {
		quoted = append(quoted, fmt.Sprintf("%q", e))
	}
	return strings.Join(quoted, ", ")
}
