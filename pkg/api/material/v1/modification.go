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
	"maps"
	"time"
)

// Revision is an opaque identifier of a point in history, a commit SHA for
// git.
type Revision string

// RevisionContext is the window of revisions a working copy is updated
// over.
type RevisionContext struct {
	// To is the revision to update to.
	To Revision `yaml:"to" json:"to"`
	// From holds earlier revisions of the window, most recent first.
	From []Revision `yaml:"from,omitempty" json:"from,omitempty"`
	// NumberOfModifications is the count of modifications in the window.
	NumberOfModifications int `yaml:"numberOfModifications,omitempty" json:"numberOfModifications,omitempty"`
}

// Latest returns the revision to update to.
func (rc RevisionContext) Latest() Revision {
	return rc.To
}

// Oldest returns the earliest revision of the window.
func (rc RevisionContext) Oldest() Revision {
	if len(rc.From) == 0 {
		return rc.To
	}
	return rc.From[len(rc.From)-1]
}

// CloneDepth is the shallow depth needed to hold the whole window.
func (rc RevisionContext) CloneDepth() int {
	return rc.NumberOfModifications + 1
}

// Action is the kind of change made to a file by a commit.
type Action string

const (
	Added    Action = "added"
	Modified Action = "modified"
	Deleted  Action = "deleted"
	Renamed  Action = "renamed"
	Unknown  Action = "unknown"
)

// ParseGitAction maps a git status letter to an Action.
func ParseGitAction(status string) Action {
	if status == "" {
		return Unknown
	}
	switch status[0] {
	case 'A':
		return Added
	case 'M':
		return Modified
	case 'D':
		return Deleted
	case 'R':
		return Renamed
	}
	return Unknown
}

// ModifiedFile is a file touched by a modification.
type ModifiedFile struct {
	Path   string `yaml:"path" json:"path"`
	Action Action `yaml:"action" json:"action"`
}

// AdditionalDataSubject is the AdditionalData key of the first line of the
// commit message.
const AdditionalDataSubject = "subject"

// Modification is one commit as reported by the version control tool.
type Modification struct {
	Revision       Revision          `yaml:"revision" json:"revision"`
	Author         string            `yaml:"author" json:"author"`
	Email          string            `yaml:"email,omitempty" json:"email,omitempty"`
	Time           time.Time         `yaml:"time" json:"time"`
	Comment        string            `yaml:"comment" json:"comment"`
	Files          []ModifiedFile    `yaml:"files,omitempty" json:"files,omitempty"`
	AdditionalData map[string]string `yaml:"additionalData,omitempty" json:"additionalData,omitempty"`
}

// Subject returns the first line of the commit message.
func (m *Modification) Subject() string {
	return m.AdditionalData[AdditionalDataSubject]
}

// DeepCopy returns a copy sharing no memory with m.
func (m *Modification) DeepCopy() *Modification {
	cp := *m
	cp.Files = append([]ModifiedFile(nil), m.Files...)
	cp.AdditionalData = maps.Clone(m.AdditionalData)
	return &cp
}

// Modifications are ordered most recent first.
type Modifications []Modification

// DeepCopy returns a copy sharing no memory with ms.
func (ms Modifications) DeepCopy() Modifications {
	if ms == nil {
		return nil
	}
	out := make(Modifications, 0, len(ms))
	for i := range ms {
		out = append(out, *ms[i].DeepCopy())
	}
	return out
}

// Revisions returns the revision of each modification, in order.
func (ms Modifications) Revisions() []Revision {
	out := make([]Revision, 0, len(ms))
	for i := range ms {
		out = append(out, ms[i].Revision)
	}
	return out
}
