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

// Package v1 defines the data model of source materials: what to
// synchronize, the revisions to synchronize to and the modifications found
// in between.
package v1

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	// DefaultBranch is used when a material does not name a branch.
	DefaultBranch = "master"

	// TypeGit is the material type of git repositories.
	TypeGit = "git"

	// ShortRevisionLength is the length of abbreviated revisions.
	ShortRevisionLength = 7
)

// GitMaterial describes a git repository to synchronize.
type GitMaterial struct {
	// Name is an optional label used in console output.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// URL of the repository. It may embed credentials.
	URL string `yaml:"url" json:"url"`

	// Branch to track. Blank means DefaultBranch and never counts as a
	// branch change for an existing working copy.
	Branch string `yaml:"branch,omitempty" json:"branch,omitempty"`

	// Username and Password are injected into http(s) URLs.
	Username string `yaml:"username,omitempty" json:"username,omitempty"`
	Password string `yaml:"password,omitempty" json:"-"`

	// SubmoduleFolder is set when the material is itself a submodule of
	// another material, checked out at this path.
	SubmoduleFolder string `yaml:"submoduleFolder,omitempty" json:"submoduleFolder,omitempty"`

	// ShallowClone limits the history fetched to what is needed.
	ShallowClone bool `yaml:"shallowClone,omitempty" json:"shallowClone,omitempty"`

	// Destination is the folder, relative to the base directory, the
	// working copy lives in. Empty means the base directory itself.
	Destination string `yaml:"destination,omitempty" json:"destination,omitempty"`
}

// EffectiveBranch returns the branch, or DefaultBranch when it is blank.
func (m *GitMaterial) EffectiveBranch() string {
	if m.BranchIsBlank() {
		return DefaultBranch
	}
	return strings.TrimSpace(m.Branch)
}

// BranchIsBlank returns true if no branch was configured.
func (m *GitMaterial) BranchIsBlank() bool {
	return strings.TrimSpace(m.Branch) == ""
}

// IsSubmodule returns true if the material is checked out inside another one.
func (m *GitMaterial) IsSubmodule() bool {
	return m.SubmoduleFolder != ""
}

// Fingerprint identifies the material by type, URL and branch.
func (m *GitMaterial) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte("type=" + TypeGit))
	h.Write([]byte("<|>url=" + NormalizeURL(m.URL)))
	h.Write([]byte("<|>branch=" + m.EffectiveBranch()))
	return hex.EncodeToString(h.Sum(nil))
}

// DisplayName returns the name, or the destination, or "material".
func (m *GitMaterial) DisplayName() string {
	switch {
	case m.Name != "":
		return m.Name
	case m.Destination != "":
		return m.Destination
	}
	return "material"
}

// NormalizeURL strips what does not change the identity of a repository:
// the file:// scheme prefix and trailing slashes.
func NormalizeURL(u string) string {
	u = strings.TrimSpace(u)
	u = strings.TrimPrefix(u, "file://")
	if len(u) > 1 {
		u = strings.TrimRight(u, "/")
	}
	return u
}

// SameURL reports whether a and b point to the same repository.
func SameURL(a, b string) bool {
	return NormalizeURL(a) == NormalizeURL(b)
}

// ShortRevision abbreviates a revision for display.
func ShortRevision(rev Revision) string {
	if len(rev) <= ShortRevisionLength {
		return string(rev)
	}
	return string(rev[:ShortRevisionLength])
}
