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

// Package redact masks secrets in any text that leaves the engine: console
// lines, log messages and error chains.
package redact

import (
	"bytes"
	"io"
	"sort"
	"strings"
	"sync"

	"k8s.io/klog/v2"
)

// Mask is the replacement shown instead of a secret.
const Mask = "******"

const maxRedactPasses = 16

// Secret pairs a sensitive value with the text displayed in its place.
type Secret struct {
	Value  string
	Masked string
}

// Redactor replaces every known secret in a text with its masked form.
// A nil *Redactor is valid and leaves text untouched.
type Redactor struct {
	secrets  []Secret
	replacer *strings.Replacer
}

// New returns a Redactor for stand-alone secrets, each replaced by Mask.
func New(values ...string) *Redactor {
	pairs := make([]Secret, 0, len(values))
	for _, v := range values {
		pairs = append(pairs, Secret{Value: v, Masked: Mask})
	}
	return NewWithPairs(pairs...)
}

// NewWithPairs returns a Redactor for explicit secret/mask pairs.
func NewWithPairs(pairs ...Secret) *Redactor {
	r := &Redactor{}
	r.add(pairs...)
	return r
}

func (r *Redactor) add(pairs ...Secret) {
	seen := make(map[string]bool, len(r.secrets))
	for _, s := range r.secrets {
		seen[s.Value] = true
	}
	for _, p := range pairs {
		if p.Masked == "" {
			p.Masked = Mask
		}
		if p.Value == "" || seen[p.Value] {
			continue
		}
		seen[p.Value] = true
		r.secrets = append(r.secrets, p)
	}

	// A secret that occurs inside a mask would be masked again on every
	// pass, so it is dropped.
	kept := r.secrets[:0]
	for _, s := range r.secrets {
		if r.insideMask(s.Value) {
			klog.V(4).Infof("ignoring secret of length %d: it occurs in a mask", len(s.Value))
			continue
		}
		kept = append(kept, s)
	}
	r.secrets = kept

	// Longest first so that a secret containing another one wins.
	sort.SliceStable(r.secrets, func(i, j int) bool {
		return len(r.secrets[i].Value) > len(r.secrets[j].Value)
	})
	oldnew := make([]string, 0, 2*len(r.secrets))
	for _, s := range r.secrets {
		oldnew = append(oldnew, s.Value, s.Masked)
	}
	r.replacer = strings.NewReplacer(oldnew...)
}

func (r *Redactor) insideMask(value string) bool {
	if strings.Contains(Mask, value) {
		return true
	}
	for _, s := range r.secrets {
		if strings.Contains(s.Masked, value) {
			return true
		}
	}
	return false
}

// Merge returns a new Redactor holding the secrets of r and all others.
func (r *Redactor) Merge(others ...*Redactor) *Redactor {
	out := &Redactor{}
	var pairs []Secret
	for _, o := range append([]*Redactor{r}, others...) {
		if o == nil {
			continue
		}
		pairs = append(pairs, o.secrets...)
	}
	out.add(pairs...)
	return out
}

// With returns a new Redactor that additionally masks values.
func (r *Redactor) With(values ...string) *Redactor {
	return r.Merge(New(values...))
}

// Empty returns true if there is nothing to redact.
func (r *Redactor) Empty() bool {
	return r == nil || len(r.secrets) == 0
}

// Secrets returns a copy of the registered secret pairs.
func (r *Redactor) Secrets() []Secret {
	if r == nil {
		return nil
	}
	return append([]Secret(nil), r.secrets...)
}

// Contains returns true if s holds any registered secret.
func (r *Redactor) Contains(s string) bool {
	if r.Empty() {
		return false
	}
	for _, secret := range r.secrets {
		if strings.Contains(s, secret.Value) {
			return true
		}
	}
	return false
}

// Redact replaces every occurrence of every secret in s. Applying it to its
// own output changes nothing.
func (r *Redactor) Redact(s string) string {
	if r.Empty() || s == "" {
		return s
	}
	// A secret may start or end inside a mask written by an earlier
	// replacement, so replace until nothing changes.
	for i := 0; i < maxRedactPasses; i++ {
		next := r.replacer.Replace(s)
		if next == s {
			return s
		}
		s = next
	}
	klog.Warningf("redaction did not settle after %d passes", maxRedactPasses)
	return s
}

// RedactLines redacts each line and returns the result in a new slice.
func (r *Redactor) RedactLines(lines []string) []string {
	out := make([]string, len(lines))
	for i := range lines {
		out[i] = r.Redact(lines[i])
	}
	return out
}

// Writer returns a writer that redacts complete lines before passing them
// on to w. Close flushes a trailing partial line.
func (r *Redactor) Writer(w io.Writer) io.WriteCloser {
	return &lineWriter{r: r, out: w}
}

type lineWriter struct {
	mu  sync.Mutex
	r   *Redactor
	out io.Writer
	buf bytes.Buffer
}

func (lw *lineWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lw.buf.Write(p)
	for {
		i := bytes.IndexByte(lw.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := lw.buf.Next(i + 1)
		if _, err := io.WriteString(lw.out, lw.r.Redact(string(line))); err != nil {
			return len(p), err
		}
	}
	return len(p), nil
}

func (lw *lineWriter) Close() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	if lw.buf.Len() == 0 {
		return nil
	}
	rest := lw.buf.String()
	lw.buf.Reset()
	_, err := io.WriteString(lw.out, lw.r.Redact(rest))
	return err
}
