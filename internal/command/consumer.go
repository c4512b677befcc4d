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

package command

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// OutputConsumer receives console output meant for humans. Every line it
// sees has already been redacted.
type OutputConsumer interface {
	Stdout(line string)
	Stderr(line string)
}

type discard struct{}

func (discard) Stdout(string) {}

func (discard) Stderr(string) {}

// Discard drops all output.
var Discard OutputConsumer = discard{}

// WriterConsumer writes stdout and stderr lines to the given writers.
func WriterConsumer(out, err io.Writer) OutputConsumer {
	return &writerConsumer{out: out, err: err}
}

type writerConsumer struct {
	mu  sync.Mutex
	out io.Writer
	err io.Writer
}

func (w *writerConsumer) Stdout(line string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.out, line)
}

func (w *writerConsumer) Stderr(line string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.err, line)
}

// InMemory keeps every line it receives. It is safe for concurrent use.
type InMemory struct {
	mu     sync.Mutex
	stdout []string
	stderr []string
	all    []string
}

func (m *InMemory) Stdout(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stdout = append(m.stdout, line)
	m.all = append(m.all, line)
}

func (m *InMemory) Stderr(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stderr = append(m.stderr, line)
	m.all = append(m.all, line)
}

// StdoutLines returns a copy of the stdout lines.
func (m *InMemory) StdoutLines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.stdout...)
}

// StderrLines returns a copy of the stderr lines.
func (m *InMemory) StderrLines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.stderr...)
}

// AllOutput returns every line received, in arrival order, joined by
// newlines.
func (m *InMemory) AllOutput() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.Join(m.all, "\n")
}

// Tee sends each line to all consumers.
func Tee(consumers ...OutputConsumer) OutputConsumer {
	return tee(consumers)
}

type tee []OutputConsumer

func (t tee) Stdout(line string) {
	for _, c := range t {
		c.Stdout(line)
	}
}

func (t tee) Stderr(line string) {
	for _, c := range t {
		c.Stderr(line)
	}
}
