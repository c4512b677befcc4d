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

// Package history turns the text output of git log and git diff-tree into
// structured modifications.
package history

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kptdev/matsync/internal/errors"
	v1 "github.com/kptdev/matsync/pkg/api/material/v1"
)

// LogArgs are the git log arguments whose output Parser understands.
var LogArgs = []string{"log", "--date=iso", "--pretty=medium", "--no-color"}

var (
	ansiPattern   = regexp.MustCompile("\x1b\\[[0-9;]*[A-Za-z]")
	commitPattern = regexp.MustCompile(`^commit\s+([0-9a-fA-F]{4,64})(?:\s+\(.*\))?\s*$`)
	authorPattern = regexp.MustCompile(`^(.*?)\s*<([^>]*)>\s*$`)
	headerPattern = regexp.MustCompile(`^([A-Za-z][A-Za-z-]*):\s*(.*)$`)
	dateLayouts   = []string{"2006-01-02 15:04:05 -0700", time.RFC3339, "Mon Jan 2 15:04:05 2006 -0700"}
)

const bodyIndent = "    "

type parserState int

const (
	betweenCommits parserState = iota
	inHeader
	inBody
	inFiles
)

// Parser is a line oriented state machine over git log output in the
// medium format, with or without --name-status. It can be attached directly to the stdout of a running
// git process. The first error stops the parser; later lines are ignored.
type Parser struct {
	state   parserState
	current *v1.Modification
	body    []string
	mods    v1.Modifications
	err     error
}

// Consume feeds one line of output to the parser.
func (p *Parser) Consume(line string) {
	if p.err != nil {
		return
	}
	p.err = p.processLine(line)
}

func (p *Parser) processLine(raw string) error {
	const op errors.Op = "history.processLine"
	line := ansiPattern.ReplaceAllString(raw, "")

	if m := commitPattern.FindStringSubmatch(line); m != nil {
		p.finish()
		p.current = &v1.Modification{Revision: v1.Revision(m[1])}
		p.state = inHeader
		return nil
	}

	switch p.state {
	case betweenCommits:
		if strings.TrimSpace(line) == "" {
			return nil
		}
		return errors.E(op, errors.Internal, fmt.Errorf("%q appears before any commit header", line))

	case inHeader:
		if strings.TrimSpace(line) == "" {
			p.state = inBody
			return nil
		}
		m := headerPattern.FindStringSubmatch(line)
		if m == nil {
			return errors.E(op, errors.Internal, fmt.Errorf("unexpected line %q in the header of commit %s", line, p.current.Revision))
		}
		return p.header(m[1], m[2])

	case inBody:
		switch {
		case strings.HasPrefix(line, bodyIndent):
			p.body = append(p.body, strings.TrimPrefix(line, bodyIndent))
		case strings.TrimSpace(line) == "":
			p.body = append(p.body, "")
		default:
			// An unindented line ends the message. With --name-status the
			// file list of the commit follows.
			p.state = inFiles
			return p.file(line)
		}

	case inFiles:
		return p.file(line)
	}
	return nil
}

func (p *Parser) file(line string) error {
	const op errors.Op = "history.file"
	if strings.TrimSpace(line) == "" {
		return nil
	}
	f, ok := parseNameStatus(line)
	if !ok {
		return errors.E(op, errors.Internal, fmt.Errorf("unexpected line %q after the message of commit %s", line, p.current.Revision))
	}
	p.current.Files = append(p.current.Files, f)
	return nil
}

func (p *Parser) header(key, value string) error {
	const op errors.Op = "history.header"
	switch key {
	case "Author":
		if m := authorPattern.FindStringSubmatch(value); m != nil {
			p.current.Author, p.current.Email = m[1], m[2]
		} else {
			p.current.Author = strings.TrimSpace(value)
		}
	case "Date":
		t, err := parseDate(value)
		if err != nil {
			return errors.E(op, errors.Internal, fmt.Errorf("commit %s: %w", p.current.Revision, err))
		}
		p.current.Time = t
	}
	// Merge:, Commit: and the other keys of fuller formats are ignored.
	return nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable date %q", s)
}

// finish completes the modification being parsed, if any.
func (p *Parser) finish() {
	if p.current == nil {
		return
	}
	lines := collapseBlankLines(p.body)
	p.current.Comment = strings.Join(lines, "\n")
	if len(lines) > 0 {
		p.current.AdditionalData = map[string]string{v1.AdditionalDataSubject: lines[0]}
	}
	p.mods = append(p.mods, *p.current)
	p.current = nil
	p.body = nil
}

// collapseBlankLines trims leading and trailing blank lines and reduces runs
// of blank lines to one.
func collapseBlankLines(lines []string) []string {
	var out []string
	for _, l := range lines {
		blank := strings.TrimSpace(l) == ""
		if blank && (len(out) == 0 || out[len(out)-1] == "") {
			continue
		}
		if blank {
			l = ""
		}
		out = append(out, l)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

// Modifications ends parsing and returns the modifications in the order git
// printed them, most recent first.
func (p *Parser) Modifications() (v1.Modifications, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.finish()
	p.state = betweenCommits
	return p.mods.DeepCopy(), nil
}

// Parse parses complete git log output.
func Parse(lines []string) (v1.Modifications, error) {
	p := &Parser{}
	for _, l := range lines {
		p.Consume(l)
	}
	return p.Modifications()
}
