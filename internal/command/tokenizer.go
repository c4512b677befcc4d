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
	"strings"
	"unicode"

	"github.com/kptdev/matsync/internal/errors"
)

type tokenizerState int

const (
	normal tokenizerState = iota
	inSingleQuote
	inDoubleQuote
)

// TranslateCommandLine splits s into arguments the way a POSIX shell would
// for plain words and quoted strings. Quotes are removed, quoted and
// unquoted text next to each other form one argument and '' yields an empty
// argument. No escapes, variables or globs are interpreted.
func TranslateCommandLine(s string) ([]string, error) {
	const op errors.Op = "command.TranslateCommandLine"

	var (
		tokens  []string
		current strings.Builder
		// inToken is set once the current token has started, so that an
		// empty quoted string still produces an argument.
		inToken bool
		state   = normal
	)

	for _, r := range s {
		switch state {
		case inSingleQuote:
			if r == '\'' {
				state = normal
				continue
			}
			current.WriteRune(r)
		case inDoubleQuote:
			if r == '"' {
				state = normal
				continue
			}
			current.WriteRune(r)
		default:
			switch {
			case r == '\'':
				state, inToken = inSingleQuote, true
			case r == '"':
				state, inToken = inDoubleQuote, true
			case unicode.IsSpace(r):
				if inToken {
					tokens = append(tokens, current.String())
					current.Reset()
					inToken = false
				}
			default:
				current.WriteRune(r)
				inToken = true
			}
		}
	}

	if state != normal {
		return nil, errors.E(op, errors.InvalidParam, "unbalanced quotes in command line")
	}
	if inToken {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}
