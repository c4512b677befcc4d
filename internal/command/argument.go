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
	"net/url"
	"regexp"
	"strings"

	"github.com/kptdev/matsync/internal/redact"
)

// Argument is one element of a command line. The real value is only ever
// handed to the operating system; everything shown to a human uses the
// display form.
type Argument interface {
	ForCommandLine() string
	ForDisplay() string
}

// SecretHolder is implemented by arguments that carry sensitive text which
// must also be masked in the output of the process.
type SecretHolder interface {
	Secrets() []string
}

// StringArgument is a plain argument displayed as is.
type StringArgument string

func (a StringArgument) ForCommandLine() string { return string(a) }

func (a StringArgument) ForDisplay() string { return string(a) }

// PasswordArgument is always displayed as the mask.
type PasswordArgument string

func (a PasswordArgument) ForCommandLine() string { return string(a) }

func (a PasswordArgument) ForDisplay() string { return redact.Mask }

func (a PasswordArgument) Secrets() []string { return []string{string(a)} }

// userinfoPattern matches "scheme://user:password@" so that the password can
// be masked even when the rest of the URL does not parse.
var userinfoPattern = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9+.\-]*://[^/?#@:]*:)([^/?#]*)(@[^@/?#]*(?:[/?#].*)?)$`)

// URLArgument is a repository URL that may embed credentials. Only the
// password segment of the userinfo is masked for display.
type URLArgument struct {
	raw string
}

// NewURLArgument wraps a raw URL.
func NewURLArgument(raw string) URLArgument {
	return URLArgument{raw: raw}
}

func (a URLArgument) ForCommandLine() string { return a.raw }

func (a URLArgument) ForDisplay() string {
	m := userinfoPattern.FindStringSubmatch(a.raw)
	if m == nil || m[2] == "" {
		return a.raw
	}
	return m[1] + redact.Mask + m[3]
}

func (a URLArgument) String() string { return a.ForDisplay() }

// Original returns the URL as it was provided.
func (a URLArgument) Original() string { return a.raw }

// Secrets returns the password both as written in the URL and decoded.
func (a URLArgument) Secrets() []string {
	m := userinfoPattern.FindStringSubmatch(a.raw)
	if m == nil || m[2] == "" {
		return nil
	}
	secrets := []string{m[2]}
	if decoded, err := url.PathUnescape(m[2]); err == nil && decoded != m[2] {
		secrets = append(secrets, decoded)
	}
	return secrets
}

// WithCredentials returns a copy of the URL with the given userinfo. URLs
// that are not http(s) or that already carry a user are returned unchanged.
func (a URLArgument) WithCredentials(username, password string) URLArgument {
	if username == "" && password == "" {
		return a
	}
	u, err := url.Parse(a.raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.User != nil {
		return a
	}
	if password == "" {
		u.User = url.User(username)
	} else {
		u.User = url.UserPassword(username, password)
	}
	return URLArgument{raw: u.String()}
}

// WithoutCredentials strips the userinfo entirely.
func (a URLArgument) WithoutCredentials() string {
	u, err := url.Parse(a.raw)
	if err != nil || u.User == nil {
		m := userinfoPattern.FindStringSubmatch(a.raw)
		if m == nil {
			return a.raw
		}
		scheme, _, _ := strings.Cut(m[1], "://")
		return scheme + "://" + strings.TrimPrefix(m[3], "@")
	}
	u.User = nil
	return u.String()
}
