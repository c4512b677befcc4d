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

// Package errors defines the error handling used by the matsync codebase.
package errors

import (
	goerrors "errors"
	"fmt"
	"strings"

	"github.com/kptdev/matsync/internal/redact"
	"github.com/kptdev/matsync/internal/types"
)

// Error is an implementation of the error interface used in the matsync
// codebase.
// It is based on the design in https://commandcenter.blogspot.com/2017/12/error-handling-in-upspin.html
type Error struct {
	// Path is the working copy involved in the operation.
	Path types.UniquePath

	// Op is the operation being performed, for ex. gitutil.Fetch
	Op Op

	// Kind refers to the class of errors
	Kind Kind

	// Repo is the display form of the repository URL. It never holds
	// credentials.
	Repo Repo

	// Err refers to wrapped error (if any)
	Err error
}

func (e *Error) Error() string {
	b := new(strings.Builder)

	if e.Op != "" {
		pad(b, ": ")
		b.WriteString(string(e.Op))
	}

	if e.Path != "" {
		pad(b, ": ")
		b.WriteString("dir ")
		b.WriteString(string(e.Path))
	}

	if e.Repo != "" {
		pad(b, ": ")
		b.WriteString("repo ")
		b.WriteString(string(e.Repo))
	}

	if e.Kind != 0 {
		pad(b, ": ")
		b.WriteString(e.Kind.String())
	}

	if e.Err != nil {
		if wrappedErr, ok := e.Err.(*Error); ok {
			if !wrappedErr.Zero() {
				pad(b, ":\n\t")
				b.WriteString(wrappedErr.Error())
			}
		} else {
			pad(b, ": ")
			b.WriteString(e.Err.Error())
		}
	}
	if b.Len() == 0 {
		return "no error"
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Redact returns a copy of e with all secrets masked.
func (e *Error) Redact(r *redact.Redactor) error {
	cp := *e
	cp.Path = types.UniquePath(r.Redact(string(e.Path)))
	cp.Repo = Repo(r.Redact(string(e.Repo)))
	cp.Err = r.RedactError(e.Err)
	return &cp
}

// pad appends given str to the string buffer.
func pad(b *strings.Builder, str string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(str)
}

func (e *Error) Zero() bool {
	return e.Op == "" && e.Path == "" && e.Repo == "" && e.Kind == 0 && e.Err == nil
}

// Op describes the operation being performed.
type Op string

// Repo is the masked URL of the repository an error relates to.
type Repo string

// Kind describes the class of errors encountered.
type Kind int

const (
	Other        Kind = iota // Unclassified. Will not be printed.
	Exist                    // Item already exists.
	Internal                 // Internal error.
	InvalidParam             // Value is not valid.
	MissingParam             // Required value is missing or empty.
	Git                      // Errors from Git
	Config                   // Invalid invocation or material configuration.
	Spawn                    // The process could not be started.
	Revision                 // The requested revision does not exist.
	Timeout                  // A bounded wait expired.
	IO                       // Filesystem errors.
)

func (k Kind) String() string {
	switch k {
	case Other:
		return "other error"
	case Exist:
		return "item already exist"
	case Internal:
		return "internal error"
	case InvalidParam:
		return "invalid parameter value"
	case MissingParam:
		return "missing parameter value"
	case Git:
		return "git error"
	case Config:
		return "configuration error"
	case Spawn:
		return "could not start process"
	case Revision:
		return "revision not found"
	case Timeout:
		return "timed out"
	case IO:
		return "IO error"
	}
	return "unknown kind"
}

func E(args ...interface{}) error {
	if len(args) == 0 {
		panic("errors.E must have at least one argument")
	}

	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case types.UniquePath:
			e.Path = a
		case Op:
			e.Op = a
		case Kind:
			e.Kind = a
		case Repo:
			e.Repo = a
		case *Error:
			cp := *a
			e.Err = &cp
		case error:
			e.Err = a
		case string:
			e.Err = goerrors.New(a)
		default:
			panic(fmt.Errorf("unknown type %T for value %v in call to error.E", a, a))
		}
	}

	wrappedErr, ok := e.Err.(*Error)
	if !ok {
		return e
	}

	if e.Path == wrappedErr.Path {
		wrappedErr.Path = ""
	}

	if e.Repo == wrappedErr.Repo {
		wrappedErr.Repo = ""
	}

	if e.Op == wrappedErr.Op {
		wrappedErr.Op = ""
	}

	if e.Kind == wrappedErr.Kind {
		wrappedErr.Kind = 0
	}

	return e
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return goerrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return goerrors.As(err, target)
}

// IsKind reports whether any *Error in err's chain has kind k.
func IsKind(err error, k Kind) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok && e.Kind == k {
		return true
	}
	switch x := err.(type) {
	case interface{ Unwrap() []error }:
		for _, cause := range x.Unwrap() {
			if IsKind(cause, k) {
				return true
			}
		}
	case interface{ Unwrap() error }:
		return IsKind(x.Unwrap(), k)
	}
	return false
}
