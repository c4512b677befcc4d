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

package redact

import (
	"fmt"

	goerrors "github.com/go-errors/errors"
	pkgerrors "github.com/pkg/errors"
)

// Redactable is implemented by error types that know how to produce a
// masked copy of themselves. The copy must have the same concrete type so
// that errors.As keeps matching after redaction.
type Redactable interface {
	Redact(r *Redactor) error
}

// Error replaces an error whose type does not implement Redactable. It
// keeps the masked message, the redacted causes and the stack trace of the
// original error.
type Error struct {
	msg      string
	origType string
	causes   []error
	stack    []byte
}

func (e *Error) Error() string {
	return e.msg
}

// Unwrap returns the redacted causes of the original error.
func (e *Error) Unwrap() []error {
	return e.causes
}

// Stack returns the stack trace of the original error.
func (e *Error) Stack() []byte {
	return e.stack
}

// ErrorStack returns the message followed by the stack trace, like the
// go-errors ErrorStack.
func (e *Error) ErrorStack() string {
	return fmt.Sprintf("%s %s\n%s", e.origType, e.msg, e.stack)
}

// OriginalType names the concrete type of the error that was redacted.
func (e *Error) OriginalType() string {
	return e.origType
}

// RedactError returns err with every secret masked in the message of every
// error of its chain. The shape of the chain and the stack traces are
// preserved. Errors that hold no secret are returned as is.
func (r *Redactor) RedactError(err error) error {
	if err == nil || r.Empty() || !r.chainContains(err) {
		return err
	}
	return r.redactNode(err)
}

func (r *Redactor) redactNode(err error) error {
	if err == nil {
		return nil
	}
	if red, ok := err.(Redactable); ok {
		return red.Redact(r)
	}
	out := &Error{
		msg:      r.Redact(err.Error()),
		origType: fmt.Sprintf("%T", err),
		stack:    stackOf(err),
	}
	for _, cause := range unwrap(err) {
		out.causes = append(out.causes, r.RedactError(cause))
	}
	return out
}

func (r *Redactor) chainContains(err error) bool {
	if err == nil {
		return false
	}
	if r.Contains(err.Error()) {
		return true
	}
	for _, cause := range unwrap(err) {
		if r.chainContains(cause) {
			return true
		}
	}
	return false
}

func unwrap(err error) []error {
	switch x := err.(type) {
	case interface{ Unwrap() []error }:
		return x.Unwrap()
	case interface{ Unwrap() error }:
		if c := x.Unwrap(); c != nil {
			return []error{c}
		}
	case interface{ Cause() error }:
		if c := x.Cause(); c != nil && c != err {
			return []error{c}
		}
	}
	return nil
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

func stackOf(err error) []byte {
	switch x := err.(type) {
	case interface{ Stack() []byte }:
		return x.Stack()
	case stackTracer:
		return []byte(fmt.Sprintf("%+v", x.StackTrace()))
	}
	// Errors without a recorded stack get the one of the redaction site.
	return goerrors.Wrap(err, 3).Stack()
}
