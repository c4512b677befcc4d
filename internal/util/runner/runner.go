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

package runner

import (
	goerrors "errors"
	"fmt"
	"io"

	"github.com/go-errors/errors"
	"github.com/kptdev/matsync/internal/util/cmdutil"
	"github.com/spf13/cobra"
)

type stacked interface {
	Stack() []byte
}

// HandleError prints the stack trace of err when stack traces are enabled
// and returns err.
func HandleError(c *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	if cmdutil.PrintErrorStacktrace() {
		PrintStack(c.ErrOrStderr(), err)
	}
	return err
}

// PrintStack writes the deepest recorded stack trace of err to w. Errors
// that carry none get the stack of the caller.
func PrintStack(w io.Writer, err error) {
	var s stacked
	if goerrors.As(err, &s) {
		fmt.Fprintf(w, "%s", s.Stack())
		return
	}
	fmt.Fprintf(w, "%s", errors.Wrap(err, 2).Stack())
}
