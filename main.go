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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kptdev/matsync/internal/errors"
	"github.com/kptdev/matsync/internal/errors/resolver"
	"github.com/kptdev/matsync/internal/util/cmdutil"
	"github.com/kptdev/matsync/pkg/printer"
	"github.com/kptdev/matsync/run"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

func main() {
	os.Exit(runMain())
}

// runMain does the initial setup in order to run matsync. The return value
// from this function will be the exit code when matsync terminates.
func runMain() int {
	var err error

	ctx := context.Background()

	// Enable commandline flags for klog.
	// logging will help in collecting debugging information from users
	klog.InitFlags(nil)
	defer klog.Flush()

	cmd := run.GetMain(ctx)

	err = cmd.Execute()
	if err != nil {
		return handleErr(cmd, err)
	}
	return 0
}

// handleErr takes care of printing an error message for a given error.
// The return value is the exit code matsync should return.
func handleErr(cmd *cobra.Command, err error) int {
	// If the error has been resolved by the resolver, print the resolved
	// message and return the resolved exit code.
	if res, ok := resolver.ResolveError(err); ok {
		if res.Message != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s \n", res.Message)
		}
		return res.ExitCode
	}

	// Errors from the matsync packages are printed with their context.
	var matsyncErr *errors.Error
	if errors.As(err, &matsyncErr) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s \n", matsyncErr.Error())
		return 1
	}

	// Other errors come from cobra or the flag parsing.
	pr := printer.FromContextOrDie(cmd.Context())
	if cmdutil.PrintErrorStacktrace() {
		pr.Printf("%+v\n", err)
	} else {
		pr.Printf("Error: %s \n", err.Error())
	}
	return 1
}
