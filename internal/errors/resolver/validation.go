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

package resolver

import (
	"errors"

	v1 "github.com/kptdev/matsync/pkg/api/material/v1"
)

// materialValidateErrorResolver is an implementation of the ErrorResolver interface
// to resolve material validation errors.
type materialValidateErrorResolver struct{}

func (*materialValidateErrorResolver) Resolve(err error) (ResolvedResult, bool) {
	var validateError *v1.ValidateError
	if !errors.As(err, &validateError) {
		return ResolvedResult{}, false
	}
	return ResolvedResult{
		Message:  "Error: " + validateError.Error(),
		ExitCode: 1,
	}, true
}
