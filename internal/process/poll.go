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

package process

import (
	"context"
	"fmt"
	"time"

	"github.com/kptdev/matsync/internal/errors"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"
)

// TimeoutError is returned by PollUntil when the condition was not met in
// time. LastErr holds the failure of the last attempt, if any.
type TimeoutError struct {
	Description string
	Timeout     time.Duration
	Elapsed     time.Duration
	Attempts    int
	LastErr     error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timed out after %s waiting for %s (%d attempts)",
		e.Elapsed.Round(time.Millisecond), e.Description, e.Attempts)
	if e.LastErr != nil {
		msg += ": " + e.LastErr.Error()
	}
	return msg
}

func (e *TimeoutError) Unwrap() error {
	return e.LastErr
}

// Attempt is polled until it reports done. An error does not stop the
// polling; it is kept as the diagnostic of the attempt.
type Attempt func(ctx context.Context) (done bool, err error)

// PollUntil calls attempt immediately and then every interval until it
// reports done or timeout expires.
func PollUntil(ctx context.Context, description string, interval, timeout time.Duration, attempt Attempt) error {
	const op errors.Op = "process.PollUntil"
	start := time.Now()
	var lastErr error
	attempts := 0

	err := wait.PollUntilContextTimeout(ctx, interval, timeout, true, func(ctx context.Context) (bool, error) {
		attempts++
		done, err := attempt(ctx)
		if err != nil {
			klog.V(4).Infof("attempt %d of %s failed: %v", attempts, description, err)
			lastErr = err
			return false, nil
		}
		if done {
			lastErr = nil
		}
		return done, nil
	})
	if err == nil {
		return nil
	}
	if parentErr := ctx.Err(); parentErr != nil {
		return errors.E(op, parentErr)
	}
	if wait.Interrupted(err) {
		return errors.E(op, errors.Timeout, &TimeoutError{
			Description: description,
			Timeout:     timeout,
			Elapsed:     time.Since(start),
			Attempts:    attempts,
			LastErr:     lastErr,
		})
	}
	return errors.E(op, err)
}
