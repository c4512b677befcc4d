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
	"os/exec"
	"sync"

	"k8s.io/klog/v2"
)

// Handle identifies a live process in a Table.
type Handle uint64

// Table tracks the processes a Runner has started and not yet reaped.
type Table struct {
	mu    sync.Mutex
	next  Handle
	procs map[Handle]*exec.Cmd
}

// NewTable returns an empty process table.
func NewTable() *Table {
	return &Table{procs: make(map[Handle]*exec.Cmd)}
}

func (t *Table) register(cmd *exec.Cmd) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.procs[t.next] = cmd
	return t.next
}

func (t *Table) release(h Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.procs, h)
}

// Len returns the number of processes that are still running.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.procs)
}

// TerminateAll kills the process group of every live process and returns
// how many were signalled. The runs owning them still reap them.
func (t *Table) TerminateAll() int {
	t.mu.Lock()
	cmds := make([]*exec.Cmd, 0, len(t.procs))
	for _, cmd := range t.procs {
		cmds = append(cmds, cmd)
	}
	t.mu.Unlock()

	for _, cmd := range cmds {
		if err := killProcessGroup(cmd); err != nil {
			klog.Warningf("failed to terminate process %d: %v", cmd.Process.Pid, err)
		}
	}
	return len(cmds)
}
