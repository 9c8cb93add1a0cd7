//
// Copyright © 2017 Solus Project
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
//

package manhole

import (
	"syscall"
	"testing"
)

func TestConfigValidateRejectsSameSignalTwice(t *testing.T) {
	c := DefaultConfig()
	c.ActivateSignal = syscall.SIGUSR1
	c.OneshotSignal = syscall.SIGUSR1
	if err := c.validate(); err != ErrConfigurationConflict {
		t.Fatalf("expected ErrConfigurationConflict, got %v", err)
	}
}

func TestConfigValidateAllowsDistinctSignals(t *testing.T) {
	c := DefaultConfig()
	c.ActivateSignal = syscall.SIGUSR1
	c.OneshotSignal = syscall.SIGUSR2
	if err := c.validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestShouldPatchForkDisabledBySocketPath(t *testing.T) {
	c := DefaultConfig()
	c.SocketPath = "/tmp/fixed"
	if c.shouldPatchFork() {
		t.Errorf("expected patch_fork disabled when SocketPath is set")
	}
}

func TestShouldPatchForkDisabledByActivateSignal(t *testing.T) {
	c := DefaultConfig()
	c.ActivateSignal = syscall.SIGUSR1
	if c.shouldPatchFork() {
		t.Errorf("expected patch_fork disabled when ActivateSignal is set")
	}
}

func TestShouldPatchForkDefaultEnabled(t *testing.T) {
	c := DefaultConfig()
	if !c.shouldPatchFork() {
		t.Errorf("expected patch_fork enabled by default")
	}
}

func TestStartsThreadFalseWhenSignalConfigured(t *testing.T) {
	c := DefaultConfig()
	c.OneshotSignal = syscall.SIGUSR2
	if c.startsThread() {
		t.Errorf("expected startsThread false when OneshotSignal is set")
	}
}

func TestConnectionHandlerKindString(t *testing.T) {
	if REPL.String() != "repl" {
		t.Errorf("expected REPL to stringify to repl, got %s", REPL.String())
	}
	if EXEC.String() != "exec" {
		t.Errorf("expected EXEC to stringify to exec, got %s", EXEC.String())
	}
}
