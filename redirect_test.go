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
	"os"
	"path/filepath"
	"testing"
)

func TestStreamRedirectorRestoresPreviousFiles(t *testing.T) {
	origStdout, origStderr := os.Stdout, os.Stderr

	f, err := os.Create(filepath.Join(t.TempDir(), "redirect-target"))
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	var r StreamRedirector
	r.Acquire(f, true)

	if os.Stdout != f || os.Stderr != f {
		t.Fatalf("expected stdout/stderr to be redirected to f")
	}

	r.Release()

	if os.Stdout != origStdout {
		t.Errorf("expected stdout restored")
	}
	if os.Stderr != origStderr {
		t.Errorf("expected stderr restored")
	}
}

func TestStreamRedirectorLeavesStderrAloneWhenNotRequested(t *testing.T) {
	origStderr := os.Stderr

	f, err := os.Create(filepath.Join(t.TempDir(), "redirect-target"))
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	var r StreamRedirector
	r.Acquire(f, false)
	defer r.Release()

	if os.Stderr != origStderr {
		t.Errorf("expected stderr untouched when redirectStderr is false")
	}
}
