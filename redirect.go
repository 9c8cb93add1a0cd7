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
	"sync"
)

// redirectMu serializes StreamRedirector scopes process-wide. The
// package-level os.Stdin/os.Stdout/os.Stderr variables are shared by
// every goroutine, not thread-local, so only one connection at a time
// may hold them redirected: a second connection blocks for the
// duration of the first's redirection rather than risking interleaved
// output on two different sockets.
var redirectMu sync.Mutex

// StreamRedirector temporarily repoints the package-level os.Stdin,
// os.Stdout and os.Stderr variables at a connection's socket. Restore
// is guaranteed via Release, which callers should invoke with defer
// immediately after a successful Acquire.
type StreamRedirector struct {
	prevStdin  *os.File
	prevStdout *os.File
	prevStderr *os.File
	active     bool
}

// Acquire takes the process-wide redirection lock and swaps stdin/stdout,
// and stderr too when redirectStderr is true, to f. Logger writes are
// suppressed for the duration so diagnostic output never lands on the
// client's socket.
func (r *StreamRedirector) Acquire(f *os.File, redirectStderr bool) {
	redirectMu.Lock()
	beginRedirecting()

	r.prevStdin, r.prevStdout = os.Stdin, os.Stdout
	os.Stdin, os.Stdout = f, f

	if redirectStderr {
		r.prevStderr = os.Stderr
		os.Stderr = f
	}
	r.active = true
}

// Release restores the previous stdin/stdout/stderr and drops the lock.
// Safe to call multiple times; a second call is a no-op.
func (r *StreamRedirector) Release() {
	if !r.active {
		return
	}
	os.Stdin, os.Stdout = r.prevStdin, r.prevStdout
	if r.prevStderr != nil {
		os.Stderr = r.prevStderr
		r.prevStderr = nil
	}
	r.active = false

	endRedirecting()
	redirectMu.Unlock()
}
