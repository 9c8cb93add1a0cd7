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
	"net"
	"path/filepath"
	"testing"
	"time"
)

// TestForkHookTriggersReinstall exercises the path a ForkHook takes in a
// forked child: the hook is handed the parent's Installer and calls
// Reinstall on it. Issuing a real fork(2) from a running Go test binary
// would duplicate the whole runtime and scheduler, so this drives the
// hook function directly against a live Installer instead of going
// through ForkWithHook.
func TestForkHookTriggersReinstall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manhole-test-fork")

	config := DefaultConfig()
	config.Verbose = false
	config.SocketPath = path
	config.ConnectionHandler = EXEC
	config.StartTimeout = 2 * time.Second
	config.ReinstallDelay = 0

	installer, err := Install(config)
	if err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	defer installer.Release()

	pre, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("expected to dial the pre-reinstall socket: %v", err)
	}
	// Close it so the session ends; Reinstall waits for an in-flight
	// session when DaemonConnection is false.
	pre.Close()

	var hook ForkHook = func(i *Installer) {
		if err := i.Reinstall(); err != nil {
			t.Errorf("Reinstall from ForkHook failed: %v", err)
		}
	}
	hook(installer)

	deadline := time.Now().Add(2 * time.Second)
	var dialErr error
	for time.Now().Before(deadline) {
		var conn net.Conn
		conn, dialErr = net.Dial("unix", path)
		if dialErr == nil {
			conn.Close()
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if dialErr != nil {
		t.Fatalf("expected the reinstalled socket to accept connections, last error: %v", dialErr)
	}
}

func TestForkHookNilIsSafeToInvokeConditionally(t *testing.T) {
	var hook ForkHook
	if hook != nil {
		t.Fatalf("expected nil ForkHook to compare equal to nil")
	}
}
