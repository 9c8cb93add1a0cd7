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
	"os"
	"path/filepath"
	"testing"
)

func TestBindEndpointAcceptsAndUnlinks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manhole-test")

	ep, err := BindEndpoint(path, false)
	if err != nil {
		t.Fatalf("BindEndpoint failed: %v", err)
	}
	if ep.Path() != path {
		t.Errorf("expected path %q, got %q", path, ep.Path())
	}

	done := make(chan struct{})
	go func() {
		conn, err := ep.Accept()
		if err == nil {
			conn.Close()
		}
		close(done)
	}()

	client, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	client.Close()
	<-done

	if err := ep.CloseAndUnlink(); err != nil {
		t.Fatalf("CloseAndUnlink failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected socket path to be removed, stat err: %v", err)
	}
}

func TestBindEndpointUnlinksStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manhole-test")

	first, err := BindEndpoint(path, false)
	if err != nil {
		t.Fatalf("first bind failed: %v", err)
	}
	// Simulate a stale socket file left behind by a crashed process: close
	// the listener without unlinking, then bind again at the same path.
	first.listener.Close()

	second, err := BindEndpoint(path, false)
	if err != nil {
		t.Fatalf("expected rebind over stale socket to succeed: %v", err)
	}
	defer second.CloseAndUnlink()
}
