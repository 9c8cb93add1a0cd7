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

package main

import (
	"bytes"
	"io"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParsePIDBareNumber(t *testing.T) {
	pid, err := parsePID("1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pid != 1234 {
		t.Errorf("expected 1234, got %d", pid)
	}
}

func TestParsePIDSocketPath(t *testing.T) {
	pid, err := parsePID("/tmp/manhole-5678")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pid != 5678 {
		t.Errorf("expected 5678, got %d", pid)
	}
}

func TestParsePIDRejectsGarbage(t *testing.T) {
	if _, err := parsePID("not-a-pid"); err == nil {
		t.Errorf("expected an error for garbage input")
	}
}

// dialPair connects a client to a throwaway unix listener and hands the
// test both ends of the session.
func dialPair(t *testing.T) (client net.Conn, server net.Conn) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sock")

	l, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer l.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := l.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	client, err = net.Dial("unix", path)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	server = <-accepted
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

func TestRelaySessionReturnsOnLocalEOF(t *testing.T) {
	client, server := dialPair(t)

	// The remote side stays connected and silent; only local input
	// running out may end the session.
	go io.Copy(io.Discard, server)

	done := make(chan struct{})
	go func() {
		relaySession(client, strings.NewReader("print('x')\n"), io.Discard, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("relaySession did not return after local stdin EOF")
	}
}

func TestRelaySessionStreamsRemoteOutput(t *testing.T) {
	client, server := dialPair(t)

	go func() {
		io.WriteString(server, ">>> hello\n")
		server.Close()
	}()

	// Input that never ends, so only the remote disconnect can join.
	blocked, feed := io.Pipe()
	defer feed.Close()

	var out bytes.Buffer
	relaySession(client, blocked, &out, nil)

	if !strings.Contains(out.String(), ">>> hello") {
		t.Errorf("expected remote output relayed, got %q", out.String())
	}
}

func TestRelaySessionForwardsInputLines(t *testing.T) {
	client, server := dialPair(t)

	received := make(chan string, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := server.Read(buf)
		received <- string(buf[:n])
	}()

	relaySession(client, strings.NewReader("dump_stacktraces\n"), io.Discard, nil)

	select {
	case got := <-received:
		if got != "dump_stacktraces\n" {
			t.Errorf("expected the input line with its newline, got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the relayed line")
	}
}
