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
	"bufio"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// unixPair returns the two ends of a connected Unix-domain socket, the
// server side as the *net.UnixConn a Session expects.
func unixPair(t *testing.T) (*net.UnixConn, net.Conn) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pair")

	l, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer l.Close()

	accepted := make(chan *net.UnixConn, 1)
	go func() {
		conn, err := l.AcceptUnix()
		if err == nil {
			accepted <- conn
		}
	}()

	client, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	server := <-accepted
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return server, client
}

func TestSessionExecEvaluatesEachLine(t *testing.T) {
	server, client := unixPair(t)

	session := &Session{
		Conn:   server,
		Config: Config{ConnectionHandler: EXEC, Evaluator: upperEchoEvaluator{}},
		Logger: quietLogger(),
	}

	served := make(chan error, 1)
	go func() { served <- session.serve() }()

	if _, err := client.Write([]byte("hello\n")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	line, err := bufio.NewReader(client).ReadString('\n')
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(line, "HELLO") {
		t.Errorf("expected echoed HELLO, got %q", line)
	}

	client.Close()
	if err := <-served; err != nil {
		t.Errorf("expected clean EOF exit, got %v", err)
	}
}

func TestSessionCustomHandlerFuncTakesPrecedence(t *testing.T) {
	server, client := unixPair(t)

	var invoked bool
	session := &Session{
		Conn: server,
		Config: Config{
			ConnectionHandler: EXEC,
			ConnectionHandlerFunc: func(s *Session) error {
				invoked = true
				io.WriteString(s.Conn, "custom\n")
				return nil
			},
		},
		Logger: quietLogger(),
	}

	served := make(chan error, 1)
	go func() { served <- session.serve() }()

	line, err := bufio.NewReader(client).ReadString('\n')
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if line != "custom\n" {
		t.Errorf("expected the custom handler's output, got %q", line)
	}
	if err := <-served; err != nil {
		t.Errorf("unexpected serve error: %v", err)
	}
	if !invoked {
		t.Error("expected ConnectionHandlerFunc to run instead of the built-in handler")
	}
}

func TestSessionREPLRestoresStdioIdentity(t *testing.T) {
	origStdin, origStdout, origStderr := os.Stdin, os.Stdout, os.Stderr

	server, client := unixPair(t)

	session := &Session{
		Conn:   server,
		Config: Config{ConnectionHandler: REPL, RedirectStderr: true},
		Logger: quietLogger(),
	}

	served := make(chan error, 1)
	go func() { served <- session.serve() }()

	// Drain the banner and stack dump until the first prompt, then quit.
	var drained strings.Builder
	chunk := make([]byte, 4096)
	for !strings.Contains(drained.String(), ">>>") {
		n, err := client.Read(chunk)
		drained.Write(chunk[:n])
		if err != nil {
			t.Fatalf("expected a >>> prompt before EOF, got error: %v", err)
		}
	}
	if _, err := client.Write([]byte("quit\n")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if err := <-served; err != nil {
		t.Errorf("expected clean REPL exit, got %v", err)
	}

	if os.Stdin != origStdin || os.Stdout != origStdout || os.Stderr != origStderr {
		t.Error("expected stdin/stdout/stderr restored to their pre-session identities")
	}
}
