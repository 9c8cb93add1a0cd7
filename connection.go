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
	"fmt"
	"net"
	"os"
)

// Session is handed to a custom ConnectionHandlerFunc, and used
// internally by the built-in REPL/EXEC handlers. It bundles the accepted
// connection, its authenticated peer credentials and the configuration
// that selected this handler.
type Session struct {
	Conn   *net.UnixConn
	Peer   PeerCredentials
	Config Config
	Logger *Logger
}

// serve dispatches to the custom handler if one is configured, otherwise
// the built-in handler selected by Config.ConnectionHandler.
func (s *Session) serve() error {
	if s.Config.ConnectionHandlerFunc != nil {
		return s.Config.ConnectionHandlerFunc(s)
	}
	switch s.Config.ConnectionHandler {
	case EXEC:
		return s.serveExec()
	default:
		return s.serveREPL()
	}
}

// serveREPL redirects stdio onto the socket for the session's duration,
// prints a banner and stacktrace dump, then hands control to runREPL.
func (s *Session) serveREPL() error {
	f, err := socketFile(s.Conn)
	if err != nil {
		return err
	}
	defer f.Close()

	var redirector StreamRedirector
	redirector.Acquire(f, s.Config.RedirectStderr)
	defer redirector.Release()

	fmt.Fprintf(f, "Manhole, PID %d\n\n", currentPID())
	dumpStacktraces(f)
	fmt.Fprintln(f)

	s.Logger.Log("Dropping into REPL for %s", s.Peer)
	return runREPL(f, s.Config.Locals, s.Config.Evaluator)
}

// serveExec reads each newline-terminated line off the raw connection
// and evaluates it directly, with no stdio redirection.
func (s *Session) serveExec() error {
	eval := s.Config.Evaluator
	if eval == nil {
		eval = defaultEvaluator{}
	}
	scanner := bufio.NewScanner(s.Conn)
	for scanner.Scan() {
		if err := eval.Eval(scanner.Text(), s.Config.Locals, s.Conn); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// socketFile duplicates the connection's underlying descriptor into an
// *os.File suitable for assignment to os.Stdin/Stdout/Stderr. The
// returned file is independently closable; closing it does not close
// conn.
func socketFile(conn *net.UnixConn) (*os.File, error) {
	f, err := conn.File()
	if err != nil {
		return nil, err
	}
	return f, nil
}
