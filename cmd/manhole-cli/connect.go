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
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"syscall"
	"time"

	"github.com/solus-project/manhole"
	"github.com/spf13/cobra"
)

// exitTimeout is the exit code used when the connect deadline elapses
// before a connection succeeds.
const exitTimeout = 5

var pidPattern = regexp.MustCompile(`^(/tmp/manhole-)?(\d+)$`)

// parsePID accepts either a bare pid ("1234") or a full socket path
// ("/tmp/manhole-1234").
func parsePID(value string) (int, error) {
	m := pidPattern.FindStringSubmatch(value)
	if m == nil {
		return 0, fmt.Errorf("PID must be in one of these forms: 1234 or /tmp/manhole-1234")
	}
	return strconv.Atoi(m[2])
}

func newConnectCommand() *cobra.Command {
	var timeout float64
	var signalFlag string
	var usr1, usr2 bool

	cmd := &cobra.Command{
		Use:   "connect PID",
		Short: "Connect to a manhole by pid or socket path.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parsePID(args[0])
			if err != nil {
				return err
			}

			var sig syscall.Signal
			switch {
			case usr1:
				sig = syscall.SIGUSR1
			case usr2:
				sig = syscall.SIGUSR2
			case signalFlag != "":
				parsed, ok := manhole.ParseSignal(signalFlag)
				if !ok {
					return fmt.Errorf("invalid signal name or number %q", signalFlag)
				}
				sig = parsed
			}
			if sig != 0 {
				if err := syscall.Kill(pid, sig); err != nil {
					return fmt.Errorf("failed to signal pid %d: %w", pid, err)
				}
			}

			return runConnect(pid, time.Duration(timeout*float64(time.Second)))
		},
	}

	cmd.Flags().Float64VarP(&timeout, "timeout", "t", 1, "Timeout to use, in seconds.")
	cmd.Flags().StringVarP(&signalFlag, "signal", "s", "", "Send the given SIGNAL to the process before connecting.")
	cmd.Flags().BoolVarP(&usr1, "usr1", "1", false, "Send USR1 to the process before connecting.")
	cmd.Flags().BoolVarP(&usr2, "usr2", "2", false, "Send USR2 to the process before connecting.")
	return cmd
}

// runConnect dials the manhole UDS at /tmp/manhole-<pid>, retrying until
// timeout elapses, then relays the session: a goroutine streams socket
// output straight to stdout, while lines typed on stdin are written to
// the socket and appended to the history file as they're sent.
func runConnect(pid int, timeout time.Duration) error {
	path := manhole.DefaultSocketPath(pid)

	deadline := time.Now().Add(timeout)
	var conn net.Conn
	var err error
	for {
		conn, err = net.DialTimeout("unix", path, timeout)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			fmt.Fprintf(os.Stderr, "Failed to connect to %q: timeout\n", path)
			os.Exit(exitTimeout)
		}
		time.Sleep(20 * time.Millisecond)
	}
	defer conn.Close()

	history := openHistory()
	if history != nil {
		defer history.Close()
	}

	relaySession(conn, os.Stdin, os.Stdout, history)
	return nil
}

// relaySession bridges the operator's terminal and the manhole: a reader
// goroutine streams socket output to out, while lines read from in are
// written to conn with the newline the server-side scanner expects, and
// appended to history. It joins on whichever side ends first: a remote
// disconnect drains the output copy, and local EOF (Ctrl-D, or piped
// input running out) tears the session down instead of leaving the
// operator hanging on a remote that will never speak again.
func relaySession(conn net.Conn, in io.Reader, out io.Writer, history *os.File) {
	remoteDone := make(chan struct{})
	go func() {
		io.Copy(out, conn)
		close(remoteDone)
	}()

	localDone := make(chan struct{})
	go func() {
		defer close(localDone)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			line := scanner.Text()
			fmt.Fprintln(conn, line)
			if history != nil {
				fmt.Fprintln(history, line)
			}
		}
	}()

	select {
	case <-remoteDone:
	case <-localDone:
		conn.Close()
	}
}

// openHistory opens ~/.manhole_history for append. This is a plain
// append, not line-editing recall.
func openHistory() *os.File {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(home, ".manhole_history"), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil
	}
	return f
}
