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
	"errors"
	"net"
	"runtime"
	"sync"
	"syscall"
	"time"
)

// ManholeThread owns the accept loop: bind, signal readiness, then serve
// exactly one connection at a time until Stop is called. A thread runs
// once; Reinstall builds a fresh one rather than restarting a stopped
// thread.
type ManholeThread struct {
	config Config
	logger *Logger
	peer   PeerAuth

	mu       sync.Mutex
	endpoint *EndpointSocket
	current  *net.UnixConn
	ready    chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup
	started  bool
}

// NewManholeThread builds a ManholeThread bound to the given
// configuration and logger. It does not bind a socket until Start.
func NewManholeThread(config Config, logger *Logger) *ManholeThread {
	return &ManholeThread{config: config, logger: logger}
}

// Start applies the configured thread name, sigmask, bind delay and
// backlog, binds the endpoint, signals readiness, then begins accepting
// connections on a new goroutine. It blocks until either the socket is
// bound or config.StartTimeout elapses; a miss logs a warning but is
// not an error, so a slow bind never fails an install.
func (t *ManholeThread) Start(socketPath string) error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return errors.New("manhole: thread already started")
	}
	t.started = true
	t.ready = make(chan struct{})
	t.done = make(chan struct{})
	t.mu.Unlock()

	t.wg.Add(1)
	go t.run(socketPath)

	select {
	case <-t.ready:
	case <-time.After(t.config.StartTimeout):
		t.logger.Log("Waited %s for the manhole thread to start, it still isn't ready", t.config.StartTimeout)
	}
	return nil
}

func (t *ManholeThread) run(socketPath string) {
	defer t.wg.Done()
	// Sigmask and thread name are properties of the OS thread, not the
	// goroutine, so pin this goroutine to one for its whole lifetime.
	runtime.LockOSThread()
	setThreadName("Manhole")
	applySigmask(t.config.Sigmask)

	if t.config.BindDelay > 0 {
		select {
		case <-time.After(t.config.BindDelay):
		case <-t.done:
			close(t.ready)
			return
		}
	}

	ep, err := BindEndpoint(socketPath, t.config.UseSystemdActivation)
	if err != nil {
		t.logger.Log("Could not bind manhole socket: %s", err)
		close(t.ready)
		return
	}

	t.mu.Lock()
	t.endpoint = ep
	t.mu.Unlock()
	close(t.ready)

	// Stop may have run before the endpoint was published; it couldn't
	// close what it couldn't see, so honor the flag here instead.
	select {
	case <-t.done:
		ep.CloseAndUnlink()
		return
	default:
	}

	t.logger.Log("Manhole UDS listening at %s", ep.Path())

	for {
		t.logger.Log("Waiting for new connection")
		conn, err := ep.Accept()
		if err != nil {
			select {
			case <-t.done:
				return
			default:
			}
			if isTemporary(err) {
				continue
			}
			t.logger.Log("Manhole accept failed: %s", err)
			return
		}
		t.handle(conn)
	}
}

func (t *ManholeThread) handle(conn *net.UnixConn) {
	t.mu.Lock()
	t.current = conn
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.current = nil
		t.mu.Unlock()
		conn.Close()
	}()

	creds, err := t.peer.Check(conn)
	if err != nil {
		t.logger.Log("Rejected manhole client: %s", err)
		t.logger.Log("Cleaned up.")
		return
	}
	t.logger.Log("Accepted manhole client %s", creds)

	session := &Session{Conn: conn, Peer: creds, Config: t.config, Logger: t.logger}
	if err := session.serve(); err != nil {
		t.logger.Log("Manhole session for %s ended: %s", creds, err)
	}
	t.logger.Log("Cleaned up.")
}

// Stop unblocks the accept loop and waits for it to exit. The socket is
// unlinked unless it was adopted from systemd. An in-flight session is
// waited for, unless Config.DaemonConnection is set, in which case its
// socket is shut down so the evaluator's next read fails and the session
// drains immediately. Safe to call on a thread that never started.
func (t *ManholeThread) Stop() {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return
	}
	close(t.done)
	ep := t.endpoint
	conn := t.current
	t.mu.Unlock()

	if ep != nil {
		ep.CloseAndUnlink()
	}
	if conn != nil && t.config.DaemonConnection {
		// shutdown(2), not close: the REPL handler reads from a dup of
		// this descriptor, and only a shutdown reaches every dup.
		conn.CloseRead()
	}
	t.wg.Wait()
}

// isTemporary reports whether an accept error should be retried: an
// interrupted syscall, or a transient timeout.
func isTemporary(err error) bool {
	if errors.Is(err, syscall.EINTR) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}
