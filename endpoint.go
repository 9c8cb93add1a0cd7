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
	"fmt"
	"net"
	"os"

	"github.com/coreos/go-systemd/v22/activation"
	"golang.org/x/sys/unix"
)

const endpointBacklog = 5

// EndpointSocket owns a listening Unix-domain socket: the path is
// computed, any stale inode unlinked, the socket bound and listened with
// a fixed backlog. Only one connection is ever served at a time; the
// next Accept is the caller's responsibility to not issue until the
// previous connection has been fully handled.
type EndpointSocket struct {
	path      string
	listener  *net.UnixListener
	ownsPath  bool // false when systemd provided (and owns) the socket
}

// DefaultSocketPath returns the conventional /tmp/manhole-<pid> path for
// the given pid.
func DefaultSocketPath(pid int) string {
	return fmt.Sprintf("/tmp/manhole-%d", pid)
}

// BindEndpoint binds a UDS listener at path (or, when useSystemd is true
// and the process was launched with LISTEN_FDS, adopts the
// systemd-provided listener instead).
func BindEndpoint(path string, useSystemd bool) (*EndpointSocket, error) {
	if useSystemd {
		if ep, err := bindFromSystemd(path); err == nil && ep != nil {
			return ep, nil
		}
	}
	return bindFresh(path)
}

func bindFromSystemd(path string) (*EndpointSocket, error) {
	if _, set := os.LookupEnv("LISTEN_FDS"); !set {
		return nil, nil
	}
	listeners, err := activation.Listeners()
	if err != nil {
		return nil, err
	}
	if len(listeners) != 1 {
		return nil, errors.New("manhole: expected exactly one systemd-activated listener")
	}
	ul, ok := listeners[0].(*net.UnixListener)
	if !ok {
		return nil, errors.New("manhole: systemd-activated listener is not a unix socket")
	}
	// Mustn't delete on close: the unit file, not us, owns the inode.
	ul.SetUnlinkOnClose(false)
	return &EndpointSocket{path: path, listener: ul, ownsPath: false}, nil
}

// bindFresh creates the socket by hand rather than with net.ListenUnix,
// which always listens with the system-wide maximum backlog; this
// endpoint serves one operator at a time and wants the small fixed
// backlog instead.
func bindFresh(path string) (*EndpointSocket, error) {
	if err := unlinkStale(path); err != nil {
		return nil, err
	}
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := unix.Listen(fd, endpointBacklog); err != nil {
		unix.Close(fd)
		os.Remove(path)
		return nil, err
	}

	f := os.NewFile(uintptr(fd), path)
	defer f.Close()
	l, err := net.FileListener(f)
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	ul, ok := l.(*net.UnixListener)
	if !ok {
		l.Close()
		os.Remove(path)
		return nil, errors.New("manhole: bound listener is not a unix socket")
	}
	ul.SetUnlinkOnClose(false) // CloseAndUnlink takes ownership of the unlink
	return &EndpointSocket{path: path, listener: ul, ownsPath: true}, nil
}

func unlinkStale(path string) error {
	if _, err := os.Stat(path); err == nil {
		return os.Remove(path)
	} else if !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Path returns the bound socket's filesystem path.
func (e *EndpointSocket) Path() string { return e.path }

// Accept blocks for the next client connection. A signal interruption
// can surface as an error wrapping syscall.EINTR; callers retry on that
// and treat everything else as fatal.
func (e *EndpointSocket) Accept() (*net.UnixConn, error) {
	return e.listener.AcceptUnix()
}

// CloseAndUnlink closes the listener, unblocking any pending Accept, and
// removes the socket path if this EndpointSocket created it (never for a
// systemd-activated listener).
func (e *EndpointSocket) CloseAndUnlink() error {
	err := e.listener.Close()
	if e.ownsPath {
		if rmErr := os.Remove(e.path); rmErr != nil && !os.IsNotExist(rmErr) {
			if err == nil {
				err = rmErr
			}
		}
	}
	return err
}
