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
	"fmt"
	"os"
	"sync"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Installer is the single embeddable entry point: Install arms exactly
// one of an always-on accept thread, a signal-activated thread, or a
// one-shot signal handler, depending on Configuration. Reinstall tears
// down and rebuilds the same installer, typically from a ForkHook in a
// forked child; Release tears everything down.
type Installer struct {
	mu     sync.Mutex
	config Config
	logger Logger
	thread *ManholeThread
	router SignalRouter
	up     bool

	// oneshotMu guards oneshotEp, the endpoint of an in-flight oneshot
	// serve; teardown closes it so a Release never hangs behind an
	// accept nobody will ever connect to.
	oneshotMu sync.Mutex
	oneshotEp *EndpointSocket
}

// Install arms a manhole process-wide according to config. If an
// installer is already active, config.Strict decides whether this
// returns ErrAlreadyInstalled or first releases the old one.
func Install(config Config) (*Installer, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	prev := currentInstaller()
	if prev != nil {
		if config.Strict {
			return nil, ErrAlreadyInstalled
		}
		prev.Release()
	}

	i := &Installer{config: config}
	setCurrentInstaller(i)

	if err := i.bringUp(); err != nil {
		setCurrentInstaller(nil)
		return nil, err
	}
	return i, nil
}

func (i *Installer) bringUp() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.logger.Configure(i.config.Verbose, i.config.LogSink)
	injectDefaultLocals(&i.config)

	if i.config.shouldPatchFork() {
		i.logger.Log("patch_fork requested: route os/exec forks through ForkWithHook/ForkptyWithHook to get post-fork reinstall")
	}

	socketPath := i.config.SocketPath
	if socketPath == "" {
		socketPath = DefaultSocketPath(os.Getpid())
	}

	switch {
	case i.config.ActivateSignal != 0:
		i.thread = NewManholeThread(i.config, &i.logger)
		i.router.ArmActivate(i.config.ActivateSignal, func() error {
			return i.thread.Start(socketPath)
		}, &i.logger)

	case i.config.OneshotSignal != 0:
		i.router.ArmOneshot(i.config.OneshotSignal, func() {
			i.serveOneshot(socketPath)
		}, &i.logger)

	default:
		i.thread = NewManholeThread(i.config, &i.logger)
		if err := i.thread.Start(socketPath); err != nil {
			return err
		}
	}

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		i.logger.Log("sd_notify failed: %s", err)
	} else if sent {
		i.logger.Log("sd_notify(READY=1) sent")
	}

	i.up = true
	return nil
}

// serveOneshot binds, accepts and serves exactly one connection
// synchronously, then unbinds, run inline on the delivering goroutine.
func (i *Installer) serveOneshot(socketPath string) {
	ep, err := BindEndpoint(socketPath, i.config.UseSystemdActivation)
	if err != nil {
		i.logger.Log("oneshot manhole bind failed: %s", err)
		return
	}
	i.oneshotMu.Lock()
	i.oneshotEp = ep
	i.oneshotMu.Unlock()
	defer func() {
		i.oneshotMu.Lock()
		i.oneshotEp = nil
		i.oneshotMu.Unlock()
		ep.CloseAndUnlink()
	}()

	i.logger.Log("Waiting for new connection")
	conn, err := ep.Accept()
	if err != nil {
		i.logger.Log("oneshot manhole accept failed: %s", err)
		return
	}
	defer conn.Close()
	defer i.logger.Log("Cleaned up.")

	var peer PeerAuth
	creds, err := peer.Check(conn)
	if err != nil {
		i.logger.Log("oneshot manhole rejected client: %s", err)
		return
	}

	session := &Session{Conn: conn, Peer: creds, Config: i.config, Logger: &i.logger}
	if err := session.serve(); err != nil {
		i.logger.Log("oneshot manhole session ended: %s", err)
	}
}

// Reinstall tears down this installer's thread/router and brings it
// back up with the same configuration. Intended to be called from a
// ForkHook in the child of ForkWithHook/ForkptyWithHook so the child
// gets its own pid-qualified socket rather than inheriting the parent's.
// ReinstallDelay is used in place of BindDelay for this pass.
func (i *Installer) Reinstall() error {
	i.mu.Lock()
	cfg := i.config
	cfg.BindDelay = cfg.ReinstallDelay
	i.mu.Unlock()

	i.teardown()

	i.mu.Lock()
	i.config = cfg
	i.mu.Unlock()

	return i.bringUp()
}

// Release tears down the installer and clears the process-wide install
// slot if it's the currently active one.
func (i *Installer) Release() {
	i.teardown()

	manholeState.mu.Lock()
	if manholeState.current == i {
		manholeState.current = nil
	}
	manholeState.mu.Unlock()
}

func (i *Installer) teardown() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.up {
		return
	}
	i.oneshotMu.Lock()
	if ep := i.oneshotEp; ep != nil {
		ep.CloseAndUnlink()
	}
	i.oneshotMu.Unlock()
	i.router.Stop()
	if i.thread != nil {
		i.thread.Stop()
		i.thread = nil
	}
	i.logger.Release()
	i.up = false
}

// String reports the installer's armed mode, used by the demo host's
// startup log line.
func (i *Installer) String() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	switch {
	case i.config.ActivateSignal != 0:
		return fmt.Sprintf("manhole (activate-on-signal %s)", i.config.ActivateSignal)
	case i.config.OneshotSignal != 0:
		return fmt.Sprintf("manhole (oneshot-on-signal %s)", i.config.OneshotSignal)
	default:
		return "manhole (thread)"
	}
}
