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
	"os/signal"
	"sync"
	"syscall"
)

// SignalRouter implements the two signal-driven install modes:
// ArmActivate starts the accept thread the first time its signal fires
// and then steps out of the way; ArmOneshot serves exactly one
// connection, synchronously, inside the signal handler on every
// delivery. Only one of the two is ever armed for a given installation
// (Config.validate rejects configuring both to the same signal, and
// Installer only arms the one the configuration selected).
type SignalRouter struct {
	mu      sync.Mutex
	ch      chan os.Signal
	stop    chan struct{}
	wg      sync.WaitGroup
	running bool
}

// ArmActivate starts the accept thread (via start) the first time sig is
// delivered, then keeps the router alive so a later Stop can clean up,
// but issues no further activation on subsequent deliveries.
func (r *SignalRouter) ArmActivate(sig syscall.Signal, start func() error, logger *Logger) {
	r.arm(sig, func() {
		if err := start(); err != nil {
			logger.Log("Failed to start manhole thread from signal: %s", err)
		}
	}, true)
}

// ArmOneshot invokes serveOnce synchronously on every delivery of sig,
// serving exactly one connection per signal.
func (r *SignalRouter) ArmOneshot(sig syscall.Signal, serveOnce func(), logger *Logger) {
	r.arm(sig, serveOnce, false)
}

func (r *SignalRouter) arm(sig syscall.Signal, fire func(), once bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.ch = make(chan os.Signal, 1)
	r.stop = make(chan struct{})
	signal.Notify(r.ch, sig)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fired := false
		for {
			select {
			case <-r.stop:
				return
			case <-r.ch:
				if once && fired {
					continue
				}
				fired = true
				fire()
			}
		}
	}()
}

// Stop restores the default signal disposition and waits for the router
// goroutine to exit. Safe to call on an unarmed router.
func (r *SignalRouter) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	signal.Stop(r.ch)
	close(r.stop)
	r.running = false
	r.mu.Unlock()
	r.wg.Wait()
}
