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
	"sync/atomic"
	"syscall"
	"time"
)

// processStart anchors the timestamp in the Logger's wire format to
// process start rather than wall clock, so a clock step never makes log
// lines appear to run backwards.
var processStart = time.Now()

// redirecting is set while any StreamRedirector scope holds the host's
// stdio descriptors, so Logger can skip writes that would otherwise land
// on the client socket instead of the intended destination.
var redirecting int32

// Logger is a fail-silent diagnostic sink. The zero value is disabled;
// once Configure enables it, Log returns ErrNotInstalled until a
// destination has been supplied too.
type Logger struct {
	mu      sync.Mutex
	enabled bool
	sink    LogSink
}

// Configure arms the logger. enabled=false turns Log into a silent no-op
// rather than failing.
func (l *Logger) Configure(enabled bool, sink LogSink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
	l.sink = sink
}

// Release drops the destination and leaves the logger enabled, so Log
// returns ErrNotInstalled until Configure supplies a sink again.
func (l *Logger) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = true
	l.sink = LogSink{}
}

// Log formats message and writes "Manhole[<pid>:<ts.4digits>]: <message>\n"
// to the configured sink. It never panics and never returns an error a
// caller is required to check, except ErrNotInstalled, which exists so
// callers (and tests) can distinguish "not installed yet" from "silently
// dropped"; every other failure mode is swallowed.
func (l *Logger) Log(format string, args ...interface{}) error {
	l.mu.Lock()
	enabled := l.enabled
	sink := l.sink
	l.mu.Unlock()

	if !enabled {
		return nil
	}
	if !sink.configured() {
		return ErrNotInstalled
	}
	if atomic.LoadInt32(&redirecting) != 0 {
		return nil
	}

	message := fmt.Sprintf(format, args...)
	ts := time.Since(processStart).Seconds()
	line := fmt.Sprintf("Manhole[%d:%.4f]: %s\n", os.Getpid(), ts, message)

	defer func() { recover() }() // formatting/IO failures must never propagate

	if sink.isFD {
		syscall.Write(sink.fd, []byte(line))
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if sink.writer != nil {
		sink.writer.Write([]byte(line))
	}
	return nil
}

// beginRedirecting and endRedirecting bracket a StreamRedirector scope
// so Logger can suppress writes that would otherwise race the swapped
// stdio descriptors.
func beginRedirecting() { atomic.AddInt32(&redirecting, 1) }
func endRedirecting()   { atomic.AddInt32(&redirecting, -1) }
