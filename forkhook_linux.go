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

//go:build linux

package manhole

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// rawFork issues the bare fork(2) syscall. Unlike syscall.ForkExec,
// this does not exec anything afterward: it returns twice, once in
// each of the parent and child, which is why ForkWithHook exists as
// an explicit call site rather than something transparent.
func rawFork() (uintptr, error) {
	pid, _, errno := syscall.RawSyscall(syscall.SYS_FORK, 0, 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return pid, nil
}

// attachControllingTTY makes slave the calling (child) process's
// controlling terminal and duplicates it onto stdin/stdout/stderr.
func attachControllingTTY(slave *os.File) {
	unix.Setsid()
	unix.IoctlSetInt(int(slave.Fd()), unix.TIOCSCTTY, 0)
	unix.Dup2(int(slave.Fd()), 0)
	unix.Dup2(int(slave.Fd()), 1)
	unix.Dup2(int(slave.Fd()), 2)
}
