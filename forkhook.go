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

	"github.com/creack/pty"
)

// ForkHook is the callback invoked in the child immediately after a
// successful ForkWithHook/ForkptyWithHook, with the parent's Installer
// so the child can Reinstall a fresh manhole bound to its own
// pid-qualified socket path. There is no way to intercept every call
// to the C library's fork(2) from Go, so a host that wants post-fork
// reinstall behavior must route its forks through these wrappers
// explicitly instead of calling syscall.ForkExec or the raw fork(2)
// syscall directly.
type ForkHook func(installer *Installer)

// ForkWithHook forks the calling process and, in the child, runs hook
// (if non-nil) before returning. It returns the fork's return value
// unmodified in both parent (child pid) and child (0) the same as a raw
// fork(2) would, so existing call sites only need to swap the function
// they call.
func ForkWithHook(installer *Installer, hook ForkHook) (uintptr, error) {
	pid, err := rawFork()
	if err != nil {
		return pid, err
	}
	if pid == 0 && hook != nil {
		hook(installer)
	}
	return pid, nil
}

// ForkptyWithHook opens a new pty pair, forks, and in the child makes
// the pty slave its controlling terminal and stdio before running
// hook. The returned *os.File is the pty master, valid only in the
// parent.
func ForkptyWithHook(installer *Installer, hook ForkHook) (uintptr, *os.File, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return 0, nil, err
	}
	defer slave.Close()

	pid, err := rawFork()
	if err != nil {
		master.Close()
		return pid, nil, err
	}

	if pid == 0 {
		master.Close()
		attachControllingTTY(slave)
		if hook != nil {
			hook(installer)
		}
		return 0, nil, nil
	}

	return pid, master, nil
}
