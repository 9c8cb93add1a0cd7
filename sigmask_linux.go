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
	"syscall"

	"golang.org/x/sys/unix"
)

// applySigmask blocks the given signals on the calling OS thread via
// pthread_sigmask, so they're delivered to the host's other threads
// instead of interrupting the manhole's accept loop. A no-op when sigs
// is empty.
func applySigmask(sigs []syscall.Signal) {
	if len(sigs) == 0 {
		return
	}
	var set unix.Sigset_t
	for _, s := range sigs {
		bit := uint(s) - 1
		set.Val[bit/64] |= 1 << (bit % 64)
	}
	unix.PthreadSigmask(unix.SIG_BLOCK, &set, nil)
}
