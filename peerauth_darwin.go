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

//go:build darwin

package manhole

import (
	"net"

	"golang.org/x/sys/unix"
)

// getPeerCredentials reads LOCAL_PEERCRED at SOL_LOCAL for the uid/gid,
// and LOCAL_PEEREPID for the pid, since the xucred structure carries no
// pid of its own.
func getPeerCredentials(conn *net.UnixConn) (PeerCredentials, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return PeerCredentials{}, err
	}

	var xucred *unix.Xucred
	var pid int
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		xucred, sockErr = unix.GetsockoptXucred(int(fd), unix.SOL_LOCAL, unix.LOCAL_PEERCRED)
		if sockErr != nil {
			return
		}
		pid, sockErr = unix.GetsockoptInt(int(fd), unix.SOL_LOCAL, unix.LOCAL_PEEREPID)
	})
	if err != nil {
		return PeerCredentials{}, err
	}
	if sockErr != nil {
		return PeerCredentials{}, sockErr
	}

	var gid uint32
	if xucred.Ngroups > 0 {
		gid = xucred.Groups[0]
	}
	return PeerCredentials{PID: int32(pid), UID: xucred.Uid, GID: gid}, nil
}
