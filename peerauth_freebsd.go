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

//go:build freebsd

package manhole

import (
	"net"

	"golang.org/x/sys/unix"
)

// solLocal is SOL_LOCAL from sys/un.h, the getsockopt level for
// LOCAL_PEERCRED.
const solLocal = 0

// getPeerCredentials reads LOCAL_PEERCRED at SOL_LOCAL. FreeBSD has no
// LOCAL_PEEREPID sockopt and its xucred exposes no pid either, so the
// pid is reported as -1; the accept policy only looks at the uid.
func getPeerCredentials(conn *net.UnixConn) (PeerCredentials, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return PeerCredentials{}, err
	}

	var xucred *unix.Xucred
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		xucred, sockErr = unix.GetsockoptXucred(int(fd), solLocal, unix.LOCAL_PEERCRED)
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
	return PeerCredentials{PID: -1, UID: xucred.Uid, GID: gid}, nil
}
