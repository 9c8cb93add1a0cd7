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
	"net"
	"os"
)

// PeerCredentials is the kernel-attested (pid, uid, gid) of the process
// on the other end of a connected Unix-domain socket.
type PeerCredentials struct {
	PID int32
	UID uint32
	GID uint32
}

func (c PeerCredentials) String() string {
	return fmt.Sprintf("PID:%d UID:%d GID:%d", c.PID, c.UID, c.GID)
}

// PeerAuth reads and checks peer credentials for accepted connections.
type PeerAuth struct{}

// Check reads the peer credentials off conn and applies acceptPolicy. It
// returns the decoded credentials regardless, so the caller can log them
// even on rejection.
func (PeerAuth) Check(conn *net.UnixConn) (PeerCredentials, error) {
	creds, err := getPeerCredentials(conn)
	if err != nil {
		return PeerCredentials{}, err
	}

	if err := acceptPolicy(creds, uint32(os.Geteuid())); err != nil {
		return creds, err
	}
	return creds, nil
}

// acceptPolicy is the pure accept/reject decision behind PeerAuth.Check:
// the connecting uid must be root or euid, the host process's own
// effective uid. Split out from Check so the rejection path can be
// exercised with fabricated credentials, without needing a real
// connection from another uid.
func acceptPolicy(creds PeerCredentials, euid uint32) error {
	if creds.UID != 0 && creds.UID != euid {
		return fmt.Errorf("%w: can't accept client with %s", ErrSuspiciousClient, creds)
	}
	return nil
}
