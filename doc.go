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

// Package manhole embeds an interactive debugging endpoint inside a
// running process. Once installed, a privileged operator on the same
// host can connect to a Unix-domain socket at /tmp/manhole-<pid> (or an
// operator-chosen path) and obtain an interactive session running in the
// address space of the host process, preceded by a dump of every
// goroutine's stack.
//
// The endpoint never listens on the network; a connecting peer is
// authenticated purely from kernel-reported peer credentials. manhole is
// Unix-only: there is no Windows build of this package.
package manhole
