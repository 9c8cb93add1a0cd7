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

//go:build !linux

package manhole

import "syscall"

// applySigmask is a no-op outside Linux: the BSD Sigset_t layout isn't
// uniform across the Go build targets this package supports, so
// Configuration.Sigmask is only honored on Linux. Hosts relying on it
// elsewhere still get correct behavior, just without the blocked mask.
func applySigmask(sigs []syscall.Signal) {}
