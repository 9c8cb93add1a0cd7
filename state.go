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

import "sync"

// manholeState is the process-wide install slot: at most one Installer
// is active per process at a time. Guarded by its own mutex rather than
// piggybacking on redirectMu, since install/release is a much rarer,
// longer-lived operation than a single redirected session.
var manholeState = struct {
	mu      sync.Mutex
	current *Installer
}{}

// currentInstaller returns the active installer, or nil if none.
func currentInstaller() *Installer {
	manholeState.mu.Lock()
	defer manholeState.mu.Unlock()
	return manholeState.current
}

// setCurrentInstaller atomically swaps the process-wide install slot and
// returns the one it replaced.
func setCurrentInstaller(i *Installer) *Installer {
	manholeState.mu.Lock()
	defer manholeState.mu.Unlock()
	prev := manholeState.current
	manholeState.current = i
	return prev
}
