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

import "errors"

// Sentinel errors returned across the package. Compare with errors.Is.
var (
	// ErrAlreadyInstalled is returned by Install when a prior install
	// exists and strict mode was requested.
	ErrAlreadyInstalled = errors.New("manhole: already installed")

	// ErrNotInstalled is returned by Logger.Log when used before any
	// destination has been configured.
	ErrNotInstalled = errors.New("manhole: not installed")

	// ErrConfigurationConflict is returned by Install when
	// ActivateSignal and OneshotSignal are the same non-zero signal.
	ErrConfigurationConflict = errors.New("manhole: activate_signal and oneshot_signal must differ")

	// ErrSuspiciousClient is returned by PeerAuth.Check when the
	// connecting peer's uid fails the accept policy.
	ErrSuspiciousClient = errors.New("manhole: suspicious client")
)
