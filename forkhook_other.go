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

import (
	"errors"
	"os"
)

// rawFork is only wired up for Linux; ForkWithHook/ForkptyWithHook
// return an error rather than risk an unsupported raw fork(2) on other
// kernels.
func rawFork() (uintptr, error) {
	return 0, errors.New("manhole: ForkWithHook is only supported on linux")
}

func attachControllingTTY(slave *os.File) {}
