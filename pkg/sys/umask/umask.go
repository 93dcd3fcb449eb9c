/*
Copyright © 2025 SUSE LLC
SPDX-License-Identifier: Apache-2.0

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package umask

import (
	"sync"

	"golang.org/x/sys/unix"
)

// The file creation mask is process wide state, overlapping overrides from
// concurrent goroutines would restore stale values. The lock is held for
// the whole override scope.
var mu sync.Mutex

// Override sets the process file creation mask to the given value and
// returns the function restoring the previous mask. The process mask stays
// locked for other Override callers until restore is called.
func Override(mask int) (restore func()) {
	mu.Lock()
	prev := unix.Umask(mask)
	return func() {
		unix.Umask(prev)
		mu.Unlock()
	}
}
