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

package mock

import (
	"github.com/twpayne/go-vfs/v4/vfst"

	"github.com/suse/mkosi-install/pkg/sys/vfs"
)

// TestFS creates a test filesystem prepopulated with the given files. The
// returned filesystem is rooted at a temporary directory of the host, the
// second return value is the cleanup method to release it.
func TestFS(files any) (vfs.FS, func(), error) {
	if files == nil {
		files = map[string]any{}
	}
	return vfst.NewTestFS(files)
}
