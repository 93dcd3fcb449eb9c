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

package version

import "fmt"

var (
	version = "v0.0.1"
	// gitCommit is the git sha1
	gitCommit = ""
)

// Version reports the release version, suffixed with the abbreviated git
// commit when it was injected at build time.
func Version() string {
	if gitCommit == "" {
		return version
	}

	commit := gitCommit
	if len(commit) > 7 {
		commit = gitCommit[:7]
	}
	return fmt.Sprintf("%s+g%s", version, commit)
}
