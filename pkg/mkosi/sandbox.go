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

package mkosi

import (
	"fmt"
	"path/filepath"

	"github.com/suse/mkosi-install/pkg/sys"
	"github.com/suse/mkosi-install/pkg/sys/vfs"
)

const hostConfigRoot = "/etc"

// Empty files shadowing the repository definitions mkosi ships for each
// supported package manager family, so a build can never reach out to
// mkosi's default repositories.
var placeholderConfigs = []string{
	"yum.repos.d/mkosi.repo",
	"apt/sources.list.d/mkosi.sources",
	"zypp/repos.d/mkosi.repo",
	"pacman.d/mkosi.conf",
}

// Host package manager configuration mirrored into the sandbox tree when
// present, so mkosi resolves packages exactly as the host would.
var hostConfigs = []string{
	"dnf",
	"yum.repos.d",
	"apt",
	"zypp",
	"pacman.conf",
	"pacman.d",
}

// NewSandboxTree creates a scratch tree standing in for /etc during the
// mkosi invocation. The caller owns the returned directory and must remove
// it once the build is done.
func NewSandboxTree(s *sys.System) (string, error) {
	dir, err := vfs.TempDir(s.FS(), "", "mkosi-install-sandbox.")
	if err != nil {
		return "", fmt.Errorf("creating sandbox tree: %w", err)
	}
	etcDir := filepath.Join(dir, "etc")

	for _, conf := range placeholderConfigs {
		placeholder := filepath.Join(etcDir, conf)
		if err = vfs.MkdirAll(s.FS(), filepath.Dir(placeholder), vfs.DirPerm); err != nil {
			return "", fmt.Errorf("creating sandbox directory for '%s': %w", conf, err)
		}
		if err = s.FS().WriteFile(placeholder, []byte{}, vfs.FilePerm); err != nil {
			return "", fmt.Errorf("creating placeholder '%s': %w", conf, err)
		}
	}

	for _, conf := range hostConfigs {
		source := filepath.Join(hostConfigRoot, conf)
		if ok, _ := vfs.Exists(s.FS(), source, true); !ok {
			continue
		}

		// Dereference now so the copy contains the real configuration
		source, err = vfs.ResolveLink(s.FS(), source, "/", vfs.MaxLinkDepth)
		if err != nil {
			return "", fmt.Errorf("resolving host configuration '%s': %w", conf, err)
		}

		target := filepath.Join(etcDir, conf)
		if dirSource, _ := vfs.IsDir(s.FS(), source, true); dirSource {
			err = vfs.CopyTree(s.FS(), source, target)
		} else {
			err = vfs.CopyFile(s.FS(), source, target)
		}
		if err != nil {
			return "", fmt.Errorf("mirroring host configuration '%s': %w", source, err)
		}
	}

	return dir, nil
}
