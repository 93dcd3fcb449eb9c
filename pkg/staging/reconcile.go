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

package staging

import (
	"fmt"
	"path/filepath"

	"github.com/gobwas/glob"

	"github.com/suse/mkosi-install/pkg/mkosi"
	"github.com/suse/mkosi-install/pkg/sys"
)

// InitrdName is the initrd file name kernel-install picks up from the
// staging area
const InitrdName = "initrd"

// Name pattern of the archive mkosi drops in the output directory, e.g.
// initrd-6.9.1.cpio.zst
var initrdArtifact = glob.MustCompile("initrd*.cpio*")

// Reconcile renames and prunes mkosi's output files in the staging area to
// the layout kernel-install expects. It is a one shot step, running it
// twice on the same staging area fails since the expected files are gone.
func Reconcile(s *sys.System, stagingArea string, req *mkosi.BuildRequest) error {
	// The bare output name is a versionless link mkosi leaves behind,
	// kernel-install has no use for it
	if err := s.FS().Remove(filepath.Join(stagingArea, req.Output)); err != nil {
		return fmt.Errorf("removing mkosi output link: %w", err)
	}

	switch req.Format {
	case mkosi.FormatCPIO:
		artifact, err := findArchive(s, stagingArea)
		if err != nil {
			return err
		}
		err = s.FS().Rename(artifact, filepath.Join(stagingArea, InitrdName))
		if err != nil {
			return fmt.Errorf("renaming '%s': %w", artifact, err)
		}
	case mkosi.FormatUKI:
		// Plain kernel and initrd byproducts of the unified build, the
		// installer only consumes the combined image
		for _, suffix := range []string{".vmlinuz", ".initrd"} {
			err := s.FS().Remove(filepath.Join(stagingArea, req.Output+suffix))
			if err != nil {
				return fmt.Errorf("removing build byproduct: %w", err)
			}
		}
	default:
		return fmt.Errorf("unknown output format '%s'", req.Format)
	}

	return nil
}

// findArchive returns the single archive artifact present in the staging
// area. Zero or multiple matches break the reconciliation invariant and
// are reported as errors.
func findArchive(s *sys.System, stagingArea string) (string, error) {
	entries, err := s.FS().ReadDir(stagingArea)
	if err != nil {
		return "", fmt.Errorf("listing staging area: %w", err)
	}

	var matches []string
	for _, entry := range entries {
		if !entry.IsDir() && initrdArtifact.Match(entry.Name()) {
			matches = append(matches, entry.Name())
		}
	}
	if len(matches) != 1 {
		return "", fmt.Errorf("expected exactly one archive matching 'initrd*.cpio*' in '%s', found %d", stagingArea, len(matches))
	}

	return filepath.Join(stagingArea, matches[0]), nil
}
