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

package microcode

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/u-root/u-root/pkg/cpio"

	"github.com/suse/mkosi-install/pkg/sys"
	"github.com/suse/mkosi-install/pkg/sys/umask"
	"github.com/suse/mkosi-install/pkg/sys/vfs"
	"github.com/suse/mkosi-install/pkg/utils/cleanstack"
)

// Build detects the host CPU microcode and writes it as an early load
// initrd archive to the given output path. Returns an empty path without
// error when the host provides nothing to package.
func Build(s *sys.System, output string) (path string, err error) {
	cleanup := cleanstack.NewCleanStack()
	defer func() { err = cleanup.Cleanup(err) }()

	vendor, blob, err := Detect(s)
	if err != nil || vendor == "" {
		return "", err
	}

	root, err := vfs.TempDir(s.FS(), "", "mkosi-install-microcode.")
	if err != nil {
		return "", fmt.Errorf("creating microcode root: %w", err)
	}
	cleanup.Push(func() error { return s.FS().RemoveAll(root) })

	if err = writeBundle(s, root, vendor, blob); err != nil {
		return "", err
	}
	if err = Pack(s, root, output); err != nil {
		return "", err
	}

	return output, nil
}

// writeBundle lays out the single file tree the kernel expects for early
// microcode loading, kernel/<arch>/microcode/<vendor>.bin
func writeBundle(s *sys.System, root, vendor string, blob []byte) error {
	dir := filepath.Join(root, "kernel", s.Platform().Firmware(), "microcode")

	// The kernel refuses microcode from directories it cannot traverse,
	// widen the process creation mask for this one tree
	restore := umask.Override(0022)
	err := vfs.MkdirAll(s.FS(), dir, 0755|os.ModeDir)
	restore()
	if err != nil {
		return fmt.Errorf("creating microcode tree: %w", err)
	}

	name := filepath.Join(dir, vendor+".bin")
	if err = s.FS().WriteFile(name, blob, vfs.FilePerm); err != nil {
		return fmt.Errorf("writing microcode bundle: %w", err)
	}
	return nil
}

// Pack archives the given root tree into an uncompressed newc CPIO at the
// output path. Record names are relative to root.
func Pack(s *sys.System, root, output string) (err error) {
	archive, err := s.FS().Create(output)
	if err != nil {
		return fmt.Errorf("creating archive '%s': %w", output, err)
	}
	defer func() {
		if cErr := archive.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	var records []cpio.Record
	root = filepath.Clean(root)
	err = vfs.WalkDirFs(s.FS(), root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if d.IsDir() {
			records = append(records, cpio.Directory(rel, 0755))
			return nil
		}

		data, err := s.FS().ReadFile(path)
		if err != nil {
			return err
		}
		records = append(records, cpio.StaticFile(rel, string(data), 0644))
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking microcode tree: %w", err)
	}

	writer := cpio.Newc.Writer(archive)
	if err = cpio.WriteRecords(writer, records); err != nil {
		return fmt.Errorf("writing archive records: %w", err)
	}
	if err = cpio.WriteTrailer(writer); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	return nil
}
