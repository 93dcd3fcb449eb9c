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
	"path/filepath"
	"strings"

	"github.com/suse/mkosi-install/pkg/sys"
	"github.com/suse/mkosi-install/pkg/sys/vfs"
)

const (
	cpuinfoPath = "/proc/cpuinfo"
	firmwareDir = "/usr/lib/firmware"

	VendorAMD   = "AuthenticAMD"
	VendorIntel = "GenuineIntel"
)

// Detect identifies the host CPU vendor and collects its microcode from
// the firmware directory. An unknown vendor or absent microcode yields an
// empty result, that is a normal condition on many hosts and not an error.
func Detect(s *sys.System) (string, []byte, error) {
	vendor, err := cpuVendor(s.FS())
	if err != nil {
		return "", nil, err
	}
	if vendor == "" {
		s.Logger().Warn("Could not determine the CPU vendor, not building a microcode archive")
		return "", nil, nil
	}

	blob, err := vendorMicrocode(s, vendor)
	if err != nil {
		return "", nil, err
	}
	if len(blob) == 0 {
		s.Logger().Warn("No microcode found for CPU vendor '%s'", vendor)
		return "", nil, nil
	}

	return vendor, blob, nil
}

// cpuVendor reads the vendor identifier of the first CPU from /proc/cpuinfo
func cpuVendor(fs vfs.FS) (string, error) {
	data, err := fs.ReadFile(cpuinfoPath)
	if err != nil {
		return "", fmt.Errorf("reading '%s': %w", cpuinfoPath, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		key, value, found := strings.Cut(line, ":")
		if found && strings.TrimSpace(key) == "vendor_id" {
			return strings.TrimSpace(value), nil
		}
	}
	return "", nil
}

// vendorMicrocode concatenates the vendor's firmware files in lexical
// order. Returns nil for vendors without a known microcode location or
// when the location is absent or empty.
func vendorMicrocode(s *sys.System, vendor string) ([]byte, error) {
	var subdir, suffix string
	switch vendor {
	case VendorAMD:
		// amd-ucode also ships a README, only the *.bin files are microcode
		subdir = "amd-ucode"
		suffix = ".bin"
	case VendorIntel:
		subdir = "intel-ucode"
	default:
		return nil, nil
	}

	dir := filepath.Join(firmwareDir, subdir)
	if ok, _ := vfs.Exists(s.FS(), dir, true); !ok {
		return nil, nil
	}

	entries, err := s.FS().ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing '%s': %w", dir, err)
	}

	var blob []byte
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		data, err := s.FS().ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading firmware '%s': %w", entry.Name(), err)
		}
		blob = append(blob, data...)
	}
	return blob, nil
}
