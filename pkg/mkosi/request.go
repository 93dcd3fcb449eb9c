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

// Output formats requested from mkosi
const (
	FormatCPIO = "cpio"
	FormatUKI  = "uki"

	OutputInitrd = "initrd"
	OutputUKI    = "uki"
)

const (
	// Scratch locations for mkosi's own build state, not user configurable
	workspaceDir    = "/var/tmp"
	packageCacheDir = "/var/cache"

	// Default mkosi configuration providing the initrd building logic
	defaultInclude = "mkosi-initrd"
)

// Extension drop-in directories appended in order, the administrator owned
// one goes last so it can override the distribution defaults.
var extensionDirs = []string{
	"/usr/lib/mkosi-initrd",
	"/etc/mkosi-initrd",
}

// BuildRequest describes a single mkosi invocation. It is constructed per
// build and translated to the mkosi command line by Args.
type BuildRequest struct {
	Format        string
	Output        string
	KernelVersion string
	OutputDir     string
	SandboxTree   string
	Verbose       bool
}

// NewBuildRequest assembles a build request for the given output format.
// The output base name is tied to the format, the installer framework
// expects 'uki' for unified images and 'initrd' for plain archives.
func NewBuildRequest(format, kernelVersion, outputDir string, verbose bool) *BuildRequest {
	output := OutputInitrd
	if format == FormatUKI {
		output = OutputUKI
	}

	return &BuildRequest{
		Format:        format,
		Output:        output,
		KernelVersion: kernelVersion,
		OutputDir:     outputDir,
		Verbose:       verbose,
	}
}

// Args translates the request to the mkosi argument vector. The result is
// deterministic for identical requests and host state. The image content is
// kept minimal, kernel modules are excluded wholesale and only the ones
// loaded on the running host are pulled back in.
func (r *BuildRequest) Args(s *sys.System) []string {
	modulesDir := filepath.Join("/usr/lib/modules", r.KernelVersion)

	args := []string{
		"--directory", "/",
		"--format", r.Format,
		"--output", r.Output,
		"--workspace-dir", workspaceDir,
		"--package-cache-dir", packageCacheDir,
		"--cache-only", "metadata",
		"--output-dir", r.OutputDir,
		"--extra-tree", fmt.Sprintf("%s:%s", modulesDir, modulesDir),
		"--extra-tree", "/usr/lib/firmware:/usr/lib/firmware",
		"--kernel-modules-exclude", ".*",
		"--kernel-modules-include", "host",
		"--include", defaultInclude,
	}

	if r.Verbose {
		args = append(args, "--debug")
	}

	for _, dir := range extensionDirs {
		if ok, _ := vfs.Exists(s.FS(), dir, true); ok {
			args = append(args, "--include", dir)
		}
	}

	if r.SandboxTree != "" {
		args = append(args, "--sandbox-tree", r.SandboxTree)
	}

	return args
}
