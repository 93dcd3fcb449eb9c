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

package kernelinstall

import (
	"fmt"

	"github.com/suse/mkosi-install/pkg/sys"
	"github.com/suse/mkosi-install/pkg/sys/vfs"
)

// Environment variables exported by kernel-install to its plugins
const (
	EnvStagingArea     = "KERNEL_INSTALL_STAGING_AREA"
	EnvLayout          = "KERNEL_INSTALL_LAYOUT"
	EnvImageType       = "KERNEL_INSTALL_IMAGE_TYPE"
	EnvInitrdGenerator = "KERNEL_INSTALL_INITRD_GENERATOR"
	EnvUkiGenerator    = "KERNEL_INSTALL_UKI_GENERATOR"
	EnvVerbose         = "KERNEL_INSTALL_VERBOSE"
)

// kernel-install configuration files providing defaults for the generator
// and layout settings when kernel-install did not export them. The first
// existing file wins, /etc overrides the vendor shipped defaults.
var installConfFiles = []string{
	"/etc/kernel/install.conf",
	"/usr/lib/kernel/install.conf",
}

const (
	CommandAdd    = "add"
	CommandRemove = "remove"

	LayoutUKI    = "uki"
	ImageTypeUKI = "uki"
)

// Context is the immutable record of one kernel-install plugin invocation,
// assembled once at startup. No other component reads CLI arguments or the
// process environment.
type Context struct {
	Command       string
	KernelVersion string
	EntryDir      string
	KernelImage   string
	Initrds       []string

	StagingArea     string
	Layout          string
	ImageType       string
	InitrdGenerator string
	UkiGenerator    string
	Verbose         bool
}

// Request carries the raw CLI and environment values consumed by Resolve.
// Empty strings denote unset variables.
type Request struct {
	Args []string

	StagingArea     string
	Layout          string
	ImageType       string
	InitrdGenerator string
	UkiGenerator    string
	Verbose         int
}

// Resolve validates the given invocation values and assembles the Context.
// Generator and layout settings missing from the environment are defaulted
// from the kernel-install configuration file, if any.
func Resolve(s *sys.System, req *Request) (*Context, error) {
	if len(req.Args) < 2 {
		return nil, fmt.Errorf("at least two positional arguments are required: COMMAND KERNEL_VERSION")
	}

	ctx := &Context{
		Command:         req.Args[0],
		KernelVersion:   req.Args[1],
		StagingArea:     req.StagingArea,
		Layout:          req.Layout,
		ImageType:       req.ImageType,
		InitrdGenerator: req.InitrdGenerator,
		UkiGenerator:    req.UkiGenerator,
		Verbose:         req.Verbose > 0,
	}
	if len(req.Args) > 2 {
		ctx.EntryDir = req.Args[2]
	}
	if len(req.Args) > 3 {
		ctx.KernelImage = req.Args[3]
	}
	if len(req.Args) > 4 {
		ctx.Initrds = req.Args[4:]
	}

	if err := applyInstallConf(s, ctx); err != nil {
		return nil, err
	}

	if ctx.StagingArea == "" {
		return nil, fmt.Errorf("%s environment variable is not set", EnvStagingArea)
	}
	if ok, _ := vfs.IsDir(s.FS(), ctx.StagingArea, true); !ok {
		return nil, fmt.Errorf("staging area '%s' is not a directory", ctx.StagingArea)
	}
	if ctx.Layout == "" {
		return nil, fmt.Errorf("%s environment variable is not set", EnvLayout)
	}
	if ctx.ImageType == "" {
		return nil, fmt.Errorf("%s environment variable is not set", EnvImageType)
	}

	return ctx, nil
}

// applyInstallConf fills generator and layout gaps from the first existing
// kernel-install configuration file. Absent files are fine, unparsable
// content is a configuration error.
func applyInstallConf(s *sys.System, ctx *Context) error {
	for _, conf := range installConfFiles {
		if ok, _ := vfs.Exists(s.FS(), conf, true); !ok {
			continue
		}

		values, err := vfs.LoadEnvFile(s.FS(), conf)
		if err != nil {
			return fmt.Errorf("parsing '%s': %w", conf, err)
		}
		s.Logger().Debug("Applying defaults from '%s'", conf)

		if ctx.Layout == "" {
			ctx.Layout = values["layout"]
		}
		if ctx.InitrdGenerator == "" {
			ctx.InitrdGenerator = values["initrd_generator"]
		}
		if ctx.UkiGenerator == "" {
			ctx.UkiGenerator = values["uki_generator"]
		}
		return nil
	}
	return nil
}
