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

package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/suse/mkosi-install/internal/kernelinstall"
	"github.com/suse/mkosi-install/pkg/log"
	"github.com/suse/mkosi-install/pkg/sys"
)

const Usage = "Build initrds and unified kernel images with mkosi as a kernel-install plugin"

const UsageText = "mkosi-install COMMAND KERNEL_VERSION [ENTRY_DIR] [KERNEL_IMAGE] [INITRD...]"

type HookFlags struct {
	StagingArea     string
	Layout          string
	ImageType       string
	InitrdGenerator string
	UkiGenerator    string
	Verbose         int
	Debug           bool
}

var HookArgs HookFlags

// GlobalFlags maps the kernel-install plugin protocol onto the flag set.
// kernel-install talks to its plugins through environment variables only,
// so every flag is hidden and bound to the corresponding variable, flags
// exist to make invocations reproducible by hand.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "staging-area",
			Usage:       "Directory collecting the artifacts to install",
			EnvVars:     []string{kernelinstall.EnvStagingArea},
			Destination: &HookArgs.StagingArea,
			Hidden:      true,
		},
		&cli.StringFlag{
			Name:        "layout",
			Usage:       "Boot loader entry layout selected by kernel-install",
			EnvVars:     []string{kernelinstall.EnvLayout},
			Destination: &HookArgs.Layout,
			Hidden:      true,
		},
		&cli.StringFlag{
			Name:        "image-type",
			Usage:       "Type of the kernel image being installed",
			EnvVars:     []string{kernelinstall.EnvImageType},
			Destination: &HookArgs.ImageType,
			Hidden:      true,
		},
		&cli.StringFlag{
			Name:        "initrd-generator",
			Usage:       "Tool designated to generate the initrd",
			EnvVars:     []string{kernelinstall.EnvInitrdGenerator},
			Destination: &HookArgs.InitrdGenerator,
			Hidden:      true,
		},
		&cli.StringFlag{
			Name:        "uki-generator",
			Usage:       "Tool designated to generate the unified kernel image",
			EnvVars:     []string{kernelinstall.EnvUkiGenerator},
			Destination: &HookArgs.UkiGenerator,
			Hidden:      true,
		},
		&cli.IntFlag{
			Name:        "verbose",
			Usage:       "Verbosity level requested by kernel-install",
			EnvVars:     []string{kernelinstall.EnvVerbose},
			Destination: &HookArgs.Verbose,
			Hidden:      true,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "Set logging at debug level",
			Destination: &HookArgs.Debug,
		},
	}
}

func Setup(ctx *cli.Context) error {
	s, err := sys.NewSystem()
	if err != nil {
		return err
	}

	if HookArgs.Debug || HookArgs.Verbose > 0 {
		s.Logger().SetLevel(log.DebugLevel())
	}
	if ctx.App.Metadata == nil {
		ctx.App.Metadata = map[string]any{}
	}
	ctx.App.Metadata["system"] = s
	return nil
}
