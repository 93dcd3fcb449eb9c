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

package action

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/suse/mkosi-install/internal/cli/cmd"
	"github.com/suse/mkosi-install/internal/hook"
	"github.com/suse/mkosi-install/internal/kernelinstall"
	"github.com/suse/mkosi-install/pkg/sys"
)

// Hook resolves the kernel-install invocation context and runs the build
// hook. It is the application's single action.
func Hook(ctx *cli.Context) error {
	var s *sys.System
	flags := &cmd.HookArgs
	if ctx.App.Metadata == nil || ctx.App.Metadata["system"] == nil {
		return fmt.Errorf("error setting up initial configuration")
	}
	s = ctx.App.Metadata["system"].(*sys.System)

	kCtx, err := kernelinstall.Resolve(s, &kernelinstall.Request{
		Args:            ctx.Args().Slice(),
		StagingArea:     flags.StagingArea,
		Layout:          flags.Layout,
		ImageType:       flags.ImageType,
		InitrdGenerator: flags.InitrdGenerator,
		UkiGenerator:    flags.UkiGenerator,
		Verbose:         flags.Verbose,
	})
	if err != nil {
		s.Logger().Error("Failed to resolve the kernel-install context")
		return err
	}

	s.Logger().Debug("Running hook for kernel '%s' with command '%s'", kCtx.KernelVersion, kCtx.Command)

	if err = hook.Run(s, kCtx); err != nil {
		s.Logger().Error("Hook failed")
		return err
	}

	return nil
}
