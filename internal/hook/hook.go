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

package hook

import (
	"fmt"
	"path/filepath"

	"github.com/suse/mkosi-install/internal/kernelinstall"
	"github.com/suse/mkosi-install/pkg/microcode"
	"github.com/suse/mkosi-install/pkg/mkosi"
	"github.com/suse/mkosi-install/pkg/staging"
	"github.com/suse/mkosi-install/pkg/sys"
	"github.com/suse/mkosi-install/pkg/utils/cleanstack"
)

// Generator names designating this plugin in the kernel-install
// configuration
const (
	GeneratorMkosi       = "mkosi"
	GeneratorMkosiInitrd = "mkosi-initrd"
)

// MicrocodeName is the early load microcode initrd file name kernel-install
// picks up from the staging area
const MicrocodeName = "microcode"

// Decision is the outcome of the eligibility evaluation. When Act is false
// Reason states why the plugin stays out of the way.
type Decision struct {
	Act    bool
	Format string
	Reason string
}

// Decide evaluates whether this invocation should build anything and in
// which format. It is a pure function of the invocation context. The plugin
// only acts when it is uniquely responsible, it defers to explicitly
// supplied artifacts and to competing generators.
func Decide(ctx *kernelinstall.Context) Decision {
	if ctx.Command != kernelinstall.CommandAdd {
		return Decision{Reason: fmt.Sprintf("command is '%s', only '%s' builds artifacts", ctx.Command, kernelinstall.CommandAdd)}
	}

	ukiWanted := ctx.UkiGenerator == GeneratorMkosi
	initrdWanted := ctx.InitrdGenerator == GeneratorMkosi || ctx.InitrdGenerator == GeneratorMkosiInitrd
	if !ukiWanted && !initrdWanted {
		return Decision{Reason: "no generator designates mkosi"}
	}

	if ctx.ImageType == kernelinstall.ImageTypeUKI {
		return Decision{Reason: "the kernel image is already a unified image"}
	}

	if ctx.Layout != kernelinstall.LayoutUKI && len(ctx.Initrds) > 0 {
		return Decision{Reason: "an initrd was already supplied"}
	}

	format := mkosi.FormatCPIO
	if ctx.Layout == kernelinstall.LayoutUKI {
		format = mkosi.FormatUKI
	}
	return Decision{Act: true, Format: format}
}

// Run executes the full hook for one kernel-install invocation: evaluate
// eligibility, build the requested artifact with mkosi inside an isolated
// package manager configuration and leave the staging area exactly as
// kernel-install expects it. Ineligible invocations return nil without
// touching the host.
func Run(s *sys.System, ctx *kernelinstall.Context, opts ...mkosi.BuilderOpts) (err error) {
	decision := Decide(ctx)
	if !decision.Act {
		s.Logger().Debug("Doing nothing, %s", decision.Reason)
		return nil
	}

	cleanup := cleanstack.NewCleanStack()
	defer func() { err = cleanup.Cleanup(err) }()

	sandboxTree, err := mkosi.NewSandboxTree(s)
	if err != nil {
		return fmt.Errorf("preparing sandbox tree: %w", err)
	}
	cleanup.Push(func() error { return s.FS().RemoveAll(sandboxTree) })

	req := mkosi.NewBuildRequest(decision.Format, ctx.KernelVersion, ctx.StagingArea, ctx.Verbose)
	req.SandboxTree = sandboxTree

	if err = mkosi.NewBuilder(s, opts...).Build(req); err != nil {
		return err
	}

	if err = staging.Reconcile(s, ctx.StagingArea, req); err != nil {
		return err
	}

	if decision.Format == mkosi.FormatCPIO {
		_, err = microcode.Build(s, filepath.Join(ctx.StagingArea, MicrocodeName))
		if err != nil {
			return fmt.Errorf("building microcode initrd: %w", err)
		}
	}

	return nil
}
