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

	"github.com/suse/mkosi-install/pkg/sys"
)

const (
	mkosiCmd = "mkosi"

	// Environment override telling mkosi which dnf flavour to run
	dnfEnvVar = "MKOSI_DNF"
)

// dnf5 takes priority when both flavours are installed
var dnfCandidates = []string{"dnf5", "dnf"}

type Builder struct {
	s          *sys.System
	findBinary func(string) bool
}

type BuilderOpts func(b *Builder)

// WithFindBinary replaces the PATH lookup used to detect the host's dnf
// flavour, used in tests
func WithFindBinary(find func(string) bool) BuilderOpts {
	return func(b *Builder) {
		b.findBinary = find
	}
}

func NewBuilder(s *sys.System, opts ...BuilderOpts) *Builder {
	b := &Builder{
		s:          s,
		findBinary: sys.CommandExists,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Build runs mkosi synchronously with the request's argument vector. A non
// zero exit is fatal, there is nothing to recover, the caller re-runs the
// whole hook from scratch instead.
func (b *Builder) Build(req *BuildRequest) error {
	var envs []string
	for _, dnf := range dnfCandidates {
		if b.findBinary(dnf) {
			envs = append(envs, fmt.Sprintf("%s=%s", dnfEnvVar, dnf))
			break
		}
	}

	b.s.Logger().Info("Building '%s' using mkosi", req.Output)

	out, err := b.s.Runner().RunEnv(mkosiCmd, envs, req.Args(b.s)...)
	if err != nil {
		return fmt.Errorf("mkosi failed building '%s': %w\n%s", req.Output, err, out)
	}
	b.s.Logger().Debug("mkosi output:\n%s", string(out))
	return nil
}
