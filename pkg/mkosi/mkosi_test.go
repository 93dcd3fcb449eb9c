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

package mkosi_test

import (
	"fmt"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/suse/mkosi-install/pkg/log"
	"github.com/suse/mkosi-install/pkg/mkosi"
	"github.com/suse/mkosi-install/pkg/sys"
	sysmock "github.com/suse/mkosi-install/pkg/sys/mock"
	"github.com/suse/mkosi-install/pkg/sys/vfs"
)

func TestMkosiSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Mkosi test suite")
}

var _ = Describe("Build request", Label("mkosi"), func() {
	var s *sys.System
	var tfs vfs.FS
	var cleanup func()

	BeforeEach(func() {
		var err error

		tfs, cleanup, err = sysmock.TestFS(nil)
		Expect(err).NotTo(HaveOccurred())

		s, err = sys.NewSystem(
			sys.WithFS(tfs),
			sys.WithLogger(log.New(log.WithDiscardAll())),
		)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		cleanup()
	})

	It("derives the output name from the format", func() {
		req := mkosi.NewBuildRequest(mkosi.FormatUKI, "6.9.1", "/staging", false)
		Expect(req.Output).To(Equal("uki"))

		req = mkosi.NewBuildRequest(mkosi.FormatCPIO, "6.9.1", "/staging", false)
		Expect(req.Output).To(Equal("initrd"))
	})

	It("composes a deterministic argument vector", func() {
		req := mkosi.NewBuildRequest(mkosi.FormatCPIO, "6.9.1", "/staging", false)
		args := req.Args(s)
		Expect(args).To(Equal([]string{
			"--directory", "/",
			"--format", "cpio",
			"--output", "initrd",
			"--workspace-dir", "/var/tmp",
			"--package-cache-dir", "/var/cache",
			"--cache-only", "metadata",
			"--output-dir", "/staging",
			"--extra-tree", "/usr/lib/modules/6.9.1:/usr/lib/modules/6.9.1",
			"--extra-tree", "/usr/lib/firmware:/usr/lib/firmware",
			"--kernel-modules-exclude", ".*",
			"--kernel-modules-include", "host",
			"--include", "mkosi-initrd",
		}))
	})

	It("appends exactly one debug flag when verbose", func() {
		req := mkosi.NewBuildRequest(mkosi.FormatCPIO, "6.9.1", "/staging", true)
		args := req.Args(s)

		count := 0
		for _, arg := range args {
			if arg == "--debug" {
				count++
			}
		}
		Expect(count).To(Equal(1))
	})

	It("includes existing extension directories in fixed order", func() {
		Expect(vfs.MkdirAll(tfs, "/usr/lib/mkosi-initrd", vfs.DirPerm)).To(Succeed())
		Expect(vfs.MkdirAll(tfs, "/etc/mkosi-initrd", vfs.DirPerm)).To(Succeed())

		req := mkosi.NewBuildRequest(mkosi.FormatCPIO, "6.9.1", "/staging", false)
		req.SandboxTree = "/tmp/sandbox"
		args := req.Args(s)

		Expect(args[len(args)-6:]).To(Equal([]string{
			"--include", "/usr/lib/mkosi-initrd",
			"--include", "/etc/mkosi-initrd",
			"--sandbox-tree", "/tmp/sandbox",
		}))
	})

	It("skips missing extension directories", func() {
		Expect(vfs.MkdirAll(tfs, "/etc/mkosi-initrd", vfs.DirPerm)).To(Succeed())

		req := mkosi.NewBuildRequest(mkosi.FormatCPIO, "6.9.1", "/staging", false)
		args := req.Args(s)

		Expect(args).To(ContainElement("/etc/mkosi-initrd"))
		Expect(args).NotTo(ContainElement("/usr/lib/mkosi-initrd"))
	})
})

var _ = Describe("Sandbox tree", Label("mkosi"), func() {
	var s *sys.System
	var tfs vfs.FS
	var cleanup func()

	BeforeEach(func() {
		var err error

		tfs, cleanup, err = sysmock.TestFS(nil)
		Expect(err).NotTo(HaveOccurred())

		s, err = sys.NewSystem(
			sys.WithFS(tfs),
			sys.WithLogger(log.New(log.WithDiscardAll())),
		)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		cleanup()
	})

	It("always creates the four repository placeholders", func() {
		dir, err := mkosi.NewSandboxTree(s)
		Expect(err).NotTo(HaveOccurred())

		for _, placeholder := range []string{
			"etc/yum.repos.d/mkosi.repo",
			"etc/apt/sources.list.d/mkosi.sources",
			"etc/zypp/repos.d/mkosi.repo",
			"etc/pacman.d/mkosi.conf",
		} {
			data, err := tfs.ReadFile(fmt.Sprintf("%s/%s", dir, placeholder))
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(BeEmpty())
		}
	})

	It("mirrors only the host configuration that exists", func() {
		repo := "[repo-oss]\nbaseurl=https://download.opensuse.org\n"
		Expect(vfs.MkdirAll(tfs, "/etc/zypp/repos.d", vfs.DirPerm)).To(Succeed())
		Expect(tfs.WriteFile("/etc/zypp/repos.d/repo-oss.repo", []byte(repo), vfs.FilePerm)).To(Succeed())
		Expect(tfs.WriteFile("/etc/pacman.conf", []byte("[options]\n"), vfs.FilePerm)).To(Succeed())

		dir, err := mkosi.NewSandboxTree(s)
		Expect(err).NotTo(HaveOccurred())

		data, err := tfs.ReadFile(dir + "/etc/zypp/repos.d/repo-oss.repo")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(repo))

		data, err = tfs.ReadFile(dir + "/etc/pacman.conf")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("[options]\n"))

		ok, _ := vfs.Exists(tfs, dir+"/etc/dnf")
		Expect(ok).To(BeFalse())
		// etc/apt holds the placeholder, but no host configuration
		ok, _ = vfs.Exists(tfs, dir+"/etc/apt/sources.list")
		Expect(ok).To(BeFalse())
		entries, err := tfs.ReadDir(dir + "/etc/apt/sources.list.d")
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Name()).To(Equal("mkosi.sources"))
	})

	It("dereferences symlinked host configuration", func() {
		Expect(vfs.MkdirAll(tfs, "/etc/real", vfs.DirPerm)).To(Succeed())
		Expect(tfs.WriteFile("/etc/real/pacman.conf", []byte("[options]\n"), vfs.FilePerm)).To(Succeed())
		Expect(tfs.Symlink("/etc/real/pacman.conf", "/etc/pacman.conf")).To(Succeed())

		dir, err := mkosi.NewSandboxTree(s)
		Expect(err).NotTo(HaveOccurred())

		info, err := tfs.Lstat(dir + "/etc/pacman.conf")
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().IsRegular()).To(BeTrue())

		data, err := tfs.ReadFile(dir + "/etc/pacman.conf")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("[options]\n"))
	})
})

var _ = Describe("Builder", Label("mkosi"), func() {
	var s *sys.System
	var runner *sysmock.Runner
	var cleanup func()

	BeforeEach(func() {
		var err error

		tfs, cfunc, err := sysmock.TestFS(nil)
		Expect(err).NotTo(HaveOccurred())
		cleanup = cfunc

		runner = sysmock.NewRunner()
		s, err = sys.NewSystem(
			sys.WithFS(tfs),
			sys.WithRunner(runner),
			sys.WithLogger(log.New(log.WithDiscardAll())),
		)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		cleanup()
	})

	It("runs mkosi with the composed arguments", func() {
		b := mkosi.NewBuilder(s, mkosi.WithFindBinary(func(string) bool { return false }))
		req := mkosi.NewBuildRequest(mkosi.FormatCPIO, "6.9.1", "/staging", false)

		Expect(b.Build(req)).To(Succeed())
		Expect(runner.CmdsMatch([][]string{{"mkosi", "--directory", "/", "--format", "cpio"}})).To(Succeed())
		Expect(runner.EnvsMatch([][]string{{"mkosi"}})).To(Succeed())
	})

	It("propagates the preferred dnf flavour to mkosi", func() {
		b := mkosi.NewBuilder(s, mkosi.WithFindBinary(func(name string) bool { return name == "dnf5" || name == "dnf" }))
		req := mkosi.NewBuildRequest(mkosi.FormatCPIO, "6.9.1", "/staging", false)

		Expect(b.Build(req)).To(Succeed())
		Expect(runner.EnvsMatch([][]string{{"mkosi", "MKOSI_DNF=dnf5"}})).To(Succeed())
	})

	It("falls back to dnf when dnf5 is not installed", func() {
		b := mkosi.NewBuilder(s, mkosi.WithFindBinary(func(name string) bool { return name == "dnf" }))
		req := mkosi.NewBuildRequest(mkosi.FormatCPIO, "6.9.1", "/staging", false)

		Expect(b.Build(req)).To(Succeed())
		Expect(runner.EnvsMatch([][]string{{"mkosi", "MKOSI_DNF=dnf"}})).To(Succeed())
	})

	It("fails when mkosi exits with an error", func() {
		runner.ReturnError = fmt.Errorf("exit status 1")
		b := mkosi.NewBuilder(s, mkosi.WithFindBinary(func(string) bool { return false }))
		req := mkosi.NewBuildRequest(mkosi.FormatUKI, "6.9.1", "/staging", false)

		err := b.Build(req)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("mkosi failed building 'uki'"))
	})

	It("composes each build independently", func() {
		b := mkosi.NewBuilder(s, mkosi.WithFindBinary(func(string) bool { return false }))

		Expect(b.Build(mkosi.NewBuildRequest(mkosi.FormatCPIO, "6.9.1", "/staging", false))).To(Succeed())
		runner.ClearCmds()

		Expect(b.Build(mkosi.NewBuildRequest(mkosi.FormatUKI, "6.9.1", "/staging", false))).To(Succeed())
		Expect(runner.CmdsMatch([][]string{{"mkosi", "--directory", "/", "--format", "uki", "--output", "uki"}})).To(Succeed())
	})
})
