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

package mock_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	sysmock "github.com/suse/mkosi-install/pkg/sys/mock"
	"github.com/suse/mkosi-install/pkg/sys/vfs"
)

func TestMockSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Mock test suite")
}

var _ = Describe("TestFS", Label("mock"), func() {
	It("creates an empty writable filesystem without content", func() {
		tfs, cleanup, err := sysmock.TestFS(nil)
		Expect(err).NotTo(HaveOccurred())
		defer cleanup()

		Expect(vfs.MkdirAll(tfs, "/some/dir", vfs.DirPerm)).To(Succeed())
		Expect(tfs.WriteFile("/some/dir/file", []byte("data"), vfs.FilePerm)).To(Succeed())

		data, err := tfs.ReadFile("/some/dir/file")
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal([]byte("data")))
	})

	It("prepopulates the filesystem with the given files", func() {
		tfs, cleanup, err := sysmock.TestFS(map[string]any{
			"/etc/os-release": "ID=suse\n",
		})
		Expect(err).NotTo(HaveOccurred())
		defer cleanup()

		data, err := tfs.ReadFile("/etc/os-release")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("ID=suse\n"))
	})
})
