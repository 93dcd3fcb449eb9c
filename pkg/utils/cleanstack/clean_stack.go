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

package cleanstack

import (
	"errors"
)

type cleanBehavior int

const (
	always cleanBehavior = iota
	onError
	onSuccess
)

// CleanJob is a single callback registered in a CleanStack
type CleanJob struct {
	callback func() error
	behavior cleanBehavior
}

func (j CleanJob) Run() error {
	return j.callback()
}

// CleanStack is a LIFO stack of cleanup callbacks. Scoped resources register
// their release here so Cleanup can unwind them on every exit path.
type CleanStack struct {
	jobs []*CleanJob
}

func NewCleanStack() *CleanStack {
	return &CleanStack{}
}

// Push adds a callback executed on any Cleanup call
func (c *CleanStack) Push(callback func() error) {
	c.jobs = append(c.jobs, &CleanJob{callback: callback, behavior: always})
}

// PushErrorOnly adds a callback executed only when cleaning up after an error
func (c *CleanStack) PushErrorOnly(callback func() error) {
	c.jobs = append(c.jobs, &CleanJob{callback: callback, behavior: onError})
}

// PushSuccessOnly adds a callback executed only when cleaning up after a success
func (c *CleanStack) PushSuccessOnly(callback func() error) {
	c.jobs = append(c.jobs, &CleanJob{callback: callback, behavior: onSuccess})
}

// Pop removes and returns the most recently pushed job, nil on an empty stack
func (c *CleanStack) Pop() *CleanJob {
	if len(c.jobs) == 0 {
		return nil
	}
	job := c.jobs[len(c.jobs)-1]
	c.jobs = c.jobs[:len(c.jobs)-1]
	return job
}

// Cleanup runs the stacked jobs in reverse order. Any error reported by a
// job is joined to the given error, all jobs run regardless of failures.
func (c *CleanStack) Cleanup(err error) error {
	for job := c.Pop(); job != nil; job = c.Pop() {
		switch job.behavior {
		case onError:
			if err == nil {
				continue
			}
		case onSuccess:
			if err != nil {
				continue
			}
		}
		err = errors.Join(err, job.Run())
	}
	return err
}
