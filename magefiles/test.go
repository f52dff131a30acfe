// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets (all, race, golden).
type Test mg.Namespace

// All runs all tests.
func (Test) All() error {
	return sh.RunV(binGo, "test", "./...")
}

// Race runs all tests with the race detector. The scheduler, watcher and
// view run goroutines that the plain run does not check.
func (Test) Race() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Golden regenerates the CLI golden files under internal/cli/testdata.
func (Test) Golden() error {
	return sh.RunV(binGo, "test", "./internal/cli/...", "-update")
}
