//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for the timecard project using Mage.
//
// Usage:
//
//	mage build     Compile the timecard binary to bin/
//	mage test      Run all tests
//	mage testUnit  Run tests in short mode
//	mage testRace  Run all tests with the race detector
//	mage lint      Run golangci-lint
//	mage clean     Remove build artifacts
//	mage install   Install timecard to GOPATH/bin
package main
