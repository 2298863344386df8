// Copyright 2026 The ds9samp Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/ds9tools/ds9samp/ds9"
	"github.com/ds9tools/ds9samp/lib/config"
	"github.com/ds9tools/ds9samp/samp"
)

// The viewer grew its built-in hub and ping support in 8.7; anything
// older registers on a hub but cannot be supervised.
const (
	minViewerMajor = 8
	minViewerMinor = 7
)

// checkStatus is the outcome of a single environment check.
type checkStatus string

const (
	statusPass checkStatus = "pass"
	statusWarn checkStatus = "warn"
	statusFail checkStatus = "fail"
	statusSkip checkStatus = "skip"
)

// checkResult holds the outcome of a single environment check.
type checkResult struct {
	Name    string
	Status  checkStatus
	Message string
}

func pass(name, message string) checkResult {
	return checkResult{Name: name, Status: statusPass, Message: message}
}

func warn(name, message string) checkResult {
	return checkResult{Name: name, Status: statusWarn, Message: message}
}

func fail(name, message string) checkResult {
	return checkResult{Name: name, Status: statusFail, Message: message}
}

func skip(name, message string) checkResult {
	return checkResult{Name: name, Status: statusSkip, Message: message}
}

// runDoctor checks the local environment without launching a viewer.
// Warnings do not fail the command; any failed check does.
func runDoctor(cfg *config.Config) error {
	executable := cfg.Viewer.Executable
	if executable == "" {
		if value := os.Getenv("DS9_EXE"); value != "" {
			executable = value
		} else {
			executable = ds9.DefaultExecutable
		}
	}
	hubDir := cfg.Viewer.HubDir
	if hubDir == "" {
		if value := os.Getenv("SAMP_HUB_PATH"); value != "" {
			hubDir = value
		} else if home, err := os.UserHomeDir(); err == nil {
			hubDir = home + "/.samp-ds9"
		}
	}

	binaryResult, resolved := checkExecutable(executable)
	results := []checkResult{
		binaryResult,
		checkViewerVersion(resolved),
		checkHubDir(hubDir),
		checkDisplay(),
		checkAmbientHub(),
	}
	return printChecklist(results)
}

// checkExecutable resolves the viewer binary and returns the resolved
// path for the version check, or "" when resolution failed.
func checkExecutable(executable string) (checkResult, string) {
	path, err := exec.LookPath(executable)
	if err != nil {
		return fail("viewer executable",
			fmt.Sprintf("%s not found (set DS9_EXE or --exe)", executable)), ""
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return fail("viewer executable", fmt.Sprintf("%s is not a regular file", path)), ""
	}
	return pass("viewer executable", path), path
}

// checkViewerVersion runs the binary with -version and compares
// against the minimum supervisable release.
func checkViewerVersion(path string) checkResult {
	if path == "" {
		return skip("viewer version", "executable not found")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	output, err := exec.CommandContext(ctx, path, "-version").CombinedOutput()
	if err != nil {
		return warn("viewer version", fmt.Sprintf("could not run %s -version: %v", path, err))
	}

	major, minor, ok := parseViewerVersion(string(output))
	if !ok {
		return warn("viewer version",
			fmt.Sprintf("unrecognized -version output %q", strings.TrimSpace(string(output))))
	}
	if major < minViewerMajor || (major == minViewerMajor && minor < minViewerMinor) {
		return fail("viewer version",
			fmt.Sprintf("found %d.%d, need %d.%d or later for hub and ping support",
				major, minor, minViewerMajor, minViewerMinor))
	}
	return pass("viewer version", fmt.Sprintf("%d.%d", major, minor))
}

// parseViewerVersion extracts major.minor from -version output such as
// "ds9 8.7b1". Suffixes after the minor digits (beta tags) are
// ignored.
func parseViewerVersion(output string) (major, minor int, ok bool) {
	for _, field := range strings.Fields(output) {
		if field == "" || field[0] < '0' || field[0] > '9' {
			continue
		}
		parts := strings.SplitN(field, ".", 2)
		if len(parts) != 2 {
			continue
		}
		major, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}
		minor := 0
		sawDigit := false
		for _, r := range parts[1] {
			if r < '0' || r > '9' {
				break
			}
			minor = minor*10 + int(r-'0')
			sawDigit = true
		}
		if !sawDigit {
			continue
		}
		return major, minor, true
	}
	return 0, 0, false
}

// checkHubDir verifies the endpoint directory can be created and
// written.
func checkHubDir(dir string) checkResult {
	if dir == "" {
		return fail("hub directory", "no directory configured and no home directory found")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fail("hub directory", fmt.Sprintf("cannot create %s: %v", dir, err))
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return fail("hub directory", fmt.Sprintf("%s is not writable: %v", dir, err))
	}
	probe.Close()
	os.Remove(probe.Name())
	return pass("hub directory", dir)
}

// checkDisplay looks for a graphical session the viewer can attach to.
func checkDisplay() checkResult {
	if display := os.Getenv("WAYLAND_DISPLAY"); display != "" {
		return pass("display", "wayland ("+display+")")
	}
	if display := os.Getenv("DISPLAY"); display != "" {
		return pass("display", "x11 ("+display+")")
	}
	return fail("display", "neither WAYLAND_DISPLAY nor DISPLAY is set")
}

// ambientHubTimeout bounds the doctor's probe of an inherited hub.
const ambientHubTimeout = 2 * time.Second

// checkAmbientHub flags a SAMP_HUB variable inherited from the
// environment. Launched viewers get their own value, but other SAMP
// tools in this shell connect to whatever it points at, so probe
// whether a hub actually answers there.
func checkAmbientHub() checkResult {
	locator := os.Getenv("SAMP_HUB")
	if locator == "" {
		return pass("ambient SAMP_HUB", "not set")
	}
	client, err := samp.NewClient(samp.ClientConfig{Name: "ds9samp doctor", Locator: locator})
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), ambientHubTimeout)
		defer cancel()
		err = client.Ping(ctx)
	}
	if err != nil {
		return warn("ambient SAMP_HUB",
			fmt.Sprintf("set to %q but nothing answers there; launched viewers override it", locator))
	}
	return warn("ambient SAMP_HUB",
		fmt.Sprintf("a live hub answers at %q; launched viewers override it", locator))
}

// printChecklist prints results in checklist form and reports overall
// failure. Warnings are informational only.
func printChecklist(results []checkResult) error {
	anyFailed := false
	for _, result := range results {
		fmt.Fprintf(os.Stdout, "[%-5s]  %-20s  %s\n",
			strings.ToUpper(string(result.Status)), result.Name, result.Message)
		if result.Status == statusFail {
			anyFailed = true
		}
	}
	fmt.Fprintln(os.Stdout)
	if anyFailed {
		return errors.New("environment is not ready, fix the failed checks above")
	}
	fmt.Fprintln(os.Stdout, "All checks passed.")
	return nil
}
