// Copyright 2026 The ds9samp Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the ds9samp
// command.
//
// Configuration is loaded from a single file specified by either the
// DS9SAMP_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery,
// and no automatic file search, so the effective configuration is
// always the file named plus the command line.
//
// Variable expansion is performed on path fields after loading:
// ${HOME} and ${VAR:-default} patterns are expanded. No other
// environment variables override config values; the DS9_EXE and
// SAMP_HUB_PATH variables only apply when the corresponding fields are
// left empty, which the viewer layer resolves itself.
//
// Key exports:
//
//   - [Config] -- viewer and logging settings
//   - [Default] -- a Config matching the built-in viewer defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [Config.ToOptions] -- conversion to the viewer's launch options
//
// This package depends only on the ds9 package it configures.
package config
