// Copyright 2026 The ds9samp Authors
// SPDX-License-Identifier: Apache-2.0

package ds9

import (
	"os"
	"os/exec"
	"syscall"
)

// launchCommand builds the viewer invocation. The viewer is told to
// join a hub as a client, start that hub itself, skip the web hub, and
// disable its XPA control channel so SAMP is the only command path.
func launchCommand(options Options, hubFile string) *exec.Cmd {
	args := []string{
		"-samp", "client", "yes",
		"-samp", "hub", "yes",
		"-samp", "web", "hub", "no",
		"-xpa", "no",
		"-title", options.Title,
	}
	args = append(args, options.Args...)

	cmd := exec.Command(options.Executable, args...)

	// The hub endpoint is private to this instance: the viewer learns
	// where to write its lockfile through SAMP_HUB. XMODIFIERS keeps
	// the viewer's Tk event loop responsive under Wayland input
	// methods.
	cmd.Env = append(os.Environ(),
		"SAMP_HUB=std-lockurl:file://"+hubFile,
		"XMODIFIERS=@im=none",
	)

	// A fresh session detaches the viewer from our controlling
	// terminal and makes its PID double as a process group ID, so one
	// signal later reaches the viewer and anything it spawned.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}

// start spawns the viewer and a reaper goroutine that collects its exit
// status so the process never lingers as a zombie.
func (v *Viewer) start() error {
	v.logger.Info("launching viewer",
		"executable", v.options.Executable,
		"title", v.options.Title,
		"hub_file", v.hubFile)
	v.logger.Debug("viewer command line", "args", v.command.Args)

	if err := v.command.Start(); err != nil {
		return &LaunchError{Executable: v.options.Executable, Err: err}
	}
	v.logger.Debug("viewer process started", "pid", v.command.Process.Pid)

	go func() {
		err := v.command.Wait()
		v.logger.Debug("viewer process exited", "pid", v.command.Process.Pid, "error", err)
	}()
	return nil
}
