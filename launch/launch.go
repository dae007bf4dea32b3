// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package launch starts programs bound to a terminal device.
//
// Launch opens the device, makes it the standard input, output and
// error of the new process, gives the process a new session with the
// device as its controlling terminal, and returns the pid without
// waiting. The process is waited for in the background so it never
// lingers as a zombie; nothing else about it is tracked.
//
// The caller's own descriptors are not inherited. Go opens files and
// sockets close-on-exec, and Launch passes no extra files, so the
// client connection of the session that asked for the launch never
// leaks into the program.
//
// Signal dispositions need no restoring: handlers installed by the Go
// runtime are reset by exec, and ptsd never sets SIG_IGN, which is the
// only disposition that would survive into the child.
package launch

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

var (
	v = func(string, ...interface{}) {}

	// ErrNoProgram is returned when Launch is given an empty argv.
	ErrNoProgram = errors.New("no program specified")
)

// SetVerbose sets the debug print function.
func SetVerbose(f func(string, ...interface{})) {
	v = f
}

func verbose(f string, a ...interface{}) {
	v("launch:"+f, a...)
}

// Launcher starts fire-and-forget processes on terminal devices.
type Launcher struct {
	env []string
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithEnv sets the environment of launched programs.
// By default they inherit the daemon's environment.
func WithEnv(env []string) Option {
	return func(l *Launcher) {
		l.env = env
	}
}

// New returns a Launcher.
func New(opts ...Option) *Launcher {
	l := &Launcher{}
	for _, o := range opts {
		o(l)
	}
	return l
}

// resolve makes p relative to dir, if it is a relative path.
func resolve(dir, p string) string {
	if filepath.IsAbs(p) || len(dir) == 0 {
		return p
	}
	return filepath.Join(dir, p)
}

// Command returns the exec.Cmd Launch would start for argv in dir,
// without a terminal attached. argv[0] is looked up in $PATH if it
// contains no slash; otherwise it is resolved against dir.
func (l *Launcher) Command(dir string, argv []string) (*exec.Cmd, error) {
	if len(argv) == 0 {
		return nil, ErrNoProgram
	}
	name := argv[0]
	if strings.Contains(name, "/") {
		name = resolve(dir, name)
	}
	cmd := exec.Command(name, argv[1:]...)
	if cmd.Err != nil {
		return nil, cmd.Err
	}
	// Keep argv[0] as the client sent it.
	cmd.Args[0] = argv[0]
	cmd.Dir = dir
	cmd.Env = l.env
	return cmd, nil
}

// Launch starts argv on device with dir as its working directory and
// returns its pid. A relative device is resolved against dir.
func (l *Launcher) Launch(dir, device string, argv []string) (int, error) {
	cmd, err := l.Command(dir, argv)
	if err != nil {
		return 0, err
	}

	device = resolve(dir, device)
	tty, err := os.OpenFile(device, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return 0, err
	}
	// The child has its own copy once started.
	defer tty.Close()

	if _, err := unix.IoctlGetTermios(int(tty.Fd()), ioctlReadTermios); err != nil {
		return 0, &os.PathError{Op: "launch", Path: device, Err: err}
	}

	cmd.Stdin, cmd.Stdout, cmd.Stderr = tty, tty, tty
	// Ctty is a descriptor number in the child: 0 is the tty.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true, Ctty: 0}

	verbose("%q on %q in %q", cmd.Args, device, dir)
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("starting %q on %q: %w", argv[0], device, err)
	}

	pid := cmd.Process.Pid
	go reap(cmd)
	return pid, nil
}

// reap waits for a launched process, so that the kernel can release it.
func reap(cmd *exec.Cmd) {
	err := cmd.Wait()
	if err != nil {
		var ee *exec.ExitError
		if !errors.As(err, &ee) {
			log.Printf("PTSD:wait for %d: %v", cmd.Process.Pid, err)
			return
		}
	}
	verbose("child %d exited: %v", cmd.Process.Pid, cmd.ProcessState)
}
