// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"io"
	"os"
	"syscall"

	"github.com/creack/pty"
	"github.com/hashicorp/go-multierror"
	"github.com/u-root/ptsd/client"
	"github.com/u-root/u-root/pkg/termios"
	"golang.org/x/term"
)

// run has ptsd start argv on the slave side of a new pty, then copies
// between the terminal and the master until the program is gone.
func run(c *client.Client, argv []string) error {
	ptm, tty, err := pty.Open()
	if err != nil {
		return err
	}
	defer ptm.Close()

	if err := pty.InheritSize(os.Stdin, tty); err != nil {
		verbose("Can not get winsize: %v; using the pty default", err)
	}
	pid, err := c.Exec(tty.Name(), argv...)
	// The program has its own descriptor for the slave now, or there is
	// no program. Either way ours must go, or the master never sees EOF.
	if e := tty.Close(); e != nil {
		err = multierror.Append(err, e)
	}
	if err != nil {
		return err
	}
	verbose("%q is pid %d on %s", argv, pid, tty.Name())

	if term.IsTerminal(int(os.Stdin.Fd())) {
		t, err := termios.New()
		if err != nil {
			return err
		}
		r, err := t.Raw()
		if err != nil {
			return err
		}
		defer t.Set(r) //nolint
	}

	go io.Copy(ptm, os.Stdin) //nolint
	_, err = io.Copy(os.Stdout, ptm)
	// Reading the master of a pty with no slave left gives EIO.
	if errors.Is(err, syscall.EIO) {
		err = nil
	}
	return err
}
