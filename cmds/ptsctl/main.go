// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// ptsctl is a client for ptsd.
//
// Synopsis:
//
//	ptsctl [-addr host:port] [-net tcp|unix] [-cd dir] [-timeout d] [-d] auth
//	ptsctl [options] exec DEVICE PROGRAM [ARG...]
//	ptsctl [options] run PROGRAM [ARG...]
//
// auth only checks the password. exec asks ptsd to start PROGRAM on
// DEVICE and prints its pid. run opens a pty, has ptsd start PROGRAM on
// its slave side, and connects the terminal to it until PROGRAM exits.
//
// The password is taken from $PTSD_PASSWORD or, failing that, read from
// the terminal.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/u-root/ptsd/client"
	"golang.org/x/term"
)

var (
	addr    = flag.String("addr", client.DefaultAddr, "ptsd address")
	network = flag.String("net", "tcp", "network type to use")
	cd      = flag.String("cd", "", "directory to run the program in")
	timeout = flag.Duration("timeout", 10*time.Second, "time to wait for each reply; 0 waits forever")
	debug   = flag.Bool("d", false, "enable debug prints")

	v = func(string, ...interface{}) {}

	errUsage = errors.New("usage: ptsctl [options] auth | exec DEVICE PROGRAM [ARG...] | run PROGRAM [ARG...]")
)

func verbose(f string, a ...interface{}) {
	v("PTSCTL:"+f, a...)
}

func flags() {
	flag.Parse()
	if *debug {
		v = log.Printf
		client.SetVerbose(verbose)
	}
}

// password returns $PTSD_PASSWORD, or prompts for the password.
func password() (string, error) {
	if p, ok := os.LookupEnv("PTSD_PASSWORD"); ok {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("PTSD_PASSWORD is not set and stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, "ptsd password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func ptsctl(args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "auth":
		if len(args) != 0 {
			return errUsage
		}
	case "exec":
		if len(args) < 2 {
			return errUsage
		}
	case "run":
		if len(args) < 1 {
			return errUsage
		}
	default:
		return errUsage
	}

	pw, err := password()
	if err != nil {
		return err
	}
	c, err := client.Dial(*network, *addr, client.WithTimeout(*timeout))
	if err != nil {
		return err
	}
	defer c.Close()
	verbose("connected to %v", *addr)

	if err := c.Auth(pw); err != nil {
		return err
	}
	if len(*cd) > 0 {
		if err := c.Cd(*cd); err != nil {
			return err
		}
	}

	switch cmd {
	case "exec":
		pid, err := c.Exec(args[0], args[1:]...)
		if err != nil {
			return err
		}
		fmt.Println(pid)
	case "run":
		return run(c, args)
	}
	return nil
}

func main() {
	flags()
	if err := ptsctl(flag.Args()); err != nil {
		log.Fatal(err)
	}
}
