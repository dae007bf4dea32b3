// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"github.com/u-root/ptsd/server"
)

// config is what serve needs from the command line.
type config struct {
	network string
	addr    string
	passwd  string
	dir     string
	fork    bool
	debug   bool
	klog    bool
}

// check returns every problem with c, not just the first.
func (c *config) check() error {
	var err error
	switch c.network {
	case "tcp", "tcp4", "tcp6", "unix":
	default:
		err = multierror.Append(err, fmt.Errorf("network %q: %w", c.network, server.ErrNetwork))
	}
	if len(c.addr) == 0 {
		err = multierror.Append(err, fmt.Errorf("no address to listen on"))
	}
	if len(c.passwd) == 0 {
		err = multierror.Append(err, fmt.Errorf("no password file"))
	} else if fi, e := os.Stat(filepath.Dir(c.passwd)); e != nil {
		err = multierror.Append(err, fmt.Errorf("password file directory: %w", e))
	} else if !fi.IsDir() {
		err = multierror.Append(err, fmt.Errorf("password file directory %q is not a directory", filepath.Dir(c.passwd)))
	}
	if fi, e := os.Stat(c.dir); e != nil {
		err = multierror.Append(err, fmt.Errorf("session directory: %w", e))
	} else if !fi.IsDir() {
		err = multierror.Append(err, fmt.Errorf("session directory %q is not a directory", c.dir))
	}
	return err
}

// remoteArgs are the arguments for a session process. -remote MUST come
// first; see main.
func (c *config) remoteArgs() []string {
	args := []string{"-remote", "-passwd", c.passwd}
	if c.debug {
		args = append(args, "-d")
	}
	if c.klog {
		args = append(args, "-klog")
	}
	return args
}

func (c *config) options() ([]server.Option, error) {
	opts := []server.Option{server.WithPasswd(c.passwd), server.WithDir(c.dir)}
	if !c.fork {
		return opts, nil
	}
	bin, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("finding ptsd binary for sessions: %w", err)
	}
	return append(opts, server.WithFork(bin, c.remoteArgs()...)), nil
}

func serve() error {
	c := &config{
		network: *network,
		addr:    *addr,
		passwd:  *passwd,
		dir:     *dir,
		fork:    *fork,
		debug:   *debug,
		klog:    *klog,
	}
	if err := c.check(); err != nil {
		return err
	}
	if _, err := os.Stat(c.passwd); err != nil {
		log.Printf("PTSD:Warning: %v: every auth will fail until it exists", err)
	}
	opts, err := c.options()
	if err != nil {
		return err
	}
	s, err := server.New(opts...)
	if err != nil {
		return fmt.Errorf("PTSD:%w", err)
	}
	ln, err := server.Listen(c.network, c.addr)
	if err != nil {
		return fmt.Errorf("PTSD:%w", err)
	}
	log.Printf("PTSD:Listening on %v (fork %v)", ln.Addr(), c.fork)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGHUP, syscall.SIGTERM, os.Interrupt)
	go func() {
		sig := <-sigc
		log.Printf("PTSD:%v: shutting down", sig)
		if err := s.Close(); err != nil {
			log.Printf("PTSD:Close: %v", err)
		}
	}()

	if err := s.Serve(ln); !errors.Is(err, server.ErrServerClosed) {
		return err
	}
	verbose("Serve returns")
	return nil
}
