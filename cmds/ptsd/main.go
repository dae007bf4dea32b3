// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// ptsd runs programs on terminal devices for clients on this machine.
//
// Synopsis:
//
//	ptsd [-addr host:port] [-net tcp|unix] [-passwd file] [-fork=false] [-dir dir] [-d] [-klog]
//
// Clients connect to -addr, authenticate with the password whose bcrypt
// hash is in -passwd (see ptspasswd), and then send
//
//	cd DIR
//	exec DEVICE PROGRAM [ARG...]
//
// ptsd does not detach from its terminal; run it from init or a
// service manager.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/u-root/ptsd/auth"
	"github.com/u-root/ptsd/launch"
	"github.com/u-root/ptsd/server"
	"github.com/u-root/ptsd/session"
)

var (
	addr    = flag.String("addr", server.DefaultAddr, "address to listen on; must be loopback")
	network = flag.String("net", "tcp", "network to use: tcp, tcp4, tcp6 or unix")
	passwd  = flag.String("passwd", auth.DefaultPath, "file holding the bcrypt hash of the password")
	fork    = flag.Bool("fork", true, "run each session in its own process")
	dir     = flag.String("dir", "/", "initial working directory of sessions")

	debug  = flag.Bool("d", false, "enable debug prints")
	klog   = flag.Bool("klog", false, "Log ptsd messages in kernel log, not stdout")
	remote = flag.Bool("remote", false, "indicates we are the session process for one connection")

	// v allows debug printing.
	// Do not call it directly, call verbose instead.
	v = func(string, ...interface{}) {}
)

func verbose(f string, a ...interface{}) {
	if *remote {
		v("PTSD(remote):"+f, a...)
	} else {
		v("PTSD:"+f, a...)
	}
}

// There are two cases.
//  1. running as the daemon, which listens and starts sessions.
//  2. running as 'remote', the session process for one connection,
//     which the daemon starts with the connection on server.RemoteFD.
//
// In the remote case os.Args[1] MUST be -remote, and only the switches
// the daemon passes on are accepted. This is known to remoteArgs.
func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-remote" || os.Args[1] == "-remote=true") {
		*remote = true
	}

	if *remote {
		flag.CommandLine = flag.NewFlagSet("ptsd-remote", flag.ExitOnError)
		debug = flag.Bool("d", false, "enable debug prints")
		klog = flag.Bool("klog", false, "Log ptsd messages in kernel log, not stdout")
		remote = flag.Bool("remote", false, "indicates we are the session process for one connection")
		passwd = flag.String("passwd", auth.DefaultPath, "file holding the bcrypt hash of the password")
		flag.Parse()
		// No matter what was set, we are remote.
		*remote = true
	} else {
		flag.Parse()
		*remote = false
	}
	commonsetup()
	verbose("Args %v pid %d remote %v", os.Args, os.Getpid(), *remote)

	if *remote {
		s, err := server.New(server.WithPasswd(*passwd))
		if err != nil {
			log.Fatalf("PTSD(remote):%v", err)
		}
		if err := s.ServeRemote(os.NewFile(server.RemoteFD, "conn")); err != nil {
			log.Fatalf("PTSD(remote):%v", err)
		}
		return
	}

	log.Printf("PTSD:PID(%d):running as a server (a.k.a. starter of sessions)", os.Getpid())
	if err := serve(); err != nil {
		log.Fatal(err)
	}
}

// commonsetup sends debug prints of every package through verbose, so
// each line carries the role tag and then the package tag.
func commonsetup() {
	if !*debug {
		return
	}
	v = log.Printf
	if *klog {
		v = kernelLog()
	}
	setVerbose(verbose)
}

func setVerbose(f func(string, ...interface{})) {
	server.SetVerbose(f)
	session.SetVerbose(f)
	launch.SetVerbose(f)
	auth.SetVerbose(f)
}
