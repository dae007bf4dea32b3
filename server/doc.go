// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package server is for building ptsd servers.
//
// ptsd is a privileged daemon that runs programs on terminal devices
// for unprivileged clients, typically a terminal emulator that has
// opened a pty and wants something run on its slave side as another
// user. Clients talk to it over a loopback socket with the line
// protocol described in package session, and must send the daemon's
// password before anything else is honoured.
//
// The password is the only defence. The protocol is in the clear, so
// Listen refuses TCP addresses that are not loopback, and Serve drops
// any connection that somehow arrives from elsewhere.
//
// The basic flow of setting up a server is similar to most such servers:
// a call to New(), a call to Listen to get a socket, and a call to Serve
// with the listener.
//
// Every connection gets a session of its own. By default a session is
// a goroutine with a private working directory. With WithFork, each
// connection is handed, as descriptor RemoteFD, to a new process (in
// practice the daemon binary again, with -remote), which calls
// ServeRemote and exits when the client hangs up. That is the
// process-per-connection model of the classic fork-and-serve daemon:
// a session can not disturb another session or the listener, whatever
// it does to its own process.
package server
