// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package session runs the ptsd command protocol over one connection.
//
// The protocol is ASCII, one command per line, one reply per command:
//
//	auth <password>              1 Auth OK | 0 Auth failed
//	cd <path>                    1 Change directory OK | 0 Change directory failed
//	exec <device> <prog> [args]  1 Child launched with PID = <pid> | 0 <reason>
//
// Anything else is answered with "0 Bad command". Until an auth command
// succeeds, cd and exec are answered with "0 Not authorized". A failed
// auth drops a session back to unauthenticated.
//
// New(rw, opts...) creates a Session; Serve runs it until the client
// goes away. Each Session carries its own working directory, which cd
// changes and exec uses, so any number of Sessions can run in one
// process without seeing each other's cd.
package session
