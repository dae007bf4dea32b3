// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package auth checks passwords against the single stored ptsd
// credential.
//
// The credential is a bcrypt hash kept in one file, by default
// DefaultPath. It is read again on every call to Authenticate, so a
// new hash written by ptspasswd takes effect on the very next attempt
// without restarting the daemon. Anything that goes wrong while reading
// or checking it (no file, an empty file, a hash bcrypt can not parse)
// makes Authenticate return false.
//
// There is no lockout and no retry counter. The daemon only listens on
// loopback and the password is the only thing standing between a local
// user and a root exec, so pick a good one.
package auth
