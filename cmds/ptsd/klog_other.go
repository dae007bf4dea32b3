// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux

package main

import "log"

// There is no kernel log to write to.
func kernelLog() func(string, ...interface{}) {
	log.Printf("PTSD:Warning: -klog is only supported on Linux")
	return log.Printf
}
