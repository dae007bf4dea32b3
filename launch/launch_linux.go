// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package launch

import "golang.org/x/sys/unix"

const ioctlReadTermios = unix.TCGETS
