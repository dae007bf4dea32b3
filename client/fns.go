// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultAddr is the address ptsd listens on.
	DefaultAddr = "127.0.0.1:31337"
	// MaxLine is the longest command line ptsd reads, newline included.
	MaxLine = 1024

	launched = "Child launched with PID = "
)

var (
	// ErrBadReply is returned for a reply that is not "0 text" or "1 text".
	ErrBadReply = errors.New("malformed reply")
	// ErrUnrepresentable is returned for an argument the protocol can
	// not carry: one with a space or newline in it, or an empty one.
	ErrUnrepresentable = errors.New("argument can not be sent")
	// ErrLineTooLong is returned for a command the daemon would truncate.
	ErrLineTooLong = errors.New("command line too long")
	// ErrNoProgram is returned by Exec with no argv.
	ErrNoProgram = errors.New("no program specified")
)

// ReplyError is a failure reply from the daemon.
type ReplyError struct {
	Cmd string
	Msg string
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Cmd, e.Msg)
}

// Option configures a Client.
type Option func(*Client) error

// WithTimeout bounds each command and its reply.
// The default is to wait forever, like the daemon does.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d < 0 {
			return fmt.Errorf("negative timeout %v", d)
		}
		c.Timeout = d
		return nil
	}
}

// line builds a command line. Only the last argument of auth and cd may
// contain spaces, since the daemon takes the rest of the line for them.
func line(verb string, args ...string) (string, error) {
	for i, a := range args {
		if strings.ContainsAny(a, "\n") {
			return "", fmt.Errorf("%s: %q: %w", verb, a, ErrUnrepresentable)
		}
		if verb == "exec" && (len(a) == 0 || strings.Contains(a, " ")) {
			return "", fmt.Errorf("%s: argument %d %q: %w", verb, i, a, ErrUnrepresentable)
		}
	}
	l := strings.Join(append([]string{verb}, args...), " ") + "\n"
	if len(l) > MaxLine {
		return "", fmt.Errorf("%s: %d bytes: %w", verb, len(l), ErrLineTooLong)
	}
	return l, nil
}

// parseReply splits "1 text\n" into (true, "text").
func parseReply(r string) (bool, string, error) {
	r = strings.TrimSuffix(r, "\n")
	flag, msg, ok := strings.Cut(r, " ")
	if !ok {
		return false, "", fmt.Errorf("%q: %w", r, ErrBadReply)
	}
	switch flag {
	case "1":
		return true, msg, nil
	case "0":
		return false, msg, nil
	}
	return false, "", fmt.Errorf("%q: %w", r, ErrBadReply)
}
