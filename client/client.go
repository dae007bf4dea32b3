// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package client talks to a ptsd.
//
// A Client is one connection, and so one session: a Cd only affects
// later Exec calls on the same Client. Calls are strictly one at a
// time, as the protocol is; a Client must not be used from more than
// one goroutine at once.
package client

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// V allows debug printing.
var V = func(string, ...interface{}) {}

// SetVerbose sets the debug print function.
func SetVerbose(f func(string, ...interface{})) {
	V = f
}

// Client is a connection to a ptsd.
type Client struct {
	conn    io.ReadWriteCloser
	r       *bufio.Reader
	Timeout time.Duration
}

// New returns a Client using an established connection.
func New(conn io.ReadWriteCloser, opts ...Option) (*Client, error) {
	c := &Client{conn: conn, r: bufio.NewReader(conn)}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Dial connects to a ptsd at addr.
func Dial(network, addr string, opts ...Option) (*Client, error) {
	conn, err := net.Dial(network, addr)
	V("client:net.Dial(%s, %s): (%v, %v)", network, addr, conn, err)
	if err != nil {
		return nil, fmt.Errorf("Failed to dial: %w", err)
	}
	c, err := New(conn, opts...)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// Do sends one command line and waits for its reply. It returns the
// reply text for a success, and a *ReplyError for a failure reply.
func (c *Client) Do(verb string, args ...string) (string, error) {
	l, err := line(verb, args...)
	if err != nil {
		return "", err
	}

	if dc, ok := c.conn.(net.Conn); ok && c.Timeout > 0 {
		if err := dc.SetDeadline(time.Now().Add(c.Timeout)); err != nil {
			return "", err
		}
		defer dc.SetDeadline(time.Time{}) //nolint
	}

	V("client:send %q", verb)
	if _, err := io.WriteString(c.conn, l); err != nil {
		return "", err
	}
	r, err := c.r.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading reply to %q: %w", verb, err)
	}
	V("client:reply %q", r)
	ok, msg, err := parseReply(r)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &ReplyError{Cmd: verb, Msg: msg}
	}
	return msg, nil
}

// Auth sends the password.
func (c *Client) Auth(password string) error {
	_, err := c.Do("auth", password)
	return err
}

// Cd changes the session working directory.
func (c *Client) Cd(dir string) error {
	_, err := c.Do("cd", dir)
	return err
}

// Exec starts argv on device and returns its pid.
func (c *Client) Exec(device string, argv ...string) (int, error) {
	if len(argv) == 0 {
		return 0, ErrNoProgram
	}
	msg, err := c.Do("exec", append([]string{device}, argv...)...)
	if err != nil {
		return 0, err
	}
	p := strings.TrimPrefix(msg, launched)
	if p == msg {
		return 0, fmt.Errorf("%q: %w", msg, ErrBadReply)
	}
	pid, err := strconv.Atoi(p)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", msg, ErrBadReply)
	}
	return pid, nil
}

// Close ends the session.
func (c *Client) Close() error {
	return c.conn.Close()
}
