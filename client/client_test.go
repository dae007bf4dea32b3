// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"bufio"
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/u-root/ptsd/session"
)

type password string

func (p password) Authenticate(pw string) bool {
	return pw == string(p)
}

type pid int

func (p pid) Launch(dir, device string, argv []string) (int, error) {
	return int(p), nil
}

// pipe returns a Client whose daemon is a Session on the other end of a
// net.Pipe.
func pipe(t *testing.T) *Client {
	t.Helper()
	a, b := net.Pipe()
	s := session.New(b,
		session.WithAuthenticator(password("secret")),
		session.WithLauncher(pid(1234)),
		session.WithDir(os.TempDir()),
		session.WithID(t.Name()))
	go func() {
		s.Serve() //nolint
		b.Close()
	}()
	c, err := New(a, WithTimeout(10*time.Second))
	if err != nil {
		t.Fatalf("New: %v != nil", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClient(t *testing.T) {
	c := pipe(t)
	var re *ReplyError
	if _, err := c.Exec("/dev/pts/3", "sh"); !errors.As(err, &re) || re.Msg != "Not authorized" {
		t.Fatalf("Exec before Auth: %v, want Not authorized", err)
	}
	if re.Cmd != "exec" {
		t.Errorf("ReplyError.Cmd: %q != %q", re.Cmd, "exec")
	}
	if err := c.Auth("secret"); err != nil {
		t.Fatalf("Auth: %v != nil", err)
	}
	if err := c.Cd("/"); err != nil {
		t.Fatalf("Cd(/): %v != nil", err)
	}
	p, err := c.Exec("/dev/pts/3", "sh", "-c", "date")
	if err != nil {
		t.Fatalf("Exec: %v != nil", err)
	}
	if p != 1234 {
		t.Errorf("Exec: pid %d != 1234", p)
	}
	if _, err := c.Exec("/dev/pts/3"); !errors.Is(err, ErrNoProgram) {
		t.Errorf("Exec with no program: %v != %v", err, ErrNoProgram)
	}
	msg, err := c.Do("auth", "secret")
	if err != nil || msg != "Auth OK" {
		t.Errorf("Do(auth): (%q, %v) != (%q, nil)", msg, err, "Auth OK")
	}
}

func TestClose(t *testing.T) {
	c := pipe(t)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v != nil", err)
	}
	if err := c.Auth("secret"); err == nil {
		t.Fatalf("Auth after Close: nil != an error")
	}
}

func TestCloseClosesConn(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	c, err := New(a)
	if err != nil {
		t.Fatalf("New: %v != nil", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v != nil", err)
	}
	if _, err := b.Read(make([]byte, 1)); !errors.Is(err, io.EOF) {
		t.Errorf("peer read after Close: %v != %v", err, io.EOF)
	}
}

// fake answers every line with reply.
func fake(t *testing.T, reply string) *Client {
	t.Helper()
	a, b := net.Pipe()
	go func() {
		r := bufio.NewReader(b)
		for {
			if _, err := r.ReadString('\n'); err != nil {
				b.Close()
				return
			}
			if _, err := b.Write([]byte(reply)); err != nil {
				return
			}
		}
	}()
	c, err := New(a, WithTimeout(10*time.Second))
	if err != nil {
		t.Fatalf("New: %v != nil", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestBadReplies(t *testing.T) {
	for _, tt := range []struct {
		reply string
		err   error
	}{
		{reply: "2 What\n", err: ErrBadReply},
		{reply: "OK\n", err: ErrBadReply},
		{reply: "1 Child launched with PID = x\n", err: ErrBadReply},
		// A success with no pid is malformed for exec.
		{reply: "1 Change directory OK\n", err: ErrBadReply},
		{reply: "1 Child launched with PID = 77\n"},
	} {
		c := fake(t, tt.reply)
		_, err := c.Exec("/dev/pts/0", "sh")
		if !errors.Is(err, tt.err) {
			t.Errorf("reply %q: %v != %v", tt.reply, err, tt.err)
		}
	}
}

func TestTimeout(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	go func() {
		// Read the command, never answer.
		bufio.NewReader(b).ReadString('\n') //nolint
	}()
	c, err := New(a, WithTimeout(100*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v != nil", err)
	}
	defer c.Close()
	var ne net.Error
	if err := c.Auth("x"); !errors.As(err, &ne) || !ne.Timeout() {
		t.Fatalf("Auth with no reply: %v, want a timeout", err)
	}
	if _, err := New(a, WithTimeout(-1)); err == nil {
		t.Errorf("WithTimeout(-1): nil != an error")
	}
}

func TestDialFails(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v != nil", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	if _, err := Dial("tcp", addr); err == nil {
		t.Fatalf("Dial(%q) with nothing listening: nil != an error", addr)
	}
}

func TestLine(t *testing.T) {
	for _, tt := range []struct {
		name string
		verb string
		args []string
		out  string
		err  error
	}{
		{name: "auth", verb: "auth", args: []string{"pw"}, out: "auth pw\n"},
		{name: "authspace", verb: "auth", args: []string{"pass word"}, out: "auth pass word\n"},
		{name: "cdspace", verb: "cd", args: []string{"/a b"}, out: "cd /a b\n"},
		{name: "exec", verb: "exec", args: []string{"/dev/pts/1", "ls", "-l"}, out: "exec /dev/pts/1 ls -l\n"},
		{name: "execspace", verb: "exec", args: []string{"/dev/pts/1", "a b"}, err: ErrUnrepresentable},
		{name: "execempty", verb: "exec", args: []string{"/dev/pts/1", ""}, err: ErrUnrepresentable},
		{name: "newline", verb: "auth", args: []string{"a\nexec"}, err: ErrUnrepresentable},
		{name: "long", verb: "auth", args: []string{strings.Repeat("x", MaxLine)}, err: ErrLineTooLong},
		{name: "justfits", verb: "auth", args: []string{strings.Repeat("x", MaxLine-6)}, out: "auth " + strings.Repeat("x", MaxLine-6) + "\n"},
		{name: "bare", verb: "frob", out: "frob\n"},
	} {
		out, err := line(tt.verb, tt.args...)
		if !errors.Is(err, tt.err) || out != tt.out {
			t.Errorf("%s:line(%q, %q): (%q, %v) != (%q, %v)", tt.name, tt.verb, tt.args, out, err, tt.out, tt.err)
		}
	}
}

func TestParseReply(t *testing.T) {
	for _, tt := range []struct {
		in  string
		ok  bool
		msg string
		err error
	}{
		{in: "1 Auth OK\n", ok: true, msg: "Auth OK"},
		{in: "0 Auth failed\n", msg: "Auth failed"},
		{in: "1 \n", ok: true},
		{in: "1\n", err: ErrBadReply},
		{in: "\n", err: ErrBadReply},
		{in: "yes ok\n", err: ErrBadReply},
	} {
		ok, msg, err := parseReply(tt.in)
		if ok != tt.ok || msg != tt.msg || !errors.Is(err, tt.err) {
			t.Errorf("parseReply(%q): (%v, %q, %v) != (%v, %q, %v)", tt.in, ok, msg, err, tt.ok, tt.msg, tt.err)
		}
	}
}
