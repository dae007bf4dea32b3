// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/u-root/ptsd/auth"
	"github.com/u-root/ptsd/launch"
	"github.com/u-root/ptsd/session"
)

const (
	// DefaultAddr is where ptsd listens.
	DefaultAddr = "127.0.0.1:31337"
	// RemoteFD is the descriptor on which a forked session finds its
	// connection: the first of exec.Cmd.ExtraFiles.
	RemoteFD = 3
)

var (
	v = func(string, ...interface{}) {}

	// ErrServerClosed is returned by Serve after Close.
	ErrServerClosed = errors.New("ptsd: Server closed")
	// ErrNotLoopback is returned by Listen for addresses other hosts can reach.
	ErrNotLoopback = errors.New("not a loopback address")
	// ErrNetwork is returned by Listen for networks it does not support.
	ErrNetwork = errors.New("unsupported network")
)

// SetVerbose sets the debug print function.
func SetVerbose(f func(string, ...interface{})) {
	v = f
}

func verbose(f string, a ...interface{}) {
	v("server:"+f, a...)
}

// Server accepts connections and runs one Session for each.
type Server struct {
	auth     session.Authenticator
	launcher session.Launcher
	dir      string
	fork     string
	forkArgs []string

	mu     sync.Mutex
	ln     net.Listener
	conns  map[net.Conn]struct{}
	closed bool
	// sessions counts in-process sessions still running.
	sessions sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server) error

// WithPasswd sets the credential file.
func WithPasswd(path string) Option {
	return func(s *Server) error {
		s.auth = auth.New(path)
		return nil
	}
}

// WithAuthenticator sets the password check used by every session.
func WithAuthenticator(a session.Authenticator) Option {
	return func(s *Server) error {
		s.auth = a
		return nil
	}
}

// WithLauncher sets how sessions start programs.
func WithLauncher(l session.Launcher) Option {
	return func(s *Server) error {
		s.launcher = l
		return nil
	}
}

// WithDir sets the initial working directory of in-process sessions.
func WithDir(dir string) Option {
	return func(s *Server) error {
		fi, err := os.Stat(dir)
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			return fmt.Errorf("%q is not a directory", dir)
		}
		s.dir = dir
		return nil
	}
}

// WithFork makes the Server run each session in its own process:
// binary is started with args and the connection on RemoteFD, and is
// expected to call ServeRemote. Usually binary is the running program.
func WithFork(binary string, args ...string) Option {
	return func(s *Server) error {
		if len(binary) == 0 {
			return fmt.Errorf("fork: no binary")
		}
		s.fork, s.forkArgs = binary, args
		return nil
	}
}

// New returns a Server. Unless set by an option, sessions check
// auth.DefaultPath and run in the calling process.
func New(opts ...Option) (*Server, error) {
	s := &Server{conns: map[net.Conn]struct{}{}}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}
	if s.auth == nil {
		s.auth = auth.New(auth.DefaultPath)
	}
	if s.launcher == nil {
		s.launcher = launch.New()
	}
	return s, nil
}

// Listen listens on network and addr. TCP addresses must be loopback:
// the protocol is in the clear and the password is its only defence.
func Listen(network, addr string) (net.Listener, error) {
	switch network {
	case "unix":
		return net.Listen(network, addr)
	case "tcp", "tcp4", "tcp6":
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		if host != "localhost" {
			ip := net.ParseIP(host)
			if ip == nil || !ip.IsLoopback() {
				return nil, fmt.Errorf("%q: %w", addr, ErrNotLoopback)
			}
		}
		return net.Listen(network, addr)
	}
	return nil, fmt.Errorf("%q: %w", network, ErrNetwork)
}

// loopback reports whether c comes from this machine.
func loopback(c net.Conn) bool {
	a, ok := c.RemoteAddr().(*net.TCPAddr)
	if !ok {
		// unix sockets
		return true
	}
	return a.IP.IsLoopback()
}

// Serve accepts connections on ln until Close is called or Accept fails.
// An Accept failure ends Serve: a listener that can not accept is not
// worth keeping alive. After Close, Serve returns ErrServerClosed.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrServerClosed
	}
	s.ln = ln
	s.mu.Unlock()
	defer ln.Close()

	verbose("Listening on %v", ln.Addr())
	for {
		c, err := ln.Accept()
		if err != nil {
			if s.isClosed() {
				return ErrServerClosed
			}
			return fmt.Errorf("accept on %v: %w", ln.Addr(), err)
		}
		if !loopback(c) {
			log.Printf("PTSD:Warning: dropping connection from %v", c.RemoteAddr())
			c.Close()
			continue
		}
		verbose("connection from %v", c.RemoteAddr())
		if len(s.fork) > 0 {
			if err := s.spawn(c); err != nil {
				log.Printf("PTSD:Could not fork session: %v", err)
			}
			// The child has its own copy, or there is no child.
			c.Close()
			continue
		}
		if !s.add(c) {
			c.Close()
			continue
		}
		go s.serveConn(c)
	}
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// add records an in-process session on c. It refuses once Close has
// been called, and the caller must then close c itself.
func (s *Server) add(c net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[c] = struct{}{}
	s.sessions.Add(1)
	return true
}

func (s *Server) remove(c net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
	s.sessions.Done()
}

func (s *Server) newSession(c net.Conn, id string) *session.Session {
	return session.New(c,
		session.WithAuthenticator(s.auth),
		session.WithLauncher(s.launcher),
		session.WithDir(s.dir),
		session.WithID(id))
}

// serveConn runs an in-process session.
func (s *Server) serveConn(c net.Conn) {
	defer s.remove(c)
	defer c.Close()
	if err := s.newSession(c, uuid.NewString()).Serve(); err != nil {
		verbose("session on %v: %v", c.RemoteAddr(), err)
	}
}

// spawn starts a session process for c. The caller closes c.
func (s *Server) spawn(c net.Conn) error {
	fc, ok := c.(interface{ File() (*os.File, error) })
	if !ok {
		return fmt.Errorf("%T can not be passed to a child", c)
	}
	f, err := fc.File()
	if err != nil {
		return err
	}
	defer f.Close()

	cmd := exec.Command(s.fork, s.forkArgs...)
	cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
	cmd.ExtraFiles = []*os.File{f}
	cmd.Dir = s.dir
	if err := cmd.Start(); err != nil {
		return err
	}
	verbose("session for %v is pid %d", c.RemoteAddr(), cmd.Process.Pid)
	go func() {
		err := cmd.Wait()
		verbose("session %d exited: %v", cmd.Process.Pid, err)
	}()
	return nil
}

// ServeRemote runs one session on f, a connection inherited from a
// Server using WithFork, and returns when the client goes away. f is
// closed first thing, so programs the session starts never inherit it.
func (s *Server) ServeRemote(f *os.File) error {
	c, err := net.FileConn(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("connection on %q: %w", f.Name(), err)
	}
	defer c.Close()
	return s.newSession(c, strconv.Itoa(os.Getpid())).Serve()
}

// Close stops Serve, closes the connections of in-process sessions and
// waits for those sessions to end. A session in the middle of a command
// finishes it first. Forked sessions are separate processes and carry on.
func (s *Server) Close() error {
	err := s.shut()
	s.sessions.Wait()
	return err
}

// shut marks s closed and closes the listener and session connections.
func (s *Server) shut() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	var err error
	if s.ln != nil {
		if e := s.ln.Close(); e != nil {
			err = multierror.Append(err, e)
		}
	}
	for c := range s.conns {
		if e := c.Close(); e != nil {
			err = multierror.Append(err, e)
		}
	}
	return err
}
