// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/u-root/ptsd/auth"
	"github.com/u-root/ptsd/launch"
	"golang.org/x/sys/unix"
)

// MaxLine is the longest line read, including its newline.
// Longer lines are truncated to MaxLine-1 bytes. It leaves room for an
// exec with more than MaxArgs arguments, so that such a request is
// refused rather than cut short and run.
const MaxLine = 1024

// Authenticator checks a password.
type Authenticator interface {
	Authenticate(password string) bool
}

// Launcher starts argv on a terminal device, in dir, and returns its pid.
type Launcher interface {
	Launch(dir, device string, argv []string) (int, error)
}

// Session is one client connection to ptsd.
type Session struct {
	w        io.Writer
	r        *bufio.Reader
	auth     Authenticator
	launcher Launcher
	// dir is this session's working directory. The process working
	// directory is never changed, so sessions in one process do not
	// see each other's cd.
	dir    string
	id     string
	authed bool
}

// Option configures a Session.
type Option func(*Session)

var v = func(string, ...interface{}) {}

// SetVerbose sets the debug print function.
func SetVerbose(f func(string, ...interface{})) {
	v = f
}

// WithAuthenticator sets the password check.
// The default checks auth.DefaultPath.
func WithAuthenticator(a Authenticator) Option {
	return func(s *Session) {
		s.auth = a
	}
}

// WithLauncher sets how exec requests are started.
func WithLauncher(l Launcher) Option {
	return func(s *Session) {
		s.launcher = l
	}
}

// WithDir sets the initial working directory.
// The default is the process working directory.
func WithDir(dir string) Option {
	return func(s *Session) {
		if len(dir) > 0 {
			s.dir = dir
		}
	}
}

// WithID sets the name used for the session in log messages.
func WithID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

// New returns a Session reading commands from, and writing replies to, rw.
func New(rw io.ReadWriter, opts ...Option) *Session {
	s := &Session{
		w:  rw,
		r:  bufio.NewReaderSize(rw, MaxLine),
		id: fmt.Sprintf("%d", os.Getpid()),
	}
	for _, o := range opts {
		o(s)
	}
	if s.auth == nil {
		s.auth = auth.New(auth.DefaultPath)
	}
	if s.launcher == nil {
		s.launcher = launch.New()
	}
	if len(s.dir) == 0 {
		d, err := os.Getwd()
		if err != nil {
			d = "/"
		}
		s.dir = d
	}
	return s
}

// Authenticated reports whether the last auth command succeeded.
func (s *Session) Authenticated() bool {
	return s.authed
}

// Dir returns the session working directory.
func (s *Session) Dir() string {
	return s.dir
}

// Serve reads and handles commands, one at a time, until the client
// closes the connection. It returns nil at end of stream, and the
// read or write error otherwise.
func (s *Session) Serve() error {
	log.Printf("PTSD:[%s] Starting service loop", s.id)
	defer log.Printf("PTSD:[%s] Session exited", s.id)
	for {
		line, err := s.readLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			verbose("[%s] read: %v", s.id, err)
			return err
		}
		if err := s.Handle(line); err != nil {
			verbose("[%s] reply: %v", s.id, err)
			return err
		}
	}
}

// readLine returns the next line without its newline. At most MaxLine-1
// bytes are kept; the rest of an overlong line is discarded. A final
// line with no newline is returned as is.
func (s *Session) readLine() (string, error) {
	var b []byte
	var dropped int
	for {
		c, err := s.r.ReadByte()
		if err == io.EOF && len(b) > 0 {
			break
		}
		if err != nil {
			return "", err
		}
		if c == '\n' {
			break
		}
		if len(b) < MaxLine-1 {
			b = append(b, c)
			continue
		}
		dropped++
	}
	if dropped > 0 {
		verbose("[%s] line too long: dropped %d bytes", s.id, dropped)
	}
	return string(b), nil
}

// Handle runs one command line and writes exactly one reply.
// Only write errors are returned: every command failure is a reply.
func (s *Session) Handle(line string) error {
	verb, arg, hasArg := split(line)
	verbose("[%s] %q", s.id, verb)

	if verb == "auth" {
		s.authed = s.auth.Authenticate(arg)
		if s.authed {
			return s.reply(true, "Auth OK")
		}
		return s.reply(false, "Auth failed")
	}

	if !s.authed {
		return s.reply(false, "Not authorized")
	}

	switch verb {
	case "cd":
		if !hasArg {
			return s.reply(false, "Change directory failed")
		}
		if err := s.Chdir(arg); err != nil {
			verbose("[%s] cd: %v", s.id, err)
			return s.reply(false, "Change directory failed")
		}
		return s.reply(true, "Change directory OK")
	case "exec":
		return s.exec(arg, hasArg)
	}
	return s.reply(false, "Bad command")
}

// Chdir changes the session working directory. A relative dir is taken
// relative to the current one, and symbolic links are resolved, as
// chdir(2) would.
func (s *Session) Chdir(dir string) error {
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(s.dir, dir)
	}
	d, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return err
	}
	fi, err := os.Stat(d)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return &os.PathError{Op: "chdir", Path: dir, Err: unix.ENOTDIR}
	}
	if err := unix.Access(d, unix.X_OK); err != nil {
		return &os.PathError{Op: "chdir", Path: dir, Err: err}
	}
	s.dir = d
	return nil
}

func (s *Session) exec(arg string, hasArg bool) error {
	if !hasArg {
		return s.reply(false, "No file specified")
	}
	req, err := ParseExec(arg)
	switch {
	case errors.Is(err, ErrMissingTarget):
		return s.reply(false, "No file specified")
	case errors.Is(err, ErrTooManyArguments):
		return s.reply(false, "Too many arguments in command")
	}

	pid, err := s.launcher.Launch(s.dir, req.Device, req.Argv)
	if err != nil {
		log.Printf("PTSD:[%s] Warning: launch %q on %q failed: %v", s.id, req.Argv, req.Device, err)
		return s.reply(false, "Failed to fork")
	}
	log.Printf("PTSD:[%s] Child launched with PID = %d", s.id, pid)
	return s.reply(true, fmt.Sprintf("Child launched with PID = %d", pid))
}

func (s *Session) reply(ok bool, msg string) error {
	flag := 0
	if ok {
		flag = 1
	}
	_, err := fmt.Fprintf(s.w, "%d %s\n", flag, msg)
	return err
}
