// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package auth

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultPath is where the daemon looks for its credential.
	DefaultPath = "/data/local/ptsd/passwd"

	// maxCredential bounds how much of the credential file is read.
	// A bcrypt hash is 60 bytes.
	maxCredential = 128
)

var (
	v = func(string, ...interface{}) {}

	// ErrNoCredential is returned when the credential file holds nothing.
	ErrNoCredential = errors.New("no credential stored")
)

// SetVerbose sets the debug print function.
func SetVerbose(f func(string, ...interface{})) {
	v = f
}

func verbose(f string, a ...interface{}) {
	v("auth:"+f, a...)
}

// Authenticator decides whether a password matches the stored credential.
type Authenticator struct {
	path string
}

// New returns an Authenticator for the credential stored at path.
// If path is empty, DefaultPath is used.
func New(path string) *Authenticator {
	if len(path) == 0 {
		path = DefaultPath
	}
	return &Authenticator{path: path}
}

// Path returns the credential file path.
func (a *Authenticator) Path() string {
	return a.path
}

// Authenticate returns true iff password hashes to the stored credential.
// It never returns an error: every failure is a mismatch.
func (a *Authenticator) Authenticate(password string) bool {
	hash, err := ReadCredential(a.path)
	if err != nil {
		log.Printf("PTSD:Warning: unable to read passwd file: %v", err)
		return false
	}

	err = bcrypt.CompareHashAndPassword(hash, []byte(password))
	switch {
	case err == nil:
		verbose("password accepted")
		return true
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		verbose("password mismatch")
	default:
		log.Printf("PTSD:Warning: passwd file %q contains an invalid hash: %v", a.path, err)
	}
	return false
}

// ReadCredential returns the hash stored at path: the first line of the
// file, at most maxCredential bytes, with surrounding white space removed.
func ReadCredential(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b, err := io.ReadAll(io.LimitReader(f, maxCredential))
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[:i]
	}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, fmt.Errorf("%q: %w", path, ErrNoCredential)
	}
	return b, nil
}

// Hash returns the bcrypt hash of password at the given cost.
// A cost of 0 means bcrypt.DefaultCost.
func Hash(password string, cost int) ([]byte, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return bcrypt.GenerateFromPassword([]byte(password), cost)
}

// WriteCredential replaces the credential at path with hash.
// The new file is written next to the old one and renamed into place,
// so a concurrent Authenticate sees either the old or the new hash.
func WriteCredential(path string, hash []byte) error {
	if _, err := bcrypt.Cost(hash); err != nil {
		return fmt.Errorf("refusing to store %q: %w", hash, err)
	}

	f, err := os.CreateTemp(filepath.Dir(path), ".passwd")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(append(hash, '\n')); err != nil {
		f.Close()
		return err
	}
	if err := f.Chmod(0o600); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
