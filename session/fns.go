// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"errors"
	"strings"
)

// MaxArgs is the most argv entries an exec request may carry.
const MaxArgs = 32

var (
	// ErrMissingTarget means an exec request named a device but no program.
	ErrMissingTarget = errors.New("no file specified")
	// ErrTooManyArguments means an exec request had more than MaxArgs argv entries.
	ErrTooManyArguments = errors.New("too many arguments in command")
)

// ExecRequest is a parsed exec command.
type ExecRequest struct {
	Device string
	Argv   []string
}

func verbose(f string, a ...interface{}) {
	v("session:"+f, a...)
}

// tokens splits s on runs of spaces. Only the space character separates
// tokens: there is no quoting, and tabs are part of a token.
func tokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ' ' })
}

// ParseExec parses the argument of an exec command:
//
//	device prog [args...]
//
// An argument containing a space can not be expressed. A request with
// more than MaxArgs argv entries is rejected as a whole, not truncated.
func ParseExec(arg string) (*ExecRequest, error) {
	t := tokens(arg)
	if len(t) < 2 {
		return nil, ErrMissingTarget
	}
	if len(t)-1 > MaxArgs {
		return nil, ErrTooManyArguments
	}
	return &ExecRequest{Device: t[0], Argv: t[1:]}, nil
}

// split splits a line, less its newline, into a verb and an argument.
// Leading spaces are skipped, the verb ends at the next space, and the
// argument is everything after that one space. hasArg is false when
// nothing follows the verb.
func split(line string) (verb, arg string, hasArg bool) {
	line = strings.TrimLeft(line, " ")
	verb, arg, _ = strings.Cut(line, " ")
	return verb, arg, len(arg) > 0
}
