// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// ptspasswd sets the ptsd password.
//
// Synopsis:
//
//	ptspasswd [-passwd file] [-cost n] [-allow-empty]
//
// The password is read twice from the terminal or, if stdin is not a
// terminal, once as the first line of stdin. Its bcrypt hash replaces
// the contents of the password file. ptsd reads the file on every auth,
// so there is no need to restart it.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/u-root/ptsd/auth"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

var (
	passwd     = flag.String("passwd", auth.DefaultPath, "password file to write")
	cost       = flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	allowEmpty = flag.Bool("allow-empty", false, "allow an empty password")

	errMismatch = errors.New("passwords do not match")
	errEmpty    = errors.New("empty password; use -allow-empty if you mean it")
)

// prompt reads the password twice from the terminal fd.
func prompt(fd int) (string, error) {
	var pw [2]string
	for i, p := range []string{"New ptsd password: ", "Again: "} {
		fmt.Fprint(os.Stderr, p)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		pw[i] = string(b)
	}
	if pw[0] != pw[1] {
		return "", errMismatch
	}
	return pw[0], nil
}

// readLine reads the password as the first line of r.
func readLine(r io.Reader) (string, error) {
	l, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(l, "\r\n"), nil
}

func set(path, pw string, cost int, allowEmpty bool) error {
	if len(pw) == 0 && !allowEmpty {
		return errEmpty
	}
	h, err := auth.Hash(pw, cost)
	if err != nil {
		return err
	}
	return auth.WriteCredential(path, h)
}

func main() {
	flag.Parse()
	if flag.NArg() != 0 {
		log.Fatalf("usage: ptspasswd [-passwd file] [-cost n] [-allow-empty]")
	}
	var (
		pw  string
		err error
	)
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		pw, err = prompt(fd)
	} else {
		pw, err = readLine(os.Stdin)
	}
	if err != nil {
		log.Fatal(err)
	}
	if err := set(*passwd, pw, *cost, *allowEmpty); err != nil {
		log.Fatal(err)
	}
	log.Printf("PTSD:password in %s changed", *passwd)
}
