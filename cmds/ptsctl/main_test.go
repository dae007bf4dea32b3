// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/u-root/ptsd/auth"
	"github.com/u-root/ptsd/client"
	"github.com/u-root/ptsd/server"
	"golang.org/x/crypto/bcrypt"
)

type nop struct{}

func (nop) Launch(dir, device string, argv []string) (int, error) {
	return 99, nil
}

func TestUsage(t *testing.T) {
	for _, args := range [][]string{
		nil,
		{"frob"},
		{"auth", "extra"},
		{"exec"},
		{"exec", "/dev/pts/0"},
		{"run"},
	} {
		if err := ptsctl(args); !errors.Is(err, errUsage) {
			t.Errorf("ptsctl(%q): %v != %v", args, err, errUsage)
		}
	}
}

func TestPtsctl(t *testing.T) {
	h, err := auth.Hash("secret", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("auth.Hash: %v != nil", err)
	}
	p := filepath.Join(t.TempDir(), "passwd")
	if err := auth.WriteCredential(p, h); err != nil {
		t.Fatalf("auth.WriteCredential: %v != nil", err)
	}
	s, err := server.New(server.WithPasswd(p), server.WithLauncher(nop{}))
	if err != nil {
		t.Fatalf("server.New: %v != nil", err)
	}
	ln, err := server.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("server.Listen: %v != nil", err)
	}
	go s.Serve(ln) //nolint
	defer s.Close()
	*addr = ln.Addr().String()

	t.Setenv("PTSD_PASSWORD", "secret")
	if err := ptsctl([]string{"auth"}); err != nil {
		t.Errorf("ptsctl auth: %v != nil", err)
	}
	if err := ptsctl([]string{"exec", "/dev/pts/0", "sh"}); err != nil {
		t.Errorf("ptsctl exec: %v != nil", err)
	}

	*cd = filepath.Join(t.TempDir(), "nope")
	var re *client.ReplyError
	if err := ptsctl([]string{"exec", "/dev/pts/0", "sh"}); !errors.As(err, &re) || re.Cmd != "cd" {
		t.Errorf("ptsctl -cd missing exec: %v, want a cd ReplyError", err)
	}
	*cd = ""

	t.Setenv("PTSD_PASSWORD", "wrong")
	if err := ptsctl([]string{"auth"}); !errors.As(err, &re) || re.Msg != "Auth failed" {
		t.Errorf("ptsctl auth with wrong password: %v, want Auth failed", err)
	}
}
