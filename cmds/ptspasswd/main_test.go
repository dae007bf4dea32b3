// Copyright 2018-2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/u-root/ptsd/auth"
	"golang.org/x/crypto/bcrypt"
)

func TestReadLine(t *testing.T) {
	var tests = []struct {
		in  string
		out string
	}{
		{in: "secret\n", out: "secret"},
		{in: "secret\r\n", out: "secret"},
		{in: "secret", out: "secret"},
		{in: "pass word\nnext\n", out: "pass word"},
		{in: "", out: ""},
	}
	for _, tt := range tests {
		got, err := readLine(strings.NewReader(tt.in))
		if err != nil || got != tt.out {
			t.Errorf("readLine(%q): (%q, %v) != (%q, nil)", tt.in, got, err, tt.out)
		}
	}
}

func TestSet(t *testing.T) {
	d := t.TempDir()
	p := filepath.Join(d, "passwd")

	if err := set(p, "", bcrypt.MinCost, false); !errors.Is(err, errEmpty) {
		t.Fatalf("set empty: %v != %v", err, errEmpty)
	}
	if err := set(p, "secret", bcrypt.MinCost, false); err != nil {
		t.Fatalf("set: %v != nil", err)
	}
	a := auth.New(p)
	if !a.Authenticate("secret") {
		t.Errorf("Authenticate(secret) after set: false != true")
	}
	if err := set(p, "", bcrypt.MinCost, true); err != nil {
		t.Fatalf("set empty with allowEmpty: %v != nil", err)
	}
	if !a.Authenticate("") || a.Authenticate("secret") {
		t.Errorf("after setting the empty password: only the empty password should authenticate")
	}
	if err := set(p, "x", bcrypt.MaxCost+1, false); err == nil {
		t.Errorf("set with cost %d: nil != an error", bcrypt.MaxCost+1)
	}
}
