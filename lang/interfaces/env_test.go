// Smallstep
// Copyright (C) James Shubin and the project contributors
// Written by James Shubin <james@shubin.ca> and the project contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

//go:build !root

package interfaces

import (
	"errors"
	"testing"

	"github.com/purpleidea/smallstep/util/errwrap"
)

// num is a tiny irreducible Expr so these tests don't need to import the ast.
type num int64

func (obj num) String() string                { return "n" }
func (obj num) Kind() Kind                    { return KindNumber }
func (obj num) IsReducible() bool             { return false }
func (obj num) Reduce(env *Env) (Expr, error) { return nil, ErrReduceOnIrreducible }

func TestEnvLookup0(t *testing.T) {
	env := EmptyEnv()
	env.Set("x", num(3))

	expr, err := env.Lookup("x")
	if err != nil {
		t.Errorf("unexpected error: %+v", err)
		return
	}
	if expr != num(3) {
		t.Errorf("unexpected expr: %v", expr)
	}

	if _, err := env.Lookup("z"); !errors.Is(err, ErrUnboundVariable) {
		t.Errorf("expected unbound variable error, got: %+v", err)
	}
}

func TestEnvLookupNil(t *testing.T) {
	var env *Env
	_, err := env.Lookup("x")
	if !errors.Is(err, ErrUnboundVariable) {
		t.Errorf("expected unbound variable error, got: %+v", err)
	}
	if !env.IsEmpty() {
		t.Errorf("nil env should be empty")
	}
}

func TestEnvSetNilMap(t *testing.T) {
	env := &Env{} // uninitialized
	env.Set("a", num(1))
	if env.IsEmpty() {
		t.Errorf("env should not be empty")
	}
}

func TestEnvCopy0(t *testing.T) {
	env := EmptyEnv()
	env.Set("x", num(1))

	cp := env.Copy()
	cp.Set("y", num(2))

	if _, exists := env.Variables["y"]; exists {
		t.Errorf("copy leaked into the original")
	}
	if cp.Variables["x"] != env.Variables["x"] {
		t.Errorf("copy should share the bound expressions")
	}

	var nilEnv *Env
	if c := nilEnv.Copy(); c == nil || !c.IsEmpty() {
		t.Errorf("copy of nil env should be an empty env")
	}
}

func TestEnvMerge0(t *testing.T) {
	env := EmptyEnv()
	env.Set("a", num(1))
	env.Set("b", num(2))

	other := EmptyEnv()
	other.Set("b", num(20))
	other.Set("c", num(30))
	other.Set("a", num(10))

	err := env.Merge(other)
	if err == nil {
		t.Errorf("expected an overwrite error")
		return
	}
	if n := errwrap.Count(err); n != 2 {
		t.Errorf("expected 2 overwrite errors, got %d: %+v", n, err)
	}
	if env.Variables["a"] != num(10) || env.Variables["c"] != num(30) {
		t.Errorf("merge did not apply: %s", env)
	}
}

func TestEnvString0(t *testing.T) {
	env := EmptyEnv()
	env.Set("y", num(4))
	env.Set("x", num(3))
	if s := env.String(); s != "{x: n, y: n}" {
		t.Errorf("unexpected string: %s", s)
	}
	if s := EmptyEnv().String(); s != "{}" {
		t.Errorf("unexpected string: %s", s)
	}
}

func TestKindString0(t *testing.T) {
	exp := []string{"Number", "Bool", "Variable", "Add", "Multiply", "LessThan"}
	for i, kind := range Kinds() {
		if s := kind.String(); s != exp[i] {
			t.Errorf("kind %d: expected %s, got %s", i, exp[i], s)
		}
	}
	if s := KindNil.String(); s != "Kind(0)" {
		t.Errorf("unexpected nil kind string: %s", s)
	}
}
