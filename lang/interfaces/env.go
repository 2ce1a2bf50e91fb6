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

package interfaces

import (
	"fmt"
	"sort"
	"strings"

	"github.com/purpleidea/smallstep/util/errwrap"
)

// Env is the binding table used to resolve variable names to expressions. It
// is built by the caller before evaluation starts, and is only ever read by the
// evaluator. There is no assignment in the language, so nothing in here gets
// mutated while reducing.
type Env struct {
	Variables map[string]Expr
}

// EmptyEnv returns the zero, empty value for the env, with the internal map
// initialized appropriately.
func EmptyEnv() *Env {
	return &Env{
		Variables: make(map[string]Expr),
	}
}

// InitEnv initializes any uninitialized part of the struct. It is safe to use
// on envs with existing data.
func (obj *Env) InitEnv() {
	if obj.Variables == nil {
		obj.Variables = make(map[string]Expr)
	}
}

// Set binds name to expr, replacing any previous binding for that name. This is
// meant for populating the env before evaluation begins.
func (obj *Env) Set(name string, expr Expr) {
	obj.InitEnv() // safety
	obj.Variables[name] = expr
}

// Lookup returns the expression bound to name. A nil env has no bindings. If
// the name is missing, this returns an error that wraps ErrUnboundVariable.
func (obj *Env) Lookup(name string) (Expr, error) {
	if obj == nil {
		return nil, errwrap.Wrapf(ErrUnboundVariable, "var `%s` does not exist in an empty env", name)
	}
	expr, exists := obj.Variables[name]
	if !exists || expr == nil {
		return nil, errwrap.Wrapf(ErrUnboundVariable, "var `%s` does not exist in env", name)
	}
	return expr, nil
}

// Names returns the sorted list of bound variable names.
func (obj *Env) Names() []string {
	if obj == nil {
		return []string{}
	}
	names := []string{}
	for name := range obj.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Copy makes a copy of the Env struct. This ensures that if the internal map
// is changed, it doesn't affect other copies of the Env. It does *not* copy the
// Expr pointers contained within, since expressions are immutable and safe to
// share.
func (obj *Env) Copy() *Env {
	variables := make(map[string]Expr)
	if obj != nil { // allow copying nil envs
		for k, v := range obj.Variables { // copy
			variables[k] = v // we don't copy the expr's!
		}
	}
	return &Env{
		Variables: variables,
	}
}

// Merge takes an existing env and merges an env on top of it. If any elements
// had to be overwritten, then the error result will contain some info. Even if
// this errors, the env will have been merged successfully. The merge runs in a
// deterministic order so that errors will be consistent. Use Copy if you don't
// want to change this destructively.
func (obj *Env) Merge(env *Env) error {
	var err error
	obj.InitEnv() // safety

	for _, name := range env.Names() {
		if _, exists := obj.Variables[name]; exists {
			e := fmt.Errorf("variable `%s` was overwritten", name)
			err = errwrap.Append(err, e)
		}
		obj.Variables[name] = env.Variables[name]
	}

	return err
}

// IsEmpty returns whether or not an env is empty or not.
func (obj *Env) IsEmpty() bool {
	if obj == nil {
		return true
	}
	return len(obj.Variables) == 0
}

// String returns a deterministic representation of the bindings, such as
// `{x: 3, y: 4}`.
func (obj *Env) String() string {
	s := []string{}
	for _, name := range obj.Names() {
		s = append(s, fmt.Sprintf("%s: %s", name, obj.Variables[name]))
	}
	return "{" + strings.Join(s, ", ") + "}"
}
