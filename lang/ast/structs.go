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

// Package ast contains the structs implementing the expressions of the
// language, along with the small-step reduction rules for each of them.
package ast

import (
	"fmt"
	"strconv"

	"github.com/purpleidea/smallstep/lang/interfaces"
	"github.com/purpleidea/smallstep/util/errwrap"
)

// ExprNumber is a representation of a signed integer. It is a value.
type ExprNumber struct {
	V int64
}

// String returns the decimal digits of this number.
func (obj *ExprNumber) String() string { return strconv.FormatInt(obj.V, 10) }

// Kind returns KindNumber.
func (obj *ExprNumber) Kind() interfaces.Kind { return interfaces.KindNumber }

// IsReducible always returns false, since a number is already a value.
func (obj *ExprNumber) IsReducible() bool { return false }

// Reduce always errors, since there is no step that a number can take.
func (obj *ExprNumber) Reduce(*interfaces.Env) (interfaces.Expr, error) {
	return nil, irreducible(obj)
}

// ExprBool is a representation of a boolean. It is a value.
type ExprBool struct {
	V bool
}

// String returns either `true` or `false`.
func (obj *ExprBool) String() string { return strconv.FormatBool(obj.V) }

// Kind returns KindBool.
func (obj *ExprBool) Kind() interfaces.Kind { return interfaces.KindBool }

// IsReducible always returns false, since a bool is already a value.
func (obj *ExprBool) IsReducible() bool { return false }

// Reduce always errors, since there is no step that a bool can take.
func (obj *ExprBool) Reduce(*interfaces.Env) (interfaces.Expr, error) {
	return nil, irreducible(obj)
}

// ExprVar is a representation of a variable lookup. It reduces to the
// expression that the variable is bound to in the env.
type ExprVar struct {
	Name string // name of the variable
}

// String returns the name of the variable.
func (obj *ExprVar) String() string { return obj.Name }

// Kind returns KindVariable.
func (obj *ExprVar) Kind() interfaces.Kind { return interfaces.KindVariable }

// IsReducible always returns true. Whether or not the name is actually bound
// is only discovered when Reduce runs.
func (obj *ExprVar) IsReducible() bool { return true }

// Reduce substitutes the bound expression in one full step. The bound value is
// returned as is, even if it is itself reducible.
func (obj *ExprVar) Reduce(env *interfaces.Env) (interfaces.Expr, error) {
	expr, err := env.Lookup(obj.Name)
	if err != nil {
		return nil, errwrap.Wrapf(err, "could not reduce %s", obj.Kind())
	}
	return expr, nil
}

// ExprAdd is the addition of two integer expressions.
type ExprAdd struct {
	Left  interfaces.Expr
	Right interfaces.Expr
}

// String returns `<left> + <right>` without any parentheses.
func (obj *ExprAdd) String() string { return fmt.Sprintf("%s + %s", obj.Left, obj.Right) }

// Kind returns KindAdd.
func (obj *ExprAdd) Kind() interfaces.Kind { return interfaces.KindAdd }

// IsReducible always returns true.
func (obj *ExprAdd) IsReducible() bool { return true }

// Operands returns the left and right children.
func (obj *ExprAdd) Operands() (interfaces.Expr, interfaces.Expr) { return obj.Left, obj.Right }

// Reduce takes one step on the leftmost reducible operand, or once both are
// numbers, returns their sum.
func (obj *ExprAdd) Reduce(env *interfaces.Env) (interfaces.Expr, error) {
	return reduceBinary(obj, env, func(l, r interfaces.Expr) interfaces.Expr {
		return &ExprAdd{Left: l, Right: r}
	}, func(a, b int64) interfaces.Expr {
		return &ExprNumber{V: a + b}
	})
}

// ExprMultiply is the product of two integer expressions.
type ExprMultiply struct {
	Left  interfaces.Expr
	Right interfaces.Expr
}

// String returns `<left> * <right>` without any parentheses.
func (obj *ExprMultiply) String() string { return fmt.Sprintf("%s * %s", obj.Left, obj.Right) }

// Kind returns KindMultiply.
func (obj *ExprMultiply) Kind() interfaces.Kind { return interfaces.KindMultiply }

// IsReducible always returns true.
func (obj *ExprMultiply) IsReducible() bool { return true }

// Operands returns the left and right children.
func (obj *ExprMultiply) Operands() (interfaces.Expr, interfaces.Expr) {
	return obj.Left, obj.Right
}

// Reduce takes one step on the leftmost reducible operand, or once both are
// numbers, returns their product.
func (obj *ExprMultiply) Reduce(env *interfaces.Env) (interfaces.Expr, error) {
	return reduceBinary(obj, env, func(l, r interfaces.Expr) interfaces.Expr {
		return &ExprMultiply{Left: l, Right: r}
	}, func(a, b int64) interfaces.Expr {
		return &ExprNumber{V: a * b}
	})
}

// ExprLessThan compares two integer expressions and produces a bool.
type ExprLessThan struct {
	Left  interfaces.Expr
	Right interfaces.Expr
}

// String returns `<left> < <right>` without any parentheses.
func (obj *ExprLessThan) String() string { return fmt.Sprintf("%s < %s", obj.Left, obj.Right) }

// Kind returns KindLessThan.
func (obj *ExprLessThan) Kind() interfaces.Kind { return interfaces.KindLessThan }

// IsReducible always returns true.
func (obj *ExprLessThan) IsReducible() bool { return true }

// Operands returns the left and right children.
func (obj *ExprLessThan) Operands() (interfaces.Expr, interfaces.Expr) {
	return obj.Left, obj.Right
}

// Reduce takes one step on the leftmost reducible operand, or once both are
// numbers, returns whether the left one is smaller.
func (obj *ExprLessThan) Reduce(env *interfaces.Env) (interfaces.Expr, error) {
	return reduceBinary(obj, env, func(l, r interfaces.Expr) interfaces.Expr {
		return &ExprLessThan{Left: l, Right: r}
	}, func(a, b int64) interfaces.Expr {
		return &ExprBool{V: a < b}
	})
}
