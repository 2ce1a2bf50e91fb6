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

package ast

import (
	"fmt"

	"github.com/purpleidea/smallstep/lang/interfaces"
	"github.com/purpleidea/smallstep/util/errwrap"
)

// Number builds a new number expression.
func Number(v int64) *ExprNumber { return &ExprNumber{V: v} }

// Bool builds a new bool expression.
func Bool(b bool) *ExprBool { return &ExprBool{V: b} }

// Var builds a new variable expression.
func Var(name string) *ExprVar { return &ExprVar{Name: name} }

// Add builds a new addition expression.
func Add(left, right interfaces.Expr) *ExprAdd {
	return &ExprAdd{Left: left, Right: right}
}

// Multiply builds a new multiplication expression.
func Multiply(left, right interfaces.Expr) *ExprMultiply {
	return &ExprMultiply{Left: left, Right: right}
}

// LessThan builds a new comparison expression.
func LessThan(left, right interfaces.Expr) *ExprLessThan {
	return &ExprLessThan{Left: left, Right: right}
}

// irreducible returns the error for a Reduce call on a value node.
func irreducible(expr interfaces.Expr) error {
	return errwrap.Wrapf(interfaces.ErrReduceOnIrreducible, "%s `%s` can't reduce", expr.Kind(), expr)
}

// reduceBinary is the leftmost-innermost step shared by all the binary
// operators. The left operand always gets priority. Only once neither operand
// can step, are both required to be numbers, and then apply is called on them.
// The untouched operand is reused by pointer in the rebuilt node.
func reduceBinary(obj interfaces.BinaryExpr, env *interfaces.Env, rebuild func(l, r interfaces.Expr) interfaces.Expr, apply func(a, b int64) interfaces.Expr) (interfaces.Expr, error) {
	left, right := obj.Operands()

	if left.IsReducible() {
		l, err := left.Reduce(env)
		if err != nil {
			return nil, errwrap.Wrapf(err, "left operand of %s", obj.Kind())
		}
		return rebuild(l, right), nil
	}

	if right.IsReducible() {
		r, err := right.Reduce(env)
		if err != nil {
			return nil, errwrap.Wrapf(err, "right operand of %s", obj.Kind())
		}
		return rebuild(left, r), nil
	}

	a, ok := left.(*ExprNumber)
	if !ok {
		return nil, illTyped(obj, "left", left)
	}
	b, ok := right.(*ExprNumber)
	if !ok {
		return nil, illTyped(obj, "right", right)
	}
	return apply(a.V, b.V), nil
}

// illTyped returns the error for an operand which settled on a non-number.
func illTyped(obj interfaces.Expr, side string, operand interfaces.Expr) error {
	msg := fmt.Sprintf("%s operand of %s is %s `%s`, expected %s", side, obj.Kind(), operand.Kind(), operand, interfaces.KindNumber)
	return errwrap.Wrapf(interfaces.ErrIllTypedOperand, "%s", msg)
}

// Walk calls fn on expr and then on each of its children, depth first and left
// to right. If fn returns an error, the walk stops and that error is returned.
func Walk(expr interfaces.Expr, fn func(interfaces.Expr) error) error {
	if err := fn(expr); err != nil {
		return err
	}
	bin, ok := expr.(interfaces.BinaryExpr)
	if !ok {
		return nil
	}
	left, right := bin.Operands()
	if err := Walk(left, fn); err != nil {
		return err
	}
	return Walk(right, fn)
}

// FreeVars returns the list of variable names used in expr, in the order they
// are first seen, without duplicates.
func FreeVars(expr interfaces.Expr) []string {
	names := []string{}
	seen := make(map[string]struct{})
	Walk(expr, func(x interfaces.Expr) error {
		v, ok := x.(*ExprVar)
		if !ok {
			return nil
		}
		if _, exists := seen[v.Name]; !exists {
			seen[v.Name] = struct{}{}
			names = append(names, v.Name)
		}
		return nil
	})
	return names
}
