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
)

// Kind identifies which variant of the expression sum type a node is. The set
// of kinds is closed: every Expr in the language is exactly one of these.
type Kind int

// Each Kind represents one variant of Expr.
const (
	KindNil Kind = iota // invalid, used for the zero value
	KindNumber
	KindBool
	KindVariable
	KindAdd
	KindMultiply
	KindLessThan
)

// String returns the variant name of this kind. These names are used in error
// messages, metrics labels and the yaml expression format.
func (obj Kind) String() string {
	switch obj {
	case KindNumber:
		return "Number"
	case KindBool:
		return "Bool"
	case KindVariable:
		return "Variable"
	case KindAdd:
		return "Add"
	case KindMultiply:
		return "Multiply"
	case KindLessThan:
		return "LessThan"
	}
	return fmt.Sprintf("Kind(%d)", int(obj))
}

// Kinds returns the list of all valid kinds in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindNumber,
		KindBool,
		KindVariable,
		KindAdd,
		KindMultiply,
		KindLessThan,
	}
}

// Expr represents an expression in the language. Expressions are immutable
// once built. Reducing one produces a brand new node, which may share any of
// the untouched children of the old one by pointer.
type Expr interface {
	// String returns the source-like rendering of this expression. It is
	// used for tracing only, and no parentheses are ever emitted.
	fmt.Stringer

	// Kind returns which variant this node is.
	Kind() Kind

	// IsReducible returns true if this kind of node can take a step. This
	// is a property of the node kind, and not of the current children.
	IsReducible() bool

	// Reduce performs exactly one small step of evaluation, and returns
	// the new expression. It must only be called on nodes where
	// IsReducible returns true, otherwise ErrReduceOnIrreducible is
	// returned. Variables are resolved in the env which may be nil if the
	// expression has none.
	Reduce(env *Env) (Expr, error)
}

// BinaryExpr is implemented by the expressions that hold a left and right
// operand. It is mostly useful for walking a tree without a type switch.
type BinaryExpr interface {
	Expr

	// Operands returns the left and right children of this node.
	Operands() (Expr, Expr)
}
