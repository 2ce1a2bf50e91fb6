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

// Error is a constant error type that implements error.
type Error string

// Error fulfills the error interface of this type.
func (e Error) Error() string { return string(e) }

const (
	// ErrReduceOnIrreducible is returned when Reduce is called on a node
	// which can't take a step, such as a Number or a Bool. This always
	// indicates a bug in whatever is driving the evaluation.
	ErrReduceOnIrreducible = Error("reduce on irreducible expression")

	// ErrUnboundVariable is returned when a variable is reduced and its
	// name is not present in the env. The program has a free variable.
	ErrUnboundVariable = Error("unbound variable")

	// ErrIllTypedOperand is returned when both operands of a binary node
	// are in normal form, but at least one of them isn't a Number. There
	// is no type checker, so this is only ever found while evaluating.
	ErrIllTypedOperand = Error("ill-typed operand")
)
