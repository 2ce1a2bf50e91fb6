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

// Package machine contains the driver which evaluates an expression one small
// step at a time, and reports every intermediate state.
package machine

import (
	"fmt"
	"io"

	"github.com/purpleidea/smallstep/lang/ast"
	"github.com/purpleidea/smallstep/lang/interfaces"
	"github.com/purpleidea/smallstep/prometheus"
	"github.com/purpleidea/smallstep/util/errwrap"

	"github.com/davecgh/go-spew/spew"
)

// State is the state of the machine.
type State int

const (
	// StateRunning means the current expression is reducible.
	StateRunning State = iota

	// StateHalted means the current expression is in normal form. This is
	// the terminal state.
	StateHalted
)

// String returns a human readable name for the state.
func (obj State) String() string {
	switch obj {
	case StateRunning:
		return "running"
	case StateHalted:
		return "halted"
	}
	return fmt.Sprintf("State(%d)", int(obj))
}

// Machine holds a single current expression and reduces it until it can't be
// reduced any more. Populate the public fields and then run Init.
type Machine struct {
	// Expr is the initial expression to evaluate.
	Expr interfaces.Expr

	// Env holds the bindings used for variable lookups. It may be nil if
	// the expression doesn't contain any variables. It is only read.
	Env *interfaces.Env

	// Output is where the rendered state is written, one line per state.
	// If this is nil, the trace is discarded.
	Output io.Writer

	// Prometheus is an optional metrics instance which counts each step.
	Prometheus *prometheus.Prometheus

	Debug bool
	Logf  func(format string, v ...interface{})

	current interfaces.Expr
	steps   int
}

// Init validates the machine and loads the initial expression into the current
// slot. It must be called before anything else.
func (obj *Machine) Init() error {
	if obj.Expr == nil {
		return fmt.Errorf("the Expr is nil")
	}
	if obj.Logf == nil {
		obj.Logf = func(format string, v ...interface{}) {} // noop
	}
	if obj.Output == nil {
		obj.Output = io.Discard
	}
	obj.current = obj.Expr
	obj.steps = 0

	if obj.Debug {
		obj.Logf("expr: %s", spew.Sdump(obj.Expr))
		obj.Logf("env: %s", obj.Env)
		for _, name := range ast.FreeVars(obj.Expr) {
			if _, err := obj.Env.Lookup(name); err != nil {
				// not an error yet, it may never be reached
				obj.Logf("warning: var `%s` is not bound", name)
			}
		}
	}
	return nil
}

// State returns the state of the machine. It's running while the current
// expression is reducible. An uninitialized machine is halted.
func (obj *Machine) State() State {
	if obj.current != nil && obj.current.IsReducible() {
		return StateRunning
	}
	return StateHalted
}

// Current returns the current expression.
func (obj *Machine) Current() interfaces.Expr {
	return obj.current
}

// Steps returns the number of reductions performed so far.
func (obj *Machine) Steps() int {
	return obj.steps
}

// Step performs exactly one reduction on the current expression and replaces
// it with the result. If this errors, the current expression is left as is.
func (obj *Machine) Step() error {
	if obj.current == nil {
		return fmt.Errorf("the machine was not initialized")
	}
	expr := obj.current
	kind := expr.Kind().String()

	next, err := expr.Reduce(obj.Env)
	if obj.Prometheus != nil {
		obj.Prometheus.UpdateReductionTotal(kind, err != nil)
	}
	if err != nil {
		return errwrap.Wrapf(err, "step %d failed", obj.steps+1)
	}

	obj.current = next
	obj.steps++
	if obj.Debug {
		obj.Logf("step %d: %s => %s", obj.steps, expr, next)
	}
	return nil
}

// Run writes the current state, and then while the machine is running, steps
// once and writes the new state. Each state is written exactly once, so a
// successful run writes Steps()+1 lines. The first error stops the run and is
// returned. Nothing is retried.
func (obj *Machine) Run() (reterr error) {
	if obj.Prometheus != nil {
		defer func() {
			obj.Prometheus.UpdateRunTotal(reterr != nil)
		}()
	}

	if obj.current == nil {
		return fmt.Errorf("the machine was not initialized")
	}
	if err := obj.emit(); err != nil {
		return err
	}
	for obj.State() == StateRunning {
		if err := obj.Step(); err != nil {
			return err
		}
		if err := obj.emit(); err != nil {
			return err
		}
	}

	if obj.Debug {
		obj.Logf("halted after %d step(s) with: %s", obj.steps, obj.current)
	}
	return nil
}

// Trace runs the machine and returns each rendered state. On error, the states
// that were reached so far are returned along with it.
func (obj *Machine) Trace() ([]string, error) {
	output := obj.Output
	defer func() { obj.Output = output }()

	lines := &lineWriter{next: output}
	obj.Output = lines
	err := obj.Run()
	return lines.lines, err
}

// emit writes the current state to the output.
func (obj *Machine) emit() error {
	if _, err := fmt.Fprintf(obj.Output, "%s\n", obj.current); err != nil {
		return errwrap.Wrapf(err, "could not write output")
	}
	return nil
}

// lineWriter records each line written by emit, and passes it along.
type lineWriter struct {
	next  io.Writer
	lines []string
}

// Write satisfies the io.Writer interface. It expects one full line per call.
func (obj *lineWriter) Write(p []byte) (int, error) {
	s := string(p)
	if n := len(s); n > 0 && s[n-1] == '\n' {
		s = s[:n-1]
	}
	obj.lines = append(obj.lines, s)
	return obj.next.Write(p)
}
