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

package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"

	cliUtil "github.com/purpleidea/smallstep/cli/util"
	"github.com/purpleidea/smallstep/lang/ast"
	"github.com/purpleidea/smallstep/lang/interfaces"
	"github.com/purpleidea/smallstep/lang/machine"
	"github.com/purpleidea/smallstep/lang/yamlexpr"
	"github.com/purpleidea/smallstep/prometheus"
	"github.com/purpleidea/smallstep/util"
	"github.com/purpleidea/smallstep/util/errwrap"
)

// TraceArgs are the flags which control how a trace is displayed. They are
// shared by every subcommand which runs the machine.
type TraceArgs struct {
	Steps bool `arg:"--steps" help:"print the number of reductions at the end"`

	Number bool `arg:"--number" help:"prefix each state with its step number"`

	LogTrace bool `arg:"--log-trace" help:"also send each state to the log"`

	Prometheus bool `arg:"--prometheus" help:"start a prometheus instance and wait for a signal after the run"`

	PrometheusListen string `arg:"--prometheus-listen" help:"specify prometheus instance binding"`
}

// RunArgs is the CLI parsing structure and type of the parsed result. This
// particular one contains all the flags for the `run` subcommand.
type RunArgs struct {
	TraceArgs // embedded config (can't be a pointer) https://github.com/alexflint/go-arg/issues/240

	Input string `arg:"positional,required" help:"yaml file describing the expression"`
}

// Run executes the `run` subcommand. It loads the expression and env from the
// input file and evaluates it. It always returns true, since it activated.
func (obj *RunArgs) Run(ctx context.Context, data *cliUtil.Data) (bool, error) {
	expr, env, err := yamlexpr.Load(data.Fs, obj.Input)
	if err != nil {
		return true, errwrap.Wrapf(err, "could not load input")
	}
	return true, evaluate(ctx, data, &obj.TraceArgs, expr, env)
}

// DemoArgs is the CLI parsing structure and type of the parsed result. This
// particular one contains all the flags for the `demo` subcommand.
type DemoArgs struct {
	TraceArgs // embedded config (can't be a pointer) https://github.com/alexflint/go-arg/issues/240

	Yaml bool `arg:"--yaml" help:"print the example as a yaml document instead of running it"`
}

// Run executes the `demo` subcommand. It evaluates the built-in example. It
// always returns true, since it activated.
func (obj *DemoArgs) Run(ctx context.Context, data *cliUtil.Data) (bool, error) {
	expr := DemoExpr()
	if obj.Yaml {
		b, err := yamlexpr.Marshal("built-in example", expr, nil)
		if err != nil {
			return true, err
		}
		_, err = data.Stdout.Write(b)
		return true, err
	}
	return true, evaluate(ctx, data, &obj.TraceArgs, expr, nil)
}

// DemoExpr returns the built-in example expression: `1 * 2 + 3 * 4`.
func DemoExpr() interfaces.Expr {
	return ast.Add(
		ast.Multiply(ast.Number(1), ast.Number(2)),
		ast.Multiply(ast.Number(3), ast.Number(4)),
	)
}

// evaluate builds a machine for expr and env, runs it, and writes the trace.
func evaluate(ctx context.Context, data *cliUtil.Data, args *TraceArgs, expr interfaces.Expr, env *interfaces.Env) error {
	Logf := func(format string, v ...interface{}) {
		data.Flags.Logf("main: "+format, v...)
	}
	cliUtil.Hello(data.Program, data.Version, data.Flags) // say hello!

	var prom *prometheus.Prometheus
	if args.Prometheus {
		prom = &prometheus.Prometheus{
			Listen: args.PrometheusListen,
			Logf: func(format string, v ...interface{}) {
				Logf("prometheus: "+format, v...)
			},
		}
		if err := prom.Init(); err != nil {
			return errwrap.Wrapf(err, "can't initialize prometheus instance")
		}
		Logf("prometheus: starting instance on %s", prom.Listen)
		if err := prom.Start(); err != nil {
			return errwrap.Wrapf(err, "can't start prometheus instance")
		}
		defer func() {
			if err := prom.Stop(); err != nil {
				Logf("prometheus: stop error: %+v", err)
			}
		}()
	}

	// with --number we need to see every line before we can pad them
	buffer := &bytes.Buffer{}
	var output io.Writer = data.Stdout
	if args.Number {
		output = buffer
	}
	if args.LogTrace {
		output = io.MultiWriter(output, &util.LogWriter{
			Prefix: "trace: ",
			Logf:   data.Flags.Logf,
		})
	}

	m := &machine.Machine{
		Expr:       expr,
		Env:        env,
		Output:     output,
		Prometheus: prom,

		Debug: data.Flags.Debug,
		Logf: func(format string, v ...interface{}) {
			data.Flags.Logf("machine: "+format, v...)
		},
	}
	if err := m.Init(); err != nil {
		return errwrap.Wrapf(err, "could not init the machine")
	}
	lines, err := m.Trace()

	if args.Number && len(lines) > 0 {
		fmt.Fprintf(data.Stdout, "%s\n", util.NumberedLines(lines))
	}
	if err != nil {
		return errwrap.Wrapf(err, "evaluation failed")
	}
	if args.Steps {
		fmt.Fprintf(data.Stdout, "steps: %d\n", m.Steps())
	}

	if prom != nil {
		Logf("waiting for a signal so the metrics can be scraped...")
		<-ctx.Done()
		Logf("interrupted")
	}
	return nil
}
