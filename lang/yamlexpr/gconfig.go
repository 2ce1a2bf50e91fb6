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

// Package yamlexpr provides the facilities for loading an expression and its
// bindings from a yaml file.
package yamlexpr

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/purpleidea/smallstep/lang/ast"
	"github.com/purpleidea/smallstep/lang/interfaces"
	"github.com/purpleidea/smallstep/util/errwrap"

	"github.com/iancoleman/strcase"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"
)

const (
	// KeyLeft is the key holding the left operand of a binary node.
	KeyLeft = "left"

	// KeyRight is the key holding the right operand of a binary node.
	KeyRight = "right"
)

// keys maps each normalized node key to the kind it builds. The keys are
// compared after converting them to snake case, so `lessThan`, `LessThan` and
// `less_than` are all the same thing.
var keys = map[string]interfaces.Kind{
	"number":    interfaces.KindNumber,
	"bool":      interfaces.KindBool,
	"var":       interfaces.KindVariable,
	"variable":  interfaces.KindVariable,
	"add":       interfaces.KindAdd,
	"multiply":  interfaces.KindMultiply,
	"less_than": interfaces.KindLessThan,
	"lessthan":  interfaces.KindLessThan,
}

// Node is one decoded yaml value. It is either a scalar, which is kept as the
// raw text, or a mapping with string keys. Scalars are never resolved into
// bools or numbers here, so that names such as `y` and `n` stay names.
type Node struct {
	Scalar  *string
	Mapping map[string]*Node
}

// UnmarshalYAML fulfills the yaml.Unmarshaler interface. Anything that is not a
// mapping or a scalar is a type error.
func (obj *Node) UnmarshalYAML(unmarshal func(interface{}) error) error {
	mapping := make(map[string]*Node)
	if err := unmarshal(&mapping); err == nil {
		obj.Mapping = mapping
		return nil
	}
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	obj.Scalar = &s
	return nil
}

// String returns a short description of the node for error messages.
func (obj *Node) String() string {
	if obj == nil {
		return "null"
	}
	if obj.Scalar != nil {
		return fmt.Sprintf("%q", *obj.Scalar)
	}
	return fmt.Sprintf("mapping%v", sortedKeys(obj.Mapping))
}

// ExprConfig is the data structure that describes a single expression to run.
type ExprConfig struct {
	Comment string           `yaml:"comment"`
	Expr    *Node            `yaml:"expr"`
	Env     map[string]*Node `yaml:"env"`
}

// Parse parses a data stream into the expression config structure.
func (obj *ExprConfig) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, obj); err != nil {
		return errwrap.Wrapf(err, "could not unmarshal yaml")
	}
	if obj.Expr == nil {
		return fmt.Errorf("expr config: missing expr")
	}
	return nil
}

// NewExprFromConfig transforms an ExprConfig struct into a new expression tree
// and the env that it should be evaluated in. Every problem found is collected
// and returned together.
func (obj *ExprConfig) NewExprFromConfig() (interfaces.Expr, *interfaces.Env, error) {
	var reterr error

	expr, err := build("expr", obj.Expr)
	reterr = errwrap.Append(reterr, err)

	env := interfaces.EmptyEnv()
	for _, name := range sortedKeys(obj.Env) { // sorted, so errors are stable
		if strings.TrimSpace(name) == "" {
			reterr = errwrap.Append(reterr, fmt.Errorf("env: invalid variable name: %q", name))
			continue
		}
		x, err := build("env."+name, obj.Env[name])
		if err != nil {
			reterr = errwrap.Append(reterr, err)
			continue
		}
		env.Set(name, x)
	}

	if reterr != nil {
		return nil, nil, reterr
	}
	return expr, env, nil
}

// ParseFile reads and parses the expression config at path on fs.
func ParseFile(fs afero.Fs, path string) (*ExprConfig, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errwrap.Wrapf(err, "could not read `%s`", path)
	}
	config := &ExprConfig{}
	if err := config.Parse(data); err != nil {
		return nil, errwrap.Wrapf(err, "could not parse `%s`", path)
	}
	return config, nil
}

// Load reads the file at path on fs and builds the expression and env from it.
func Load(fs afero.Fs, path string) (interfaces.Expr, *interfaces.Env, error) {
	config, err := ParseFile(fs, path)
	if err != nil {
		return nil, nil, err
	}
	return config.NewExprFromConfig()
}

// build turns one decoded yaml node into an expression. The path is used to
// say where in the document a problem was found.
func build(path string, node *Node) (interfaces.Expr, error) {
	if node == nil || node.Mapping == nil {
		return nil, fmt.Errorf("%s: expected a mapping with one node key, got: %s", path, node)
	}
	if len(node.Mapping) != 1 {
		return nil, fmt.Errorf("%s: expected exactly one node key, got %d", path, len(node.Mapping))
	}

	var key string
	var value *Node
	for k, x := range node.Mapping { // only one
		key, value = k, x
	}

	kind, exists := keys[strcase.ToSnake(key)]
	if !exists {
		return nil, fmt.Errorf("%s: unknown node kind `%s`", path, key)
	}
	path = path + "." + key

	switch kind {
	case interfaces.KindNumber:
		s, err := scalar(path, "an integer", value)
		if err != nil {
			return nil, err
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: expected an integer, got: %q", path, s)
		}
		return ast.Number(i), nil

	case interfaces.KindBool:
		s, err := scalar(path, "a bool", value)
		if err != nil {
			return nil, err
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("%s: expected a bool, got: %q", path, s)
		}
		return ast.Bool(b), nil

	case interfaces.KindVariable:
		name, err := scalar(path, "a variable name", value)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%s: expected a variable name, got: %q", path, name)
		}
		return ast.Var(name), nil
	}

	// everything else is binary
	if value == nil || value.Mapping == nil {
		return nil, fmt.Errorf("%s: expected `%s` and `%s` operands, got: %s", path, KeyLeft, KeyRight, value)
	}
	operands := value.Mapping
	var reterr error
	for _, k := range sortedKeys(operands) {
		if k != KeyLeft && k != KeyRight {
			reterr = errwrap.Append(reterr, fmt.Errorf("%s: unexpected key: %s", path, k))
		}
	}
	operand := func(side string) interfaces.Expr {
		x, exists := operands[side]
		if !exists {
			reterr = errwrap.Append(reterr, fmt.Errorf("%s: missing `%s` operand", path, side))
			return nil
		}
		expr, err := build(path+"."+side, x)
		reterr = errwrap.Append(reterr, err)
		return expr
	}
	left := operand(KeyLeft)
	right := operand(KeyRight)
	if reterr != nil {
		return nil, reterr
	}

	switch kind {
	case interfaces.KindAdd:
		return ast.Add(left, right), nil
	case interfaces.KindMultiply:
		return ast.Multiply(left, right), nil
	case interfaces.KindLessThan:
		return ast.LessThan(left, right), nil
	}
	return nil, fmt.Errorf("%s: unhandled kind: %s", path, kind) // programming error
}

// scalar returns the raw text of a scalar node, or an error mentioning what
// was expected.
func scalar(path, expected string, node *Node) (string, error) {
	if node == nil || node.Scalar == nil {
		return "", fmt.Errorf("%s: expected %s, got: %s", path, expected, node)
	}
	return *node.Scalar, nil
}

// sortedKeys returns the keys of a node mapping in sorted order.
func sortedKeys(m map[string]*Node) []string {
	names := []string{}
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Marshal returns the yaml document which describes expr and env. It is the
// inverse of NewExprFromConfig. The env may be nil.
func Marshal(comment string, expr interfaces.Expr, env *interfaces.Env) ([]byte, error) {
	node, err := toNode(expr)
	if err != nil {
		return nil, err
	}
	doc := yaml.MapSlice{}
	if comment != "" {
		doc = append(doc, yaml.MapItem{Key: "comment", Value: comment})
	}
	doc = append(doc, yaml.MapItem{Key: "expr", Value: node})

	if !env.IsEmpty() {
		vars := yaml.MapSlice{}
		for _, name := range env.Names() {
			n, err := toNode(env.Variables[name])
			if err != nil {
				return nil, errwrap.Wrapf(err, "env: %s", name)
			}
			vars = append(vars, yaml.MapItem{Key: name, Value: n})
		}
		doc = append(doc, yaml.MapItem{Key: "env", Value: vars})
	}

	return yaml.Marshal(doc)
}

// toNode returns the yaml representation of one expression.
func toNode(expr interfaces.Expr) (yaml.MapSlice, error) {
	key := strcase.ToSnake(expr.Kind().String())
	switch x := expr.(type) {
	case *ast.ExprNumber:
		return yaml.MapSlice{{Key: key, Value: x.V}}, nil
	case *ast.ExprBool:
		return yaml.MapSlice{{Key: key, Value: x.V}}, nil
	case *ast.ExprVar:
		return yaml.MapSlice{{Key: "var", Value: x.Name}}, nil
	case interfaces.BinaryExpr:
		l, r := x.Operands()
		left, err := toNode(l)
		if err != nil {
			return nil, err
		}
		right, err := toNode(r)
		if err != nil {
			return nil, err
		}
		operands := yaml.MapSlice{
			{Key: KeyLeft, Value: left},
			{Key: KeyRight, Value: right},
		}
		return yaml.MapSlice{{Key: key, Value: operands}}, nil
	}
	return nil, fmt.Errorf("can't marshal expression of type %T", expr)
}
