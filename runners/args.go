// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package runners

import (
	"fmt"
	"reflect"
	"slices"
)

// Args holds the positional and named arguments of a test.
// Any slice-valued argument whose length equals the run count is zipped:
// run i receives its i-th element. Every other argument is passed unchanged to every run.
// Byte slices are treated as scalar values.
type Args struct {
	positional []any
	named      []NamedArg
}

// NamedArg is a single named test argument.
type NamedArg struct {
	Name  string
	Value any
}

// Positional returns Args holding the given positional values.
func Positional(values ...any) Args {
	return Args{positional: slices.Clone(values)}
}

// Named returns Args holding a single named value.
func Named(name string, value any) Args {
	return Args{}.With(name, value)
}

// With returns a copy of the arguments with the named value set.
// Setting an existing name replaces its value but keeps its position.
func (a Args) With(name string, value any) Args {
	named := slices.Clone(a.named)
	if i := slices.IndexFunc(named, func(arg NamedArg) bool { return arg.Name == name }); i >= 0 {
		named[i].Value = value
	} else {
		named = append(named, NamedArg{Name: name, Value: value})
	}
	return Args{positional: slices.Clone(a.positional), named: named}
}

// Len returns the number of positional arguments.
func (a Args) Len() int {
	return len(a.positional)
}

// At returns the i-th positional argument.
func (a Args) At(i int) (any, bool) {
	if i < 0 || i >= len(a.positional) {
		return nil, false
	}
	return a.positional[i], true
}

// Lookup returns the value of the named argument.
func (a Args) Lookup(name string) (any, bool) {
	for _, arg := range a.named {
		if arg.Name == name {
			return arg.Value, true
		}
	}
	return nil, false
}

// Names returns the argument names in declaration order.
func (a Args) Names() []string {
	names := make([]string, 0, len(a.named))
	for _, arg := range a.named {
		names = append(names, arg.Name)
	}
	return names
}

// runCount resolves the number of runs. An explicit count wins; otherwise the length
// of the first list-valued argument is used, scanning positional arguments before named ones.
func (a Args) runCount(explicit int) (int, error) {
	if explicit != DeriveRunCount {
		return explicit, nil
	}

	for i, value := range a.positional {
		if list, ok := asList(value); ok {
			return nonEmpty(list, fmt.Sprintf("positional argument %d", i))
		}
	}
	for _, arg := range a.named {
		if list, ok := asList(arg.Value); ok {
			return nonEmpty(list, fmt.Sprintf("argument %q", arg.Name))
		}
	}
	return 0, fmt.Errorf("%w: no list-valued argument; set the run count explicitly", ErrRunCountUndetermined)
}

// forRun returns the arguments of run index out of runs.
func (a Args) forRun(index, runs int) Args {
	run := Args{
		positional: make([]any, len(a.positional)),
		named:      make([]NamedArg, len(a.named)),
	}
	for i, value := range a.positional {
		run.positional[i] = element(value, index, runs)
	}
	for i, arg := range a.named {
		run.named[i] = NamedArg{Name: arg.Name, Value: element(arg.Value, index, runs)}
	}
	return run
}

func element(value any, index, runs int) any {
	if list, ok := asList(value); ok && list.Len() == runs {
		return list.Index(index).Interface()
	}
	return value
}

func asList(value any) (reflect.Value, bool) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return rv, false
	}
	return rv, true
}

func nonEmpty(list reflect.Value, source string) (int, error) {
	if list.Len() == 0 {
		return 0, fmt.Errorf("%w: %s is an empty list", ErrRunCountUndetermined, source)
	}
	return list.Len(), nil
}
