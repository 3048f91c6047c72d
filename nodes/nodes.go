package nodes

/*
   Copyright 2018 Bruno Moura <brunotm@gmail.com>

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package nodes provides small, general-purpose Node constructors used to
// assemble pipelines and to exercise the execution engine in tests: Unpack
// (a source that fans a Go slice out into the stream), Call (wraps an
// arbitrary function as a Transformer), Sleep (a pacing no-op, used to make
// ParallelPipeline's concurrency actually observable) and RemainingHint
// (surfaces the hidden RemainingHint estimate as a regular port value).

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/brunotm/flowgraph"
	"github.com/brunotm/flowgraph/types"
)

// unpack is a source node: for every object it receives, it emits len(values)
// objects, each the incoming object extended with one element of values
// bound to its output port. At the root of a Pipeline the incoming stream is
// the implicit single empty seed object, so Unpack there behaves like an
// ordinary finite source; nested inside a ParallelPipeline's inner scope it
// fans out each outer object it receives, which is what gives a nested
// Unpack its cartesian-product behavior against an outer Unpack.
type unpack struct {
	name   string
	values []interface{}
	out    *flowgraph.Port
}

var _ flowgraph.StreamTransformer = (*unpack)(nil)
var _ flowgraph.Lengther = (*unpack)(nil)

// Unpack registers a source node named name that fans values out onto a
// freshly minted output port, returned for downstream nodes to read.
func Unpack(s *flowgraph.Scope, name string, values []interface{}) (*flowgraph.Port, error) {
	out := s.NewPort(name, "out")
	n := &unpack{name: name, values: values, out: out}
	if err := s.AddNode(name, n, nil, []*flowgraph.Port{out}); err != nil {
		return nil, err
	}
	return out, nil
}

// Len reports len(values), for the root Stream executor's RemainingHint
// computation. It always reports ok=true. The count is only accurate when
// Unpack is the first node of a root Pipeline (a single incoming seed
// object), and that is the only place SubPipeline.RunRoot consults it; any
// other Unpack's Len is never used.
func (n *unpack) Len() (int, bool) {
	return len(n.values), true
}

func (n *unpack) Kind() types.Kind {
	return types.Source
}

func (n *unpack) TransformStream(ctx context.Context, in flowgraph.Stream) flowgraph.Stream {
	var (
		base    flowgraph.Object
		haveOne bool
		idx     int
	)

	return flowgraph.NewStream(
		func(ctx context.Context) (flowgraph.Object, bool, error) {
			for {
				if !haveOne {
					obj, ok, err := in.Next(ctx)
					if err != nil || !ok {
						return flowgraph.Object{}, false, err
					}
					base = obj
					haveOne = true
					idx = 0
				}

				if idx >= len(n.values) {
					haveOne = false
					continue
				}

				v := n.values[idx]
				idx++
				out, err := base.Bind(n.out, v)
				if err != nil {
					return flowgraph.Object{}, false, &flowgraph.RuntimeError{Node: n.name, Err: err}
				}
				return out, true, nil
			}
		},
		in.Close,
	)
}

// call wraps an arbitrary Go function as a Transformer: it reads its
// declared input ports, calls fn with their values in order, and binds the
// (single, non-error) return value to its output port. Grounded on the
// source system's Call(fn, *ports) combinator.
type call struct {
	name   string
	fn     reflect.Value
	inputs []*flowgraph.Port
	out    *flowgraph.Port
}

var _ flowgraph.Transformer = (*call)(nil)

// Call registers a Transformer node named name that invokes fn with the
// values bound to inputs (in order) and binds fn's return value to a new
// output port. fn must be a func accepting len(inputs) arguments and
// returning either a single value, or a value and a trailing error.
func Call(s *flowgraph.Scope, name string, fn interface{}, inputs ...*flowgraph.Port) (*flowgraph.Port, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return nil, &flowgraph.BuildError{Op: "nodes.Call", Reason: "fn must be a function"}
	}

	out := s.NewPort(name, "out")
	n := &call{name: name, fn: fv, inputs: inputs, out: out}
	if err := s.AddNode(name, n, inputs, []*flowgraph.Port{out}); err != nil {
		return nil, err
	}
	return out, nil
}

func (n *call) Transform(obj flowgraph.Object) (flowgraph.Object, error) {
	args := make([]reflect.Value, len(n.inputs))
	for i, p := range n.inputs {
		v, err := obj.Get(p)
		if err != nil {
			return obj, err
		}
		if v == nil {
			args[i] = reflect.Zero(n.fn.Type().In(i))
		} else {
			args[i] = reflect.ValueOf(v)
		}
	}

	results := n.fn.Call(args)

	switch len(results) {
	case 0:
		return obj, nil
	case 1:
		if err, ok := results[0].Interface().(error); ok {
			return obj, err
		}
		return obj.Bind(n.out, results[0].Interface())
	case 2:
		if !results[1].IsNil() {
			return obj, results[1].Interface().(error)
		}
		return obj.Bind(n.out, results[0].Interface())
	default:
		return obj, fmt.Errorf("nodes.Call: %s returns %d values, expected 1 or (value, error)", n.name, len(results))
	}
}

// sleeper pauses for a fixed duration per object, used to make concurrent
// execution observably faster than sequential execution in tests.
type sleeper struct {
	d time.Duration
}

var _ flowgraph.Transformer = (*sleeper)(nil)

// Sleep registers a Transformer node named name that sleeps d before
// passing every object through unchanged.
func Sleep(s *flowgraph.Scope, name string, d time.Duration) error {
	return s.AddNode(name, &sleeper{d: d}, nil, nil)
}

func (n *sleeper) Transform(obj flowgraph.Object) (flowgraph.Object, error) {
	time.Sleep(n.d)
	return obj, nil
}

// remainingHint surfaces the RemainingHint estimate the root Stream executor
// attached to obj as a plain port value, so it can be read downstream (or
// compared across two points in the pipeline, as the "before/after
// BatchPipeline" property requires).
type remainingHint struct {
	out *flowgraph.Port
}

var _ flowgraph.Transformer = (*remainingHint)(nil)

// RemainingHint registers a node named name exposing the stream's
// RemainingHint estimate at this point as a new port.
func RemainingHint(s *flowgraph.Scope, name string) (*flowgraph.Port, error) {
	out := s.NewPort(name, "out")
	n := &remainingHint{out: out}
	if err := s.AddNode(name, n, nil, []*flowgraph.Port{out}); err != nil {
		return nil, err
	}
	return out, nil
}

func (n *remainingHint) Transform(obj flowgraph.Object) (flowgraph.Object, error) {
	remaining, _ := obj.Remaining()
	return obj.Bind(n.out, remaining)
}
