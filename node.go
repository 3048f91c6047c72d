package flowgraph

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

import (
	"context"

	"github.com/brunotm/flowgraph/types"
)

// Transformer is the common shape of a Node: pure per-object work. It may
// add output bindings to obj and must not rewrite bindings owned by an
// upstream node. Returning an error aborts the stream.
type Transformer interface {
	Transform(obj Object) (Object, error)
}

// TransformerFunc adapts a function to the Transformer interface.
type TransformerFunc func(obj Object) (Object, error)

// Transform calls f(obj).
func (f TransformerFunc) Transform(obj Object) (Object, error) {
	return f(obj)
}

// StreamTransformer is the general form of a Node: it takes full
// responsibility for the ordering, lifecycle and error propagation of its
// sub-stream. A node implementing StreamTransformer is never wrapped by the
// default before/after-stream plumbing; BatchPipeline and ParallelPipeline
// are themselves StreamTransformers.
type StreamTransformer interface {
	TransformStream(ctx context.Context, in Stream) Stream
}

// BeforeStreamer is an optional lifecycle hook run lazily on first pull.
type BeforeStreamer interface {
	BeforeStream() error
}

// AfterStreamer is an optional lifecycle hook run once, on end-of-stream or
// on early Close. It runs only for a node that has been started (pulled at
// least once): a stream closed before its first pull never calls it.
type AfterStreamer interface {
	AfterStream() error
}

// PortDeclarer exposes the ports a node reads and writes. The builder does
// not consult it: Scope.AddNode validates the input and output ports passed
// to it as arguments.
type PortDeclarer interface {
	InputPorts() []*Port
	OutputPorts() []*Port
}

// Lengther is implemented by source nodes that know in advance how many
// objects they will emit. The root Stream executor uses it to compute the
// RemainingHint estimate carried on every Object (see object.go).
type Lengther interface {
	Len() (n int, ok bool)
}

// KindProvider lets a node classify itself for introspection (DotGraph,
// health endpoints). Nodes that don't implement it are reported as
// types.Transform, the common case.
type KindProvider interface {
	Kind() types.Kind
}

// Node is any of Transformer or StreamTransformer, optionally combined with
// the lifecycle and port-declaration interfaces above. It exists purely as
// documentation: builder methods accept `interface{}` constrained at runtime
// to implement at least one of Transformer or StreamTransformer, since Go
// has no sum-of-interfaces type.
type Node interface{}

// requireNode asserts that n implements the minimum Node contract.
func requireNode(n interface{}) error {
	switch n.(type) {
	case Transformer, StreamTransformer:
		return nil
	default:
		return &BuildError{Op: "AddNode", Reason: "node implements neither Transformer nor StreamTransformer"}
	}
}
