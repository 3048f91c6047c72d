package mock

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

	"github.com/brunotm/flowgraph"
)

// make sure we implement the Node interfaces
var _ flowgraph.Transformer = (*Node)(nil)
var _ flowgraph.BeforeStreamer = (*Node)(nil)
var _ flowgraph.AfterStreamer = (*Node)(nil)

// Node is a mock Transformer for exercising a Scope or Pipeline without a
// real domain node. TransformFunc is called for every object; if nil the
// object passes through unchanged. BeforeCount and AfterCount record how
// many times the lifecycle hooks fired, so tests can assert the default
// Stream wrapping calls them exactly once.
type Node struct {
	TransformFunc func(obj flowgraph.Object) (flowgraph.Object, error)

	BeforeCount int
	AfterCount  int
	BeforeErr   error
	AfterErr    error
}

// Transform calls TransformFunc, or passes obj through unchanged.
func (n *Node) Transform(obj flowgraph.Object) (flowgraph.Object, error) {
	if n.TransformFunc == nil {
		return obj, nil
	}
	return n.TransformFunc(obj)
}

// BeforeStream records a call and optionally fails.
func (n *Node) BeforeStream() error {
	n.BeforeCount++
	return n.BeforeErr
}

// AfterStream records a call and optionally fails.
func (n *Node) AfterStream() error {
	n.AfterCount++
	return n.AfterErr
}

// StreamNode is a mock StreamTransformer, for exercising source-like or
// scope-rewriter-like nodes that take responsibility for their own substream.
type StreamNode struct {
	TransformStreamFunc func(ctx context.Context, in flowgraph.Stream) flowgraph.Stream
}

// TransformStream calls TransformStreamFunc, or returns in unchanged.
func (n *StreamNode) TransformStream(ctx context.Context, in flowgraph.Stream) flowgraph.Stream {
	if n.TransformStreamFunc == nil {
		return in
	}
	return n.TransformStreamFunc(ctx, in)
}
