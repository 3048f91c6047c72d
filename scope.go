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
	"fmt"

	"github.com/brunotm/flowgraph/types"
)

// entry is a single registered node within a Scope, in registration order.
type entry struct {
	name   string
	node   interface{} // Transformer or StreamTransformer
	inputs []*Port
}

// Scope is the explicit, per-builder construction context a Pipeline, a
// BatchPipeline or a ParallelPipeline hands to node constructors. It replaces
// the ambient process-local scope stack of the source system with an
// explicit value threaded through scope-entry primitives (see Design Notes:
// "Re-architect as an explicit builder context parameter... never
// process-global, to permit concurrent pipeline construction").
//
// A Scope is not safe for concurrent use: all nodes of one scope must be
// constructed from a single goroutine, exactly as the distilled spec's
// per-thread/task requirement implies.
type Scope struct {
	name     string
	parent   *Scope
	entries  []*entry
	bound    map[*Port]string
	sequence int
}

// NewScope creates a fresh, unparented Scope. Pipeline.Root uses this to
// create the outermost scope; it is also exported so adapter packages
// (batch, parallel) can build detached scopes in tests.
func NewScope(name string) *Scope {
	return &Scope{name: name, bound: make(map[*Port]string)}
}

// Child creates a nested Scope whose ancestor port lookups fall back to s.
// BatchPipeline and ParallelPipeline call this once per construction to
// obtain the scope their inner builder function populates.
func (s *Scope) Child(name string) *Scope {
	return &Scope{name: name, parent: s, bound: make(map[*Port]string)}
}

// Name returns this scope's name.
func (s *Scope) Name() string {
	return s.name
}

// NewPort mints a port owned by the given node name; it does not by itself
// bind the port to this scope — AddNode does that once the node is
// registered, since a node may mint ports before it is added.
func (s *Scope) NewPort(owner, name string) *Port {
	return NewPort(owner, name)
}

// isBound walks the scope chain looking for a port bound by an
// ancestor-in-stream node, honoring invariant 2.
func (s *Scope) isBound(p *Port) bool {
	for sc := s; sc != nil; sc = sc.parent {
		if _, ok := sc.bound[p]; ok {
			return true
		}
	}
	return false
}

// RegisterExternalPort marks a port as bound within this scope, attributed
// to ownerNode, without registering a node; a port already bound here is
// left as it is. BatchPipeline and ParallelPipeline do not call it: they
// surface their inner output ports by passing them to AddNode.
func (s *Scope) RegisterExternalPort(ownerNode string, p *Port) {
	if _, ok := s.bound[p]; ok {
		return
	}
	s.bound[p] = ownerNode
}

// AddNode registers a node under name, reading the given input ports and
// producing the given output ports. It validates that every input port was
// already bound by an ancestor-in-stream node in the scope chain (invariant
// 2), and that name and node are well formed.
func (s *Scope) AddNode(name string, node interface{}, inputs []*Port, outputs []*Port) error {
	if name == "" {
		return &BuildError{Op: "AddNode", Reason: errEmptyName.Error(), Err: errEmptyName}
	}

	if err := requireNode(node); err != nil {
		return err
	}

	for _, in := range inputs {
		if in == nil || !s.isBound(in) {
			return errUnboundPort(fmt.Sprintf("AddNode(%s)", name), in)
		}
	}

	s.entries = append(s.entries, &entry{name: name, node: node, inputs: inputs})
	s.sequence++

	for _, out := range outputs {
		s.bound[out] = name
	}

	return nil
}

// OwnedPorts returns the ports bound by nodes registered directly within
// this scope (not ports inherited by reference from a parent). BatchPipeline
// and ParallelPipeline use this after running their inner builder function
// to learn which new ports to surface on the scope-rewriter node itself.
func (s *Scope) OwnedPorts() []*Port {
	ports := make([]*Port, 0, len(s.bound))
	for p := range s.bound {
		ports = append(ports, p)
	}
	return ports
}

// Entries returns the names of the nodes registered in this scope, in
// registration order, for callers that introspect a scope (e.g. DotGraph).
func (s *Scope) Entries() []string {
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.name
	}
	return names
}

// Kinds reports the types.Kind of each registered node, in registration
// order, for nodes implementing KindProvider (every other node is reported
// as types.Transform, the common case). Used by DotGraph.
func (s *Scope) Kinds() []types.Kind {
	kinds := make([]types.Kind, len(s.entries))
	for i, e := range s.entries {
		if kp, ok := e.node.(KindProvider); ok {
			kinds[i] = kp.Kind()
			continue
		}
		kinds[i] = types.Transform
	}
	return kinds
}

// SubPipeline is a frozen, runnable view of a Scope's node chain. Building
// one is cheap (it only snapshots the registration slice); running one
// composes the node chain over a seed stream exactly as an ordinary Pipeline
// does (§4.3), which is what lets BatchPipeline and ParallelPipeline reuse
// the very same executor for their inner sub-pipelines.
type SubPipeline struct {
	name    string
	entries []*entry
}

// Freeze snapshots the scope's current node list into a SubPipeline. Once
// frozen, later calls to AddNode on the same Scope do not affect it.
func (s *Scope) Freeze() *SubPipeline {
	entries := make([]*entry, len(s.entries))
	copy(entries, s.entries)
	return &SubPipeline{name: s.name, entries: entries}
}

// Run folds the node chain over a single-object seed stream, exactly as
// §4.3 describes for the outermost Pipeline, except the source is `base`
// instead of nothing. A node overriding TransformStream (a source node, or a
// nested scope rewriter) may turn that single seed object into zero, one or
// many result objects; an ordinary Transformer-only node preserves 1:1.
func (sp *SubPipeline) Run(ctx context.Context, base Object) (Stream, error) {
	var stream Stream = sliceStream([]Object{base})

	for _, e := range sp.entries {
		stream = applyEntry(ctx, e, stream)
	}

	return stream, nil
}

// TransformStream composes the node chain starting from in, for use by the
// outermost Pipeline where in is the implicit single-object root seed.
func (sp *SubPipeline) TransformStream(ctx context.Context, in Stream) Stream {
	stream := in
	for _, e := range sp.entries {
		stream = applyEntry(ctx, e, stream)
	}
	return stream
}

// RunRoot is like Run, except it seeds the chain with a single empty Object
// (the implicit root seed) and, if the first node implements Lengther,
// attaches the RemainingHint estimate to every object as it leaves that
// first node — before any downstream node (including a nested
// BatchPipeline or ParallelPipeline) has a chance to see it, so the
// estimate reflects the true root source's declared length and then
// propagates unchanged for the rest of the chain (Object bindings are
// additive, never overwritten). Only Pipeline.TransformStream calls this;
// a nested sub-pipeline uses Run, which never touches RemainingHint.
func (sp *SubPipeline) RunRoot(ctx context.Context) Stream {
	var stream Stream = sliceStream([]Object{NewObject()})

	for i, e := range sp.entries {
		stream = applyEntry(ctx, e, stream)
		if i == 0 {
			if l, ok := e.node.(Lengther); ok {
				n, known := l.Len()
				stream = annotateRemaining(stream, n, known)
			}
		}
	}

	return stream
}

func applyEntry(ctx context.Context, e *entry, in Stream) Stream {
	if st, ok := e.node.(StreamTransformer); ok {
		return st.TransformStream(ctx, in)
	}
	return wrapTransform(e.name, e.node.(Transformer), in)
}
