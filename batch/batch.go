package batch

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

// Package batch implements BatchPipeline, the scope-rewriter node that
// buffers a run of objects and presents their upstream ports to an inner
// sub-pipeline as sequence-valued (or, for the groupby port, scalar-valued)
// bindings on a single synthetic object, then scatters or broadcasts the
// inner pipeline's new bindings back onto the original objects on egress.

import (
	"context"
	"fmt"
	"reflect"

	"github.com/brunotm/flowgraph"
	"github.com/brunotm/flowgraph/types"
)

// Node is the BatchPipeline scope-rewriter. It implements
// flowgraph.StreamTransformer: the parent scope never sees it apply
// Transform to individual objects, only the substream it produces.
type Node struct {
	name      string
	batchSize int
	groupby   *flowgraph.Port
	sub       *flowgraph.SubPipeline
	outPorts  []*flowgraph.Port
}

var _ flowgraph.StreamTransformer = (*Node)(nil)

// Kind reports this node as types.Batch for introspection.
func (n *Node) Kind() types.Kind {
	return types.Batch
}

// Build constructs the inner scope by invoking fn with a child of parent,
// freezes it, and registers the resulting BatchPipeline node under name on
// parent. groupby may be nil, meaning every upstream port becomes a
// sequence inside the scope. batchSize must be positive.
func Build(parent *flowgraph.Scope, name string, batchSize int, groupby *flowgraph.Port, fn func(inner *flowgraph.Scope)) (*Node, error) {
	if batchSize <= 0 {
		return nil, &flowgraph.BuildError{Op: "batch.Build", Reason: flowgraph.ErrInvalidBatchSize.Error(), Err: flowgraph.ErrInvalidBatchSize}
	}

	inner := parent.Child(name)
	fn(inner)

	outputs := inner.OwnedPorts()

	n := &Node{
		name:      name,
		batchSize: batchSize,
		groupby:   groupby,
		sub:       inner.Freeze(),
		outPorts:  outputs,
	}

	if err := parent.AddNode(name, n, nil, outputs); err != nil {
		return nil, err
	}

	return n, nil
}

// OutputPorts returns the ports the inner sub-pipeline bound, now visible on
// every object downstream of this node.
func (n *Node) OutputPorts() []*flowgraph.Port {
	return n.outPorts
}

// TransformStream buffers in into batches (plain runs of batchSize, or
// consecutive-key runs when groupby is set, with overflow runs longer than
// batchSize split in order), runs each batch's synthetic object through the
// inner sub-pipeline once, and re-emits the batch's original objects in
// order enriched with the scattered or broadcast results.
func (n *Node) TransformStream(ctx context.Context, in flowgraph.Stream) flowgraph.Stream {
	var (
		pending    flowgraph.Object
		hasPending bool
		eof        bool

		resultBuf []flowgraph.Object
		resultIdx int
	)

	nextBatch := func(ctx context.Context) ([]flowgraph.Object, error) {
		var buf []flowgraph.Object

		for len(buf) < n.batchSize {
			if !hasPending {
				if eof {
					break
				}
				obj, ok, err := in.Next(ctx)
				if err != nil {
					return buf, err
				}
				if !ok {
					eof = true
					break
				}
				pending = obj
				hasPending = true
			}

			if n.groupby != nil && len(buf) > 0 {
				curKey, err := buf[0].Get(n.groupby)
				if err != nil {
					return buf, &flowgraph.RuntimeError{Node: n.name, Err: err}
				}
				nextKey, err := pending.Get(n.groupby)
				if err != nil {
					return buf, &flowgraph.RuntimeError{Node: n.name, Err: err}
				}
				if !reflect.DeepEqual(curKey, nextKey) {
					break
				}
			}

			buf = append(buf, pending)
			hasPending = false
		}

		return buf, nil
	}

	runBatch := func(ctx context.Context, batch []flowgraph.Object) ([]flowgraph.Object, error) {
		if len(batch) == 0 {
			return nil, nil
		}

		synthetic, ports, err := n.buildSynthetic(batch)
		if err != nil {
			return nil, err
		}

		stream, err := n.sub.Run(ctx, synthetic)
		if err != nil {
			return nil, err
		}

		results, err := flowgraph.Collect(ctx, stream)
		if err != nil {
			return nil, &flowgraph.RuntimeError{Node: n.name, Err: err}
		}
		if len(results) != 1 {
			return nil, &flowgraph.RuntimeError{Node: n.name, Err: fmt.Errorf("inner pipeline produced %d objects, expected exactly 1 per batch", len(results))}
		}
		result := results[0]

		return n.scatter(batch, result, ports)
	}

	return flowgraph.NewStream(
		func(ctx context.Context) (flowgraph.Object, bool, error) {
			for resultIdx >= len(resultBuf) {
				batch, err := nextBatch(ctx)
				if err != nil {
					return flowgraph.Object{}, false, err
				}
				if len(batch) == 0 {
					return flowgraph.Object{}, false, nil
				}

				out, err := runBatch(ctx, batch)
				if err != nil {
					return flowgraph.Object{}, false, err
				}
				resultBuf = out
				resultIdx = 0
			}

			obj := resultBuf[resultIdx]
			resultIdx++
			return obj, true, nil
		},
		in.Close,
	)
}

// buildSynthetic constructs the single object the inner sub-pipeline runs
// against: every upstream port bound on the batch's first object becomes a
// sequence-valued binding, except groupby (if set), which stays scalar. It
// returns the synthetic object and the set of ports it carries, so egress
// can tell which new bindings the inner pipeline produced.
func (n *Node) buildSynthetic(batch []flowgraph.Object) (flowgraph.Object, map[*flowgraph.Port]bool, error) {
	synthetic := flowgraph.NewObject()
	ports := make(map[*flowgraph.Port]bool)

	for _, p := range batch[0].Ports() {
		ports[p] = true

		if n.groupby != nil && p == n.groupby {
			v, err := batch[0].Get(p)
			if err != nil {
				return synthetic, nil, &flowgraph.RuntimeError{Node: n.name, Err: err}
			}
			synthetic = synthetic.MustBind(p, v)
			continue
		}

		seq := make([]interface{}, len(batch))
		for i, obj := range batch {
			v, err := obj.Get(p)
			if err != nil {
				return synthetic, nil, &flowgraph.RuntimeError{Node: n.name, Err: err}
			}
			seq[i] = v
		}
		synthetic = synthetic.MustBind(p, seq)
	}

	return synthetic, ports, nil
}

// scatter re-emits the batch's original objects enriched with the inner
// pipeline's new bindings: an exact batchSize-length slice value scatters
// one element per object, any other value broadcasts unchanged to every
// object in the batch. A slice of the wrong length is an ErrBatchShape.
func (n *Node) scatter(batch []flowgraph.Object, result flowgraph.Object, syntheticPorts map[*flowgraph.Port]bool) ([]flowgraph.Object, error) {
	out := make([]flowgraph.Object, len(batch))
	copy(out, batch)

	for _, p := range result.Ports() {
		if syntheticPorts[p] {
			continue
		}

		v, err := result.Get(p)
		if err != nil {
			return nil, &flowgraph.RuntimeError{Node: n.name, Err: err}
		}

		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Slice {
			if rv.Len() != len(batch) {
				return nil, &flowgraph.RuntimeError{Node: n.name, Err: fmt.Errorf("%w: port %s has %d elements, batch has %d objects", flowgraph.ErrBatchShape, p, rv.Len(), len(batch))}
			}
			for i := range out {
				out[i], err = out[i].Bind(p, rv.Index(i).Interface())
				if err != nil {
					return nil, &flowgraph.RuntimeError{Node: n.name, Err: err}
				}
			}
			continue
		}

		for i := range out {
			out[i], err = out[i].Bind(p, v)
			if err != nil {
				return nil, &flowgraph.RuntimeError{Node: n.name, Err: err}
			}
		}
	}

	return out, nil
}
