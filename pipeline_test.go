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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unpackValues is a minimal root-level source, used only by this file's
// tests so the root package's own tests don't need to import the nodes
// package (which imports flowgraph, and would be a cycle).
type unpackValues struct {
	values []interface{}
	out    *Port
}

func (n *unpackValues) Len() (int, bool) { return len(n.values), true }

func (n *unpackValues) TransformStream(ctx context.Context, in Stream) Stream {
	var base Object
	haveOne := false
	idx := 0

	return NewStream(func(ctx context.Context) (Object, bool, error) {
		for {
			if !haveOne {
				obj, ok, err := in.Next(ctx)
				if err != nil || !ok {
					return Object{}, false, err
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
				return Object{}, false, err
			}
			return out, true, nil
		}
	}, in.Close)
}

func TestPipelineCollect(t *testing.T) {
	p := NewPipeline("test")
	root := p.Root()

	out := root.NewPort("unpack", "out")
	src := &unpackValues{values: []interface{}{1, 2, 3}, out: out}
	require.NoError(t, root.AddNode("unpack", src, nil, []*Port{out}))

	results, err := p.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, obj := range results {
		v, err := obj.Get(out)
		require.NoError(t, err)
		assert.Equal(t, i+1, v)
	}
}

func TestPipelineRemainingHintFromRootSource(t *testing.T) {
	p := NewPipeline("test")
	root := p.Root()

	out := root.NewPort("unpack", "out")
	src := &unpackValues{values: []interface{}{1, 2, 3, 4}, out: out}
	require.NoError(t, root.AddNode("unpack", src, nil, []*Port{out}))

	results, err := p.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 4)

	for i, obj := range results {
		remaining, ok := obj.Remaining()
		assert.True(t, ok)
		assert.Equal(t, 4-i-1, remaining)
	}
}

func TestPipelineEmptyNameDefaultsToPipeline(t *testing.T) {
	p := NewPipeline("")
	assert.Equal(t, "pipeline", p.Root().Name())
}
