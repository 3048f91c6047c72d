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

type passthroughNode struct{}

func (passthroughNode) Transform(obj Object) (Object, error) { return obj, nil }

func TestScopeAddNodeRejectsUnboundInput(t *testing.T) {
	s := NewScope("root")
	other := NewPort("elsewhere", "out")

	err := s.AddNode("n1", passthroughNode{}, []*Port{other}, nil)
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
}

func TestScopeAddNodeBindsOutputs(t *testing.T) {
	s := NewScope("root")
	out := NewPort("n1", "out")

	require.NoError(t, s.AddNode("n1", passthroughNode{}, nil, []*Port{out}))
	assert.True(t, s.isBound(out))

	// now a second node can legally read it
	err := s.AddNode("n2", passthroughNode{}, []*Port{out}, nil)
	assert.NoError(t, err)
}

func TestScopeChildInheritsParentBindings(t *testing.T) {
	parent := NewScope("root")
	out := NewPort("n1", "out")
	require.NoError(t, parent.AddNode("n1", passthroughNode{}, nil, []*Port{out}))

	child := parent.Child("inner")
	assert.True(t, child.isBound(out), "a child scope must see ports bound by its ancestor")

	err := child.AddNode("n2", passthroughNode{}, []*Port{out}, nil)
	assert.NoError(t, err)
}

func TestScopeRejectsEmptyName(t *testing.T) {
	s := NewScope("root")
	err := s.AddNode("", passthroughNode{}, nil, nil)
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
}

func TestScopeOwnedPorts(t *testing.T) {
	s := NewScope("root")
	out1 := NewPort("n1", "out")
	out2 := NewPort("n2", "out")

	require.NoError(t, s.AddNode("n1", passthroughNode{}, nil, []*Port{out1}))
	require.NoError(t, s.AddNode("n2", passthroughNode{}, nil, []*Port{out2}))

	assert.ElementsMatch(t, []*Port{out1, out2}, s.OwnedPorts())
}

func TestSubPipelineRunAppliesEveryEntry(t *testing.T) {
	s := NewScope("root")
	out := NewPort("n1", "out")

	n := &bindOnceNode{out: out, value: "hi"}
	require.NoError(t, s.AddNode("n1", n, nil, []*Port{out}))

	sub := s.Freeze()
	stream, err := sub.Run(context.Background(), NewObject())
	require.NoError(t, err)

	results, err := Collect(context.Background(), stream)
	require.NoError(t, err)
	require.Len(t, results, 1)

	v, err := results[0].Get(out)
	require.NoError(t, err)
	assert.Equal(t, "hi", v)
}

type bindOnceNode struct {
	out   *Port
	value interface{}
}

func (n *bindOnceNode) Transform(obj Object) (Object, error) {
	return obj.Bind(n.out, n.value)
}
