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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDotGraphListsNodesInOrder(t *testing.T) {
	p := NewPipeline("demo")
	root := p.Root()

	out1 := root.NewPort("a", "out")
	require.NoError(t, root.AddNode("a", passthroughNode{}, nil, []*Port{out1}))
	require.NoError(t, root.AddNode("b", passthroughNode{}, []*Port{out1}, nil))

	dot := DotGraph(p)
	assert.Contains(t, dot, `digraph "demo"`)
	assert.Contains(t, dot, `"a" [label`)
	assert.Contains(t, dot, `"b" [label`)
	assert.Contains(t, dot, `"a" -> "b";`)
}
