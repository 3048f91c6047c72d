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

import (
	"context"
	"testing"

	"github.com/brunotm/flowgraph"
	"github.com/brunotm/flowgraph/nodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rangeValues(n int) []interface{} {
	out := make([]interface{}, n)
	for i := 0; i < n; i++ {
		out[i] = i
	}
	return out
}

func sum(values []interface{}) int {
	total := 0
	for _, v := range values {
		total += v.(int)
	}
	return total
}

func chunkSums(values []interface{}, size int) []int {
	var out []int
	for i := 0; i < len(values); i += size {
		end := i + size
		if end > len(values) {
			end = len(values)
		}
		out = append(out, sum(values[i:end]))
	}
	return out
}

func TestBatchPipelineSum(t *testing.T) {
	for _, seqLen := range []int{5, 10, 100, 111} {
		seqLen := seqLen
		t.Run("", func(t *testing.T) {
			const batchSize = 10
			values := rangeValues(seqLen)

			p := flowgraph.NewPipeline("batch-sum")
			root := p.Root()

			a, err := nodes.Unpack(root, "a", values)
			require.NoError(t, err)

			remaining0, err := nodes.RemainingHint(root, "remaining0")
			require.NoError(t, err)

			var b *flowgraph.Port
			_, err = Build(root, "batch", batchSize, nil, func(inner *flowgraph.Scope) {
				var callErr error
				b, callErr = nodes.Call(inner, "sum", func(values []interface{}) (int, error) {
					total := 0
					for _, v := range values {
						total += v.(int)
					}
					return total, nil
				}, a)
				require.NoError(t, callErr)
			})
			require.NoError(t, err)

			remaining2, err := nodes.RemainingHint(root, "remaining2")
			require.NoError(t, err)

			result, err := p.Collect(context.Background())
			require.NoError(t, err)
			require.Len(t, result, seqLen)

			for i, obj := range result {
				v, err := obj.Get(a)
				require.NoError(t, err)
				assert.Equal(t, i, v)
			}

			expected := chunkSums(values, batchSize)
			var got []int
			for i := 0; i < len(result); i += batchSize {
				v, err := result[i].Get(b)
				require.NoError(t, err)
				got = append(got, v.(int))
			}
			assert.Equal(t, expected, got)

			for _, obj := range result {
				r0, err := obj.Get(remaining0)
				require.NoError(t, err)
				r2, err := obj.Get(remaining2)
				require.NoError(t, err)
				assert.Equal(t, r0, r2)
			}
		})
	}
}

func TestBatchPipelineGroupby(t *testing.T) {
	for _, seqLen := range []int{5, 10, 100, 111} {
		seqLen := seqLen
		t.Run("", func(t *testing.T) {
			const batchSize = 10
			values := rangeValues(seqLen)

			p := flowgraph.NewPipeline("batch-groupby")
			root := p.Root()

			a, err := nodes.Unpack(root, "a", values)
			require.NoError(t, err)
			b, err := nodes.Unpack(root, "b", values)
			require.NoError(t, err)

			var sawScalar, sawSequence bool
			_, err = Build(root, "batch", batchSize, a, func(inner *flowgraph.Scope) {
				_, callErr := nodes.Call(inner, "check_a", func(v int) (int, error) {
					sawScalar = true
					return v, nil
				}, a)
				require.NoError(t, callErr)

				_, callErr = nodes.Call(inner, "check_b", func(v []interface{}) (int, error) {
					sawSequence = true
					return len(v), nil
				}, b)
				require.NoError(t, callErr)
			})
			require.NoError(t, err)

			_, err = p.Collect(context.Background())
			require.NoError(t, err)

			assert.True(t, sawScalar)
			assert.True(t, sawSequence)
		})
	}
}
