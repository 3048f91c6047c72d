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

import (
	"context"
	"testing"
	"time"

	"github.com/brunotm/flowgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnpackEmitsOneObjectPerValue(t *testing.T) {
	p := flowgraph.NewPipeline("unpack-test")
	root := p.Root()

	out, err := Unpack(root, "u", []interface{}{"a", "b", "c"})
	require.NoError(t, err)

	results, err := p.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, want := range []string{"a", "b", "c"} {
		v, err := results[i].Get(out)
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}
}

func TestCallSingleReturnValue(t *testing.T) {
	p := flowgraph.NewPipeline("call-test")
	root := p.Root()

	a, err := Unpack(root, "a", []interface{}{1, 2, 3})
	require.NoError(t, err)

	double, err := Call(root, "double", func(v int) int { return v * 2 }, a)
	require.NoError(t, err)

	results, err := p.Collect(context.Background())
	require.NoError(t, err)

	for i, obj := range results {
		v, err := obj.Get(double)
		require.NoError(t, err)
		assert.Equal(t, (i+1)*2, v)
	}
}

func TestCallValueAndErrorReturn(t *testing.T) {
	p := flowgraph.NewPipeline("call-error-test")
	root := p.Root()

	a, err := Unpack(root, "a", []interface{}{1, 0, 2})
	require.NoError(t, err)

	_, err = Call(root, "reciprocal", func(v int) (int, error) {
		if v == 0 {
			return 0, flowgraph.ErrPortNotBound
		}
		return 1, nil
	}, a)
	require.NoError(t, err)

	_, err = p.Collect(context.Background())
	require.Error(t, err)
}

func TestCallRejectsNonFunction(t *testing.T) {
	p := flowgraph.NewPipeline("call-nonfunc-test")
	root := p.Root()

	_, err := Call(root, "bad", 42)
	var buildErr *flowgraph.BuildError
	require.ErrorAs(t, err, &buildErr)
}

func TestSleepPassesObjectsThrough(t *testing.T) {
	p := flowgraph.NewPipeline("sleep-test")
	root := p.Root()

	a, err := Unpack(root, "a", []interface{}{1, 2})
	require.NoError(t, err)
	require.NoError(t, Sleep(root, "pace", time.Millisecond))

	results, err := p.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	v, err := results[0].Get(a)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestRemainingHintReflectsRootSourceLength(t *testing.T) {
	p := flowgraph.NewPipeline("remaining-test")
	root := p.Root()

	_, err := Unpack(root, "a", []interface{}{1, 2, 3, 4, 5})
	require.NoError(t, err)

	remaining, err := RemainingHint(root, "remaining")
	require.NoError(t, err)

	results, err := p.Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 5)
	for i, obj := range results {
		v, err := obj.Get(remaining)
		require.NoError(t, err)
		assert.Equal(t, 5-i-1, v)
	}
}
