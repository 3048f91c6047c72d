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

func TestObjectBindGet(t *testing.T) {
	p := NewPort("node", "out")
	o := NewObject()

	_, err := o.Get(p)
	assert.Equal(t, ErrPortNotBound, err)
	assert.False(t, o.IsBound(p))

	o, err = o.Bind(p, 42)
	require.NoError(t, err)
	assert.True(t, o.IsBound(p))

	v, err := o.Get(p)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestObjectBindTwiceFails(t *testing.T) {
	p := NewPort("node", "out")
	o := NewObject()

	o, err := o.Bind(p, 1)
	require.NoError(t, err)

	_, err = o.Bind(p, 2)
	assert.Equal(t, ErrPortBound, err)
}

func TestObjectBindIsImmutable(t *testing.T) {
	p := NewPort("node", "out")
	base := NewObject()

	extended, err := base.Bind(p, 1)
	require.NoError(t, err)

	assert.False(t, base.IsBound(p), "Bind must not mutate the receiver")
	assert.True(t, extended.IsBound(p))
}

func TestObjectMustBindPanicsOnDuplicate(t *testing.T) {
	p := NewPort("node", "out")
	o := NewObject().MustBind(p, 1)

	assert.Panics(t, func() {
		o.MustBind(p, 2)
	})
}

func TestObjectRemainingHint(t *testing.T) {
	o := NewObject()

	_, ok := o.Remaining()
	assert.False(t, ok)

	o = o.WithRemaining(10)
	remaining, ok := o.Remaining()
	assert.True(t, ok)
	assert.Equal(t, 10, remaining)
}

func TestObjectPorts(t *testing.T) {
	p1 := NewPort("node", "a")
	p2 := NewPort("node", "b")

	o := NewObject()
	o, err := o.Bind(p1, 1)
	require.NoError(t, err)
	o, err = o.Bind(p2, 2)
	require.NoError(t, err)

	assert.ElementsMatch(t, []*Port{p1, p2}, o.Ports())
}

func TestObjectMerge(t *testing.T) {
	p1 := NewPort("node", "a")
	p2 := NewPort("node", "b")

	left := NewObject().MustBind(p1, "left")
	right := NewObject().MustBind(p2, "right")

	merged := left.merge(right)
	v1, err := merged.Get(p1)
	require.NoError(t, err)
	v2, err := merged.Get(p2)
	require.NoError(t, err)
	assert.Equal(t, "left", v1)
	assert.Equal(t, "right", v2)
}
