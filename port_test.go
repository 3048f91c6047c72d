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
)

func TestNewPortIdentity(t *testing.T) {
	a := NewPort("node-a", "out")
	b := NewPort("node-a", "out")
	assert.NotEqual(t, a, b, "two ports minted with the same owner/name are still distinct identities")
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestPortByID(t *testing.T) {
	p := NewPort("node-a", "out")
	got, ok := PortByID(p.ID())
	assert.True(t, ok)
	assert.Same(t, p, got)

	_, ok = PortByID(^uint64(0))
	assert.False(t, ok)
}

func TestPortAccessors(t *testing.T) {
	p := NewPort("node-a", "out")
	assert.Equal(t, "node-a", p.Owner())
	assert.Equal(t, "out", p.Name())
	assert.Contains(t, p.String(), "node-a.out#")
}
