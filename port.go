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
	"fmt"
	"sync"
	"sync/atomic"
)

var portSeq uint64

// registry maps a Port's numeric id back to its pointer. A worker subprocess
// spawned by the parallel package reconstructs its pipeline from scratch
// from the same deterministic construction code as the driver, so the N-th
// NewPort call mints the same id in both processes; the registry is what
// lets the wire protocol carry Port identity as a plain uint64 (see
// parallel/wire.go) instead of a pointer that is meaningless across a
// process boundary.
var registry sync.Map // uint64 -> *Port

// Port is an opaque identity token minted at build time by a node to label
// one of its outputs. Ports carry no value of their own, they are keys into
// an Object. Equality is Go pointer identity: two ports sharing the same
// human-readable Name but minted by different nodes are distinct.
type Port struct {
	id    uint64
	owner string
	name  string
}

// NewPort mints a new Port owned by the node named owner, labeled name.
// Node constructors call this once per declared output.
func NewPort(owner, name string) *Port {
	p := &Port{
		id:    atomic.AddUint64(&portSeq, 1),
		owner: owner,
		name:  name,
	}
	registry.Store(p.id, p)
	return p
}

// ID returns the numeric identity minted for this port. Stable only within
// one deterministic reconstruction of a pipeline (see registry above).
func (p *Port) ID() uint64 {
	return p.id
}

// PortByID resolves a numeric port id minted by this process's own
// construction of a pipeline back to its *Port. Used by the parallel package
// to decode wire objects coming from (or going to) a worker subprocess that
// reconstructed the identical pipeline.
func PortByID(id uint64) (*Port, bool) {
	v, ok := registry.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Port), true
}

// Owner returns the name of the node that minted this port.
func (p *Port) Owner() string {
	return p.owner
}

// Name returns the human-readable label given to this port.
func (p *Port) Name() string {
	return p.name
}

func (p *Port) String() string {
	return fmt.Sprintf("%s.%s#%d", p.owner, p.name, p.id)
}
