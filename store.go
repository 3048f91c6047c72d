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

import "errors"

// ErrKeyNotFound is returned by Store.Get when the key has no value.
var ErrKeyNotFound = errors.New("flowgraph: key not found")

// StoreContext carries the identifying information a Store needs to
// initialize itself: the node that owns it, the pipeline it belongs to, and
// the subtree of Config rooted at that pipeline. It replaces the teacher's
// streams.Context for store purposes, since a Store here is plumbing used
// directly by a node's Transform method rather than a Processor callback
// target of its own.
type StoreContext struct {
	NodeName   string
	StreamName string
	Config     Config
}

// Store is a byte-keyed key/value backing store usable by any node that
// needs durable or in-memory state across objects of a stream, e.g. the
// tabular adapter's join node. It intentionally carries no notion of
// Process/Record: a node calls Get/Set/Delete/Range directly from inside
// its own Transform.
type Store interface {
	Get(key []byte) (value []byte, err error)
	Set(key, value []byte) (err error)
	Delete(key []byte) (err error)
	Range(from, to []byte, cb func(key, value []byte) error) (err error)
	RangePrefix(prefix []byte, cb func(key, value []byte) error) (err error)
}

// Initializer is implemented by a Store that needs to open resources
// (files, connections) before first use.
type Initializer interface {
	Init(ctx StoreContext) error
}

// Closer is implemented by a Store that holds resources needing an explicit
// release.
type Closer interface {
	Close() error
}

// Remover is implemented by a Store that can erase its own persisted state,
// used by tests and by nodes that discard state between runs.
type Remover interface {
	Remove() error
}

// StoreSupplier constructs a fresh, uninitialized Store instance. Adapter
// packages register one per backing implementation (leveldb, moss) the way
// the teacher registers a store.Supplier per backend.
type StoreSupplier func() Store
