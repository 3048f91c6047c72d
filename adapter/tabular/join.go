package tabular

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
	"bytes"
	"encoding/csv"
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/brunotm/flowgraph"
)

// Join enriches a stream against a reference table loaded once from a CSV
// file into a flowgraph.Store, keyed by one of its columns. It plays the
// role JoinMetadata plays against a pandas DataFrame indexed by "on", but
// looks the row up in a byte-keyed Store instead of an in-memory index, so
// the reference table can be backed by leveldb when it does not fit in
// memory, or by moss when it does.
type Join struct {
	name    string
	key     *flowgraph.Port
	store   flowgraph.Store
	fields  []string
	outPort map[string]*flowgraph.Port
}

var _ flowgraph.Transformer = (*Join)(nil)
var _ flowgraph.AfterStreamer = (*Join)(nil)

// BuildJoin registers a Transformer node named name that looks up key's
// value in the reference table loaded from csvPath (indexed by onColumn)
// and binds each of fields onto a newly minted output port, returned in a
// map keyed by field name. supplier selects the backing Store
// implementation (e.g. leveldb.Supplier or moss.Supplier); the table is
// loaded into it once, at build time, not per object.
func BuildJoin(s *flowgraph.Scope, name string, key *flowgraph.Port, csvPath, onColumn string, fields []string, supplier flowgraph.StoreSupplier, cfg flowgraph.Config) (*Join, error) {
	store := supplier()
	if initializer, ok := store.(flowgraph.Initializer); ok {
		ctx := flowgraph.StoreContext{NodeName: name, StreamName: name, Config: cfg}
		if err := initializer.Init(ctx); err != nil {
			return nil, &flowgraph.BuildError{Op: "tabular.BuildJoin", Reason: err.Error()}
		}
	}

	if err := loadCSVIntoStore(csvPath, onColumn, fields, store); err != nil {
		return nil, &flowgraph.BuildError{Op: "tabular.BuildJoin", Reason: err.Error()}
	}

	outPort := make(map[string]*flowgraph.Port, len(fields))
	outputs := make([]*flowgraph.Port, 0, len(fields))
	for _, f := range fields {
		p := s.NewPort(name, f)
		outPort[f] = p
		outputs = append(outputs, p)
	}

	n := &Join{name: name, key: key, store: store, fields: fields, outPort: outPort}
	if err := s.AddNode(name, n, []*flowgraph.Port{key}, outputs); err != nil {
		return nil, err
	}
	return n, nil
}

// OutputPort returns the port holding field's joined value.
func (n *Join) OutputPort(field string) *flowgraph.Port {
	return n.outPort[field]
}

func (n *Join) Transform(obj flowgraph.Object) (flowgraph.Object, error) {
	key, err := obj.Get(n.key)
	if err != nil {
		return obj, &flowgraph.RuntimeError{Node: n.name, Err: err}
	}

	raw, err := n.store.Get([]byte(fmt.Sprint(key)))
	if err != nil {
		return obj, &flowgraph.RuntimeError{Node: n.name, Err: err}
	}

	var row []string
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&row); err != nil {
		return obj, &flowgraph.RuntimeError{Node: n.name, Err: err}
	}

	for i, f := range n.fields {
		obj, err = obj.Bind(n.outPort[f], row[i])
		if err != nil {
			return obj, &flowgraph.RuntimeError{Node: n.name, Err: err}
		}
	}
	return obj, nil
}

// AfterStream releases the backing store's resources, if it requires any.
func (n *Join) AfterStream() error {
	if closer, ok := n.store.(flowgraph.Closer); ok {
		return closer.Close()
	}
	return nil
}

func loadCSVIntoStore(path, onColumn string, fields []string, store flowgraph.Store) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return err
	}

	keyIdx := -1
	fieldIdx := make([]int, len(fields))
	for i := range fieldIdx {
		fieldIdx[i] = -1
	}
	for i, h := range header {
		if h == onColumn {
			keyIdx = i
		}
		for j, f := range fields {
			if h == f {
				fieldIdx[j] = i
			}
		}
	}
	if keyIdx == -1 {
		return fmt.Errorf("tabular: column %q not found in %s", onColumn, path)
	}

	for {
		record, err := r.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}

		row := make([]string, len(fields))
		for i, idx := range fieldIdx {
			if idx >= 0 && idx < len(record) {
				row[i] = record[idx]
			}
		}

		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(row); err != nil {
			return err
		}
		if err := store.Set([]byte(record[keyIdx]), buf.Bytes()); err != nil {
			return err
		}
	}

	return nil
}
