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

// Package tabular adapts flowgraph pipelines to flat tabular data: CSVWriter
// accumulates bound ports into rows and flushes a CSV file once the stream
// is exhausted, and Join enriches a stream against a CSV reference table
// loaded into a flowgraph.Store (leveldb or moss) keyed by a column value.

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/brunotm/flowgraph"
	"github.com/brunotm/flowgraph/types"
	"github.com/cespare/xxhash"
)

// CSVWriter buffers one row per object it sees and writes them all to a CSV
// file once the stream ends, mirroring PandasWriter's "accumulate during
// transform, flush in after_stream" shape, minus the pandas dependency: a
// row here is a plain ordered slice of column values rather than a
// DataFrame.
type CSVWriter struct {
	name    string
	path    string
	columns []string
	ports   map[string]*flowgraph.Port
	dedupe  []string

	mu   sync.Mutex
	seen map[uint64]struct{}
	rows [][]string
}

var _ flowgraph.Transformer = (*CSVWriter)(nil)
var _ flowgraph.AfterStreamer = (*CSVWriter)(nil)

// Kind reports this node as types.Sink for introspection.
func (n *CSVWriter) Kind() types.Kind {
	return types.Sink
}

// BuildCSVWriter registers a sink node named name that writes path once the
// stream completes. order lists the CSV column headers in output order, and
// columns maps each of them to the port whose value fills it. dedupe,
// if non-empty, names a subset of columns used to drop duplicate rows,
// mirroring drop_duplicates_subset; rows are deduplicated by an xxhash
// fingerprint of the subset's values rather than a full equality
// comparison, trading a vanishingly small collision probability for O(1)
// membership tracking over an unbounded row count.
func BuildCSVWriter(s *flowgraph.Scope, name, path string, order []string, columns map[string]*flowgraph.Port, dedupe []string) (*CSVWriter, error) {
	inputs := make([]*flowgraph.Port, 0, len(order))
	for _, col := range order {
		p, ok := columns[col]
		if !ok {
			return nil, &flowgraph.BuildError{Op: "tabular.BuildCSVWriter", Reason: "column " + col + " has no port"}
		}
		inputs = append(inputs, p)
	}

	n := &CSVWriter{
		name:    name,
		path:    path,
		columns: order,
		ports:   columns,
		dedupe:  dedupe,
		seen:    make(map[uint64]struct{}),
	}

	if err := s.AddNode(name, n, inputs, nil); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *CSVWriter) Transform(obj flowgraph.Object) (flowgraph.Object, error) {
	row := make([]string, len(n.columns))
	for i, col := range n.columns {
		v, err := obj.Get(n.ports[col])
		if err != nil {
			return obj, &flowgraph.RuntimeError{Node: n.name, Err: err}
		}
		row[i] = fmt.Sprint(v)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.dedupe) > 0 {
		h := n.fingerprint(row)
		if _, ok := n.seen[h]; ok {
			return obj, nil
		}
		n.seen[h] = struct{}{}
	}

	n.rows = append(n.rows, row)
	return obj, nil
}

func (n *CSVWriter) fingerprint(row []string) uint64 {
	var buf []byte
	for _, col := range n.dedupe {
		for i, c := range n.columns {
			if c == col {
				buf = append(buf, row[i]...)
				buf = append(buf, 0)
			}
		}
	}
	return xxhash.Sum64(buf)
}

// AfterStream writes every accumulated row to n.path as CSV, header first.
func (n *CSVWriter) AfterStream() error {
	f, err := os.Create(n.path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(n.columns); err != nil {
		return err
	}

	n.mu.Lock()
	rows := n.rows
	n.mu.Unlock()

	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
