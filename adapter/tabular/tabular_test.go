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
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/brunotm/flowgraph"
	"github.com/brunotm/flowgraph/nodes"
	"github.com/brunotm/flowgraph/store/moss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVWriterWritesAccumulatedRows(t *testing.T) {
	p := flowgraph.NewPipeline("csv-writer-test")
	root := p.Root()

	id, err := nodes.Unpack(root, "id", []interface{}{"a", "b", "a"})
	require.NoError(t, err)
	val, err := nodes.Unpack(root, "val", []interface{}{1, 2, 3})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.csv")
	_, err = BuildCSVWriter(root, "writer", path,
		[]string{"id", "val"},
		map[string]*flowgraph.Port{"id": id, "val": val},
		[]string{"id"},
	)
	require.NoError(t, err)

	_, err = p.Collect(context.Background())
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	// The second Unpack fans out every object of the first, so 3x3 = 9
	// objects arrive; deduplicating on id keeps only the first row for "a"
	// and for "b": header + 2 rows.
	assert.Equal(t, []string{"id", "val"}, records[0])
	assert.Len(t, records, 3)
}

func TestJoinEnrichesFromCSVTable(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "meta.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("id,name,weight\n1,alpha,10\n2,beta,20\n"), 0o644))

	p := flowgraph.NewPipeline("join-test")
	root := p.Root()

	id, err := nodes.Unpack(root, "id", []interface{}{"1", "2"})
	require.NoError(t, err)

	join, err := BuildJoin(root, "join", id, csvPath, "id", []string{"name", "weight"}, moss.Supplier, flowgraph.NewConfig(nil))
	require.NoError(t, err)

	results, err := p.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	name0, err := results[0].Get(join.OutputPort("name"))
	require.NoError(t, err)
	assert.Equal(t, "alpha", name0)

	weight1, err := results[1].Get(join.OutputPort("weight"))
	require.NoError(t, err)
	assert.Equal(t, "20", weight1)
}
