package leveldb

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

	"github.com/brunotm/flowgraph"
	"github.com/brunotm/flowgraph/store"
)

func TestLevelDBStore(t *testing.T) {
	cfg := flowgraph.NewConfig(nil)
	cfg.Set(t.TempDir(), "join-metadata", "state", "path")

	ctx := flowgraph.StoreContext{
		NodeName:   "join-metadata",
		StreamName: "join-metadata",
		Config:     cfg,
	}

	store.TestStore(t, Supplier, ctx)
}
