package parallel

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

	"github.com/dgryski/go-jump"
	"github.com/dgryski/go-wyhash"
)

// affinitySeed is an arbitrary fixed seed for wyhash; it only needs to be
// stable within one run, since routing decisions never cross a restart.
const affinitySeed = 0x5bd1e995

// workerFor routes a value to one of numWorkers worker indices. With no
// affinity key it round-robins via seq; with one, it hashes the key's
// textual form with wyhash and maps that hash onto a worker bucket with
// go-jump, the same consistent-hash scheme the teacher's task.go uses to
// route records across goroutine worker buffers (jump.Hash(record.id,
// buckets)) — here routing to OS subprocess workers instead.
func workerFor(seq uint64, affinity interface{}, numWorkers int) int {
	if numWorkers <= 1 {
		return 0
	}
	if affinity == nil {
		return int(seq % uint64(numWorkers))
	}
	key := wyhash.Hash([]byte(fmt.Sprint(affinity)), affinitySeed)
	return int(jump.Hash(key, int32(numWorkers)))
}
