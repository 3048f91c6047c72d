package main

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

// Command flowgraph-parallel-demo builds a small pipeline using a
// ParallelPipeline and runs it to completion, printing each output object.
// It exists because parallel.Build re-execs this very binary to spawn
// worker subprocesses; a `go test` binary cannot safely stand in for that
// role (re-exec'ing it replays its own test harness rather than dropping
// into the worker loop), so this is the vehicle for exercising real
// worker-subprocess behavior end to end: a nested Unpack fanned out across
// -workers subprocesses. It does not kill a worker, so worker death
// detection is not exercised here.

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/brunotm/flowgraph"
	"github.com/brunotm/flowgraph/nodes"
	"github.com/brunotm/flowgraph/parallel"
)

func main() {
	workers := flag.Int("workers", 4, "number of parallel workers")
	steps := flag.Int("steps", 31, "number of values to unpack")
	flag.Parse()

	p := flowgraph.NewPipeline("parallel-demo")
	root := p.Root()

	values := make([]interface{}, *steps)
	for i := range values {
		values[i] = i
	}

	level1, err := nodes.Unpack(root, "level1", values)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var level2 *flowgraph.Port
	_, err = parallel.Build(root, "parallel", *workers, nil, func(inner *flowgraph.Scope) {
		var innerErr error
		level2, innerErr = nodes.Unpack(inner, "level2", values)
		if innerErr != nil {
			fmt.Fprintln(os.Stderr, innerErr)
			os.Exit(1)
		}
		if innerErr = nodes.Sleep(inner, "pace", time.Millisecond); innerErr != nil {
			fmt.Fprintln(os.Stderr, innerErr)
			os.Exit(1)
		}
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx := context.Background()
	result, err := p.Collect(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pipeline error:", err)
		os.Exit(1)
	}

	for _, obj := range result {
		a, _ := obj.Get(level1)
		b, _ := obj.Get(level2)
		fmt.Println(a, b)
	}
}
