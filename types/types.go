package types

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

// Kind classifies a node for introspection purposes (the pipeline DOT graph
// and health endpoints): whether it originates, transforms, rewrites scope
// or terminates a stream.
type Kind uint8

func (k Kind) String() (name string) {
	switch k {
	case Source:
		return "source"
	case Transform:
		return "transform"
	case Batch:
		return "batch"
	case Parallel:
		return "parallel"
	case Sink:
		return "sink"
	}
	return "unknown"
}

const (
	// Transform is an ordinary 1:1 (or bounded fan-out) Node.
	Transform = Kind(0)
	// Source is a node that originates objects (overrides TransformStream).
	Source = Kind(1)
	// Batch is a BatchPipeline scope-rewriter node.
	Batch = Kind(2)
	// Parallel is a ParallelPipeline scope-rewriter node.
	Parallel = Kind(3)
	// Sink is a node with no output ports, consumed only for side effects.
	Sink = Kind(4)
)
