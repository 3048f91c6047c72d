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
	"context"
	"time"

	"github.com/brunotm/flowgraph/log"
	"github.com/google/uuid"
)

// defaultCloseTimeout bounds how long Pipeline.Run, once the caller's
// context is done and it has called Stream.Close, waits for the draining
// goroutine to return. A run whose stream is exhausted normally does not use
// it. Mirrors the teacher's Builder.closeTimeout.
const defaultCloseTimeout = 30 * time.Second

// Pipeline is the root construction scope and executor. It is the top of
// the scope tree every BatchPipeline and ParallelPipeline nests under.
type Pipeline struct {
	name         string
	root         *Scope
	closeTimeout time.Duration
	log          log.Logger
}

// NewPipeline creates an empty Pipeline named name, ready for node
// registration via Root().
func NewPipeline(name string) *Pipeline {
	if name == "" {
		name = "pipeline"
	}
	return &Pipeline{
		name:         name,
		root:         NewScope(name),
		closeTimeout: defaultCloseTimeout,
		log:          log.New("pipeline", name),
	}
}

// Root returns the Pipeline's root Scope, the construction context node
// constructors take as their first argument.
func (p *Pipeline) Root() *Scope {
	return p.root
}

// SetCloseTimeout overrides the default bound on Stream.Close during Run.
func (p *Pipeline) SetCloseTimeout(d time.Duration) {
	p.closeTimeout = d
}

// TransformStream freezes the root scope and composes its node chain over
// the implicit single empty-object root seed, exactly as §4.3 describes: a
// 0:N source node at the front of the chain turns that one seed object into
// however many objects it produces; every downstream node sees only what
// upstream bound.
func (p *Pipeline) TransformStream(ctx context.Context) Stream {
	return p.root.Freeze().RunRoot(ctx)
}

// Run drives the pipeline to completion, discarding output objects, and
// guarantees Stream.Close runs even if ctx is canceled mid-stream. It is the
// entry point for a pipeline with no meaningful output ports (everything of
// interest happens through side effects in AfterStream hooks, e.g. a writer
// adapter node flushing to disk).
func (p *Pipeline) Run(ctx context.Context) error {
	runID := uuid.New().String()
	p.log.Infow("pipeline run started", "pipeline", p.name, "run_id", runID)

	stream := p.TransformStream(ctx)

	done := make(chan error, 1)
	go func() {
		_, err := collect(ctx, stream)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			p.log.Errorw("pipeline run failed", "pipeline", p.name, "run_id", runID, "error", err)
		} else {
			p.log.Infow("pipeline run finished", "pipeline", p.name, "run_id", runID)
		}
		return err
	case <-ctx.Done():
		closeCtx, cancel := context.WithTimeout(context.Background(), p.closeTimeout)
		defer cancel()
		closeErr := stream.Close()
		select {
		case <-done:
		case <-closeCtx.Done():
			p.log.Warnw("timed out waiting for stream to close", "pipeline", p.name)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return closeErr
	}
}

// Collect drives the pipeline to completion and returns every output
// object, for tests and small pipelines where buffering the whole result in
// memory is acceptable.
func (p *Pipeline) Collect(ctx context.Context) ([]Object, error) {
	return collect(ctx, p.TransformStream(ctx))
}
