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

import "context"

// Stream is a lazy, finite, non-restartable sequence of Objects. Next
// returns (obj, true, nil) for each object in turn, then (Object{}, false,
// nil) on exhaustion, or (Object{}, false, err) if a node aborted the
// stream. Close must be called exactly once and releases every resource
// held by the nodes that produced or consumed this stream (goroutines,
// worker subprocesses, queues), even if Next was never exhausted.
type Stream interface {
	Next(ctx context.Context) (Object, bool, error)
	Close() error
}

// funcStream adapts a pull function and a close function to Stream.
type funcStream struct {
	next   func(ctx context.Context) (Object, bool, error)
	close  func() error
	closed bool
}

func (s *funcStream) Next(ctx context.Context) (Object, bool, error) {
	return s.next(ctx)
}

// Close releases the stream's resources. Calling it more than once is a
// caller bug, not a no-op: collect and Pipeline.Run each call Close exactly
// once, so a second call surfacing errStreamClosed catches a node or adapter
// double-closing its upstream.
func (s *funcStream) Close() error {
	if s.closed {
		return errStreamClosed
	}
	s.closed = true
	if s.close == nil {
		return nil
	}
	return s.close()
}

// NewStream builds a Stream from a pull function and an optional close
// function (nil is treated as a no-op). Adapter packages (batch, parallel,
// nodes) that implement StreamTransformer use this instead of hand-rolling
// the Stream interface.
func NewStream(next func(ctx context.Context) (Object, bool, error), close func() error) Stream {
	return &funcStream{next: next, close: close}
}

// Collect drains s to completion and returns every object it produced. It
// is the exported counterpart of the package-internal collect, for adapter
// packages whose scope-rewriter nodes run an inner sub-pipeline to
// completion once per outer object or batch.
func Collect(ctx context.Context, s Stream) ([]Object, error) {
	return collect(ctx, s)
}

// emptyStream is the Stream with no objects.
var emptyStream Stream = &funcStream{
	next: func(ctx context.Context) (Object, bool, error) { return Object{}, false, nil },
}

// sliceStream replays a pre-built slice of objects, the shape the root seed
// and singleton sub-pipeline seeds are built from.
func sliceStream(objs []Object) Stream {
	i := 0
	return &funcStream{
		next: func(ctx context.Context) (Object, bool, error) {
			if i >= len(objs) {
				return Object{}, false, nil
			}
			o := objs[i]
			i++
			return o, true, nil
		},
	}
}

// errStream is a Stream that immediately fails with err.
func errStream(err error) Stream {
	done := false
	return &funcStream{
		next: func(ctx context.Context) (Object, bool, error) {
			if done {
				return Object{}, false, nil
			}
			done = true
			return Object{}, false, err
		},
	}
}

// annotateRemaining wraps the root source's stream, attaching a
// RemainingHint estimate to every object when the source reports a known
// length via Lengther. The estimate is the count of objects still to come
// strictly after the current one.
func annotateRemaining(in Stream, total int, known bool) Stream {
	if !known {
		return in
	}

	index := 0
	return &funcStream{
		next: func(ctx context.Context) (Object, bool, error) {
			obj, ok, err := in.Next(ctx)
			if err != nil || !ok {
				return obj, ok, err
			}
			remaining := total - index - 1
			if remaining < 0 {
				remaining = 0
			}
			index++
			return obj.WithRemaining(remaining), true, nil
		},
		close: in.Close,
	}
}

// wrapTransform builds the default TransformStream implementation for a
// node that only implements Transformer: BeforeStream runs lazily on first
// pull, Transform runs once per object, AfterStream runs on end-of-stream or
// Close, whichever happens first. This mirrors the teacher's
// Context.start/Context.close lifecycle pairing, generalized from a
// goroutine-per-context model to a pull-based iterator.
func wrapTransform(name string, node Transformer, in Stream) Stream {
	var (
		started  bool
		finished bool
	)

	before := func() error {
		if started {
			return nil
		}
		started = true
		if b, ok := node.(BeforeStreamer); ok {
			return b.BeforeStream()
		}
		return nil
	}

	after := func() error {
		if finished || !started {
			return nil
		}
		finished = true
		if a, ok := node.(AfterStreamer); ok {
			return a.AfterStream()
		}
		return nil
	}

	return &funcStream{
		next: func(ctx context.Context) (Object, bool, error) {
			if err := before(); err != nil {
				return Object{}, false, &RuntimeError{Node: name, Err: err}
			}

			obj, ok, err := in.Next(ctx)
			if err != nil {
				after()
				return Object{}, false, err
			}
			if !ok {
				if err := after(); err != nil {
					return Object{}, false, &RuntimeError{Node: name, Err: err}
				}
				return Object{}, false, nil
			}

			out, err := node.Transform(obj)
			if err != nil {
				after()
				return Object{}, false, &RuntimeError{Node: name, Err: err}
			}
			return out, true, nil
		},
		close: func() error {
			closeErr := in.Close()
			if err := after(); err != nil {
				return err
			}
			return closeErr
		},
	}
}

// collect drains a Stream to completion, discarding objects. It is the
// building block for Pipeline.Run and test helpers.
func collect(ctx context.Context, s Stream) ([]Object, error) {
	var out []Object
	for {
		obj, ok, err := s.Next(ctx)
		if err != nil {
			s.Close()
			return out, err
		}
		if !ok {
			return out, s.Close()
		}
		out = append(out, obj)
	}
}
