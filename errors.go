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
	"errors"
	"fmt"
)

var (
	errEmptyName    = errors.New("name cannot be empty")
	errStreamClosed = errors.New("stream already closed")

	// ErrPortBound is returned by Object.Bind when the port already carries a value.
	ErrPortBound = errors.New("port already bound on this object")
	// ErrPortNotBound is returned by Object.Get when the port has no value.
	ErrPortNotBound = errors.New("port not bound on this object")
	// ErrBatchShape is returned when an inner BatchPipeline result can be
	// neither scattered (exact batch-length sequence) nor broadcast (scalar).
	ErrBatchShape = errors.New("batch result has ambiguous shape")
	// ErrInvalidBatchSize is returned by batch.Build when batchSize is not
	// a positive integer.
	ErrInvalidBatchSize = errors.New("batch size must be a positive integer")
	// ErrInvalidWorkers is returned by parallel.Build when workers is not
	// a positive integer.
	ErrInvalidWorkers = errors.New("num workers must be a positive integer")
)

// BuildError is raised synchronously at pipeline construction time: an
// unbound port reference, an invalid parameter, or a malformed scope. Err is
// optional and lets callers match a specific sentinel (e.g.
// ErrInvalidBatchSize) via errors.Is; Reason is always set and carries the
// human-readable detail even when Err is nil.
type BuildError struct {
	Op     string
	Reason string
	Err    error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("flowgraph: build error in %s: %s", e.Op, e.Reason)
}

// Unwrap exposes the underlying sentinel, when set, for errors.Is/errors.As.
func (e *BuildError) Unwrap() error {
	return e.Err
}

// errUnboundPort builds the BuildError raised when a node reads a port that
// was never bound by an ancestor-in-stream node within the same scope chain.
func errUnboundPort(op string, p *Port) *BuildError {
	name := "<nil>"
	if p != nil {
		name = p.String()
	}
	return &BuildError{Op: op, Reason: "unbound port " + name}
}

// RuntimeError wraps an error raised by a node's Transform or TransformStream,
// tagged with the offending node name. Runtime errors tear down the stream.
type RuntimeError struct {
	Node string
	Err  error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("flowgraph: node %q: %s", e.Node, e.Err)
}

// Unwrap exposes the underlying node error for errors.Is/errors.As matching.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}
