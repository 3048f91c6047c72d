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

// Object is a finite mapping from Port to value, flowing one at a time
// through a Stream. Objects are immutable from a node's point of view with
// respect to existing bindings: Bind never overwrites a port already set,
// it returns a new Object carrying the additional binding.
type Object struct {
	values map[*Port]interface{}

	// remaining/remainingOK carry the RemainingHint estimate computed once
	// by the root Stream executor from the root source's length hint (if
	// any) and propagated unchanged as the object threads through every
	// scope, including BatchPipeline egress, which restores the original
	// ingress objects untouched apart from new bindings.
	remaining   int
	remainingOK bool
}

// NewObject returns an empty Object.
func NewObject() Object {
	return Object{}
}

// Get returns the value bound to port, or ErrPortNotBound if it was never set.
func (o Object) Get(p *Port) (value interface{}, err error) {
	v, ok := o.values[p]
	if !ok {
		return nil, ErrPortNotBound
	}
	return v, nil
}

// IsBound reports whether port has a value on this object.
func (o Object) IsBound(p *Port) bool {
	_, ok := o.values[p]
	return ok
}

// Bind returns a new Object with port set to value. It fails with
// ErrPortBound if the port already carries a value, honoring invariant 1:
// no port is bound twice on the same object.
func (o Object) Bind(p *Port, value interface{}) (Object, error) {
	if _, ok := o.values[p]; ok {
		return o, ErrPortBound
	}

	next := o.clone()
	next.values[p] = value
	return next, nil
}

// MustBind is like Bind but panics on a duplicate binding. Useful for nodes
// that mint a fresh port per call and can never collide with themselves.
func (o Object) MustBind(p *Port, value interface{}) Object {
	next, err := o.Bind(p, value)
	if err != nil {
		panic(err)
	}
	return next
}

// Remaining returns the RemainingHint estimate attached to this object by the
// root Stream executor, if the root source reported a known length.
func (o Object) Remaining() (remaining int, ok bool) {
	return o.remaining, o.remainingOK
}

// WithRemaining attaches a RemainingHint estimate, used by the root executor
// when wrapping the outermost source's stream.
func (o Object) WithRemaining(remaining int) Object {
	next := o.clone()
	next.remaining = remaining
	next.remainingOK = true
	return next
}

// Ports returns the set of ports currently bound on this object. The order is
// unspecified.
func (o Object) Ports() []*Port {
	ports := make([]*Port, 0, len(o.values))
	for p := range o.values {
		ports = append(ports, p)
	}
	return ports
}

func (o Object) clone() Object {
	next := Object{
		values:      make(map[*Port]interface{}, len(o.values)+1),
		remaining:   o.remaining,
		remainingOK: o.remainingOK,
	}
	for p, v := range o.values {
		next.values[p] = v
	}
	return next
}

// merge returns a new Object containing every binding of o, overlaid with
// every binding of with. Ports present in both keep with's value. The
// scope-rewriter nodes (BatchPipeline, ParallelPipeline) live in other
// packages and do not use it; they add inner bindings with Bind.
func (o Object) merge(with Object) Object {
	next := Object{
		values:      make(map[*Port]interface{}, len(o.values)+len(with.values)),
		remaining:   o.remaining,
		remainingOK: o.remainingOK,
	}
	for p, v := range o.values {
		next.values[p] = v
	}
	for p, v := range with.values {
		next.values[p] = v
	}
	return next
}
