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

// Package parallel implements ParallelPipeline, a scope-rewriter node that
// fans a stream out across a pool of OS subprocess workers and reassembles
// their replies in strict input order. It uses real subprocesses rather
// than goroutines because a worker is expected to genuinely crash in
// response to its host OS killing it (e.g. SIGKILL under memory pressure),
// and that failure mode cannot be faithfully reproduced by anything running
// inside the driver's own process.

import (
	"container/heap"
	"context"
	"io"
	"sync"

	"github.com/brunotm/flowgraph"
	"github.com/brunotm/flowgraph/types"
	"golang.org/x/sync/errgroup"
)

// Node is the ParallelPipeline scope-rewriter: registered once on a parent
// Scope, it owns a pool of worker subprocesses, each running an identical
// copy of the inner sub-pipeline built by the function passed to Build.
type Node struct {
	name     string
	scopeIdx uint64
	workers  int
	affinity *flowgraph.Port
	sub      *flowgraph.SubPipeline
	outPorts []*flowgraph.Port
}

var _ flowgraph.StreamTransformer = (*Node)(nil)

// Kind reports this node as types.Parallel for introspection.
func (n *Node) Kind() types.Kind {
	return types.Parallel
}

// Build registers a ParallelPipeline named name on parent, running fn
// against a fresh child Scope to construct the inner node chain that every
// worker subprocess will execute. workers must be positive; affinity, if
// non-nil, is read from each incoming object before dispatch, so it must be
// a port bound upstream of this node (a port bound only inside the inner
// scope is never set there, and objects then fall back to round robin). It
// routes objects sharing the same affinity value to the same worker,
// preserving any stateful locality a node in the inner chain depends on
// (e.g. a join against a per-worker in-memory cache).
//
// Build always executes fn, in every process, so that a re-exec'd worker
// subprocess reconstructs the identical inner scope before this call
// hijacks it into RunWorker — see worker.go.
func Build(parent *flowgraph.Scope, name string, workers int, affinity *flowgraph.Port, fn func(inner *flowgraph.Scope)) (*Node, error) {
	if workers <= 0 {
		return nil, &flowgraph.BuildError{Op: "parallel.Build", Reason: flowgraph.ErrInvalidWorkers.Error(), Err: flowgraph.ErrInvalidWorkers}
	}

	scopeIdx := nextBuildIndex()

	inner := parent.Child(name)
	fn(inner)
	outputs := inner.OwnedPorts()
	sub := inner.Freeze()

	if workerIdx, ok := isWorker(scopeIdx); ok {
		runWorkerAndExit(workerIdx, sub, affinity)
		panic("unreachable: runWorkerAndExit always calls os.Exit")
	}

	n := &Node{
		name:     name,
		scopeIdx: scopeIdx,
		workers:  workers,
		affinity: affinity,
		sub:      sub,
		outPorts: outputs,
	}

	if err := parent.AddNode(name, n, nil, outputs); err != nil {
		return nil, err
	}
	return n, nil
}

// OutputPorts returns the ports the inner sub-pipeline produced, the same
// slice surfaced to the parent scope by Build's call to AddNode.
func (n *Node) OutputPorts() []*flowgraph.Port {
	return n.outPorts
}

// TransformStream dispatches every incoming object to a worker subprocess
// (consistently, by affinity if configured) and re-emits replies in the
// exact order objects were received, regardless of which worker produced
// them or how long each took — a slow worker never blocks a fast one's
// replies internally, only the final re-ordering does, and only up to that
// slow worker's own turn.
func (n *Node) TransformStream(ctx context.Context, in flowgraph.Stream) flowgraph.Stream {
	procs := make([]*workerProc, n.workers)
	for i := range procs {
		p, err := spawnWorker(n.scopeIdx, i)
		if err != nil {
			return flowgraph.NewStream(func(ctx context.Context) (flowgraph.Object, bool, error) {
				return flowgraph.Object{}, false, &flowgraph.RuntimeError{Node: n.name, Err: err}
			}, func() error { return nil })
		}
		procs[i] = p
	}

	out := make(chan reply, n.workers*4)
	// died carries worker-death errors (one per liveness-checker goroutine,
	// at most n.workers) and the dispatcher/reader group's own error (at
	// most one more), hence the +1.
	died := make(chan *flowgraph.RuntimeError, n.workers+1)

	var wg sync.WaitGroup
	group, gctx := errgroup.WithContext(ctx)

	// Liveness checker: one per worker, reporting any non-zero exit of its
	// subprocess as a WorkerDiedError.
	for _, p := range procs {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			code := p.wait()
			if code != 0 {
				died <- &flowgraph.RuntimeError{Node: n.name, Err: &WorkerDiedError{Worker: p.index, ExitCode: code}}
			}
		}()
	}

	// Reader goroutine per worker: decodes resultMsg frames and forwards them.
	for _, p := range procs {
		p := p
		group.Go(func() error {
			for {
				var msg resultMsg
				if err := p.dec.Read(&msg); err != nil {
					if err == io.EOF {
						return nil
					}
					return err
				}
				if msg.Done {
					return nil
				}
				out <- reply{seq: msg.Seq, msg: msg}
				if gctx.Err() != nil {
					return gctx.Err()
				}
			}
		})
	}

	// Dispatcher: pulls from in, routes each object to a worker by
	// affinity (or round robin) and writes a workMsg to its stdin.
	group.Go(func() error {
		defer func() {
			for _, p := range procs {
				_ = p.enc.Write(&workMsg{Last: true})
				_ = p.stdin.Close()
			}
		}()

		var seq uint64
		for {
			obj, ok, err := in.Next(gctx)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}

			var affinityVal interface{}
			if n.affinity != nil {
				affinityVal, _ = obj.Get(n.affinity)
			}
			w := workerFor(seq, affinityVal, n.workers)

			if err := procs[w].enc.Write(&workMsg{Seq: seq, Object: encodeObject(obj, seq)}); err != nil {
				return err
			}
			seq++
		}
	})

	go func() {
		// group covers the dispatcher (reads in, the upstream the caller
		// handed us) and the per-worker reply readers: an upstream error or
		// a malformed reply surfaces here and must reach the reorder
		// stream, not be swallowed — it aborts the whole ParallelPipeline
		// the same way a worker death does.
		if err := group.Wait(); err != nil {
			died <- &flowgraph.RuntimeError{Node: n.name, Err: err}
		}
		wg.Wait()
		close(out)
		close(died)
	}()

	return newReorderStream(out, died, procs, in.Close)
}

// reply is one decoded resultMsg paired with the sequence it answers.
type reply struct {
	seq uint64
	msg resultMsg
}

// seqHeap is a min-heap of replies ordered by (sequence number, reply
// index), the reassembly buffer that restores strict input order across
// workers that may finish out of order. The index tiebreaker matters when a
// single dispatched Seq produces more than one reply (an inner source
// fanning out one outer object into many), so that Seq's replies come back
// out of the heap in the same order the worker emitted them.
type seqHeap []reply

func (h seqHeap) Len() int { return len(h) }
func (h seqHeap) Less(i, j int) bool {
	if h[i].seq != h[j].seq {
		return h[i].seq < h[j].seq
	}
	return h[i].msg.Idx < h[j].msg.Idx
}
func (h seqHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *seqHeap) Push(x interface{}) { *h = append(*h, x.(reply)) }
func (h *seqHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// newReorderStream drains replyCh into a min-heap and releases objects in
// strict (sequence, index) order as soon as the next expected reply arrives.
// An error a worker's inner node raised surfaces at the sequence position it
// applies to; an error on died (a worker death, or a dispatcher/reader
// failure) surfaces as soon as it is received.
func newReorderStream(replyCh chan reply, died chan *flowgraph.RuntimeError, procs []*workerProc, closeUpstream func() error) flowgraph.Stream {
	h := &seqHeap{}
	next := uint64(0)
	nextIdx := 0
	var pendingErr error

	return flowgraph.NewStream(
		func(ctx context.Context) (flowgraph.Object, bool, error) {
			if pendingErr != nil {
				return flowgraph.Object{}, false, pendingErr
			}

			for {
				if h.Len() > 0 && (*h)[0].seq == next && (*h)[0].msg.Idx == nextIdx {
					r := heap.Pop(h).(reply)
					if r.msg.ErrMsg != "" {
						pendingErr = &flowgraph.RuntimeError{Err: resolveKind(r.msg.ErrKey, r.msg.ErrMsg)}
						return flowgraph.Object{}, false, pendingErr
					}
					// Only advance past this Seq once its last reply (More
					// false) has been popped — a fanned-out Seq can have many
					// replies, released one Idx at a time in emission order.
					if r.msg.More {
						nextIdx++
					} else {
						next++
						nextIdx = 0
					}
					if r.msg.Empty {
						continue
					}
					obj, err := decodeObject(r.msg.Object)
					if err != nil {
						pendingErr = err
						return flowgraph.Object{}, false, err
					}
					return obj, true, nil
				}

				select {
				case r, ok := <-replyCh:
					if !ok {
						replyCh = nil
						if died == nil {
							return flowgraph.Object{}, false, nil
						}
						continue
					}
					heap.Push(h, r)
				case derr, ok := <-died:
					if !ok {
						died = nil
						if replyCh == nil {
							return flowgraph.Object{}, false, nil
						}
						continue
					}
					if derr != nil {
						pendingErr = derr
						return flowgraph.Object{}, false, derr
					}
				case <-ctx.Done():
					return flowgraph.Object{}, false, ctx.Err()
				}
			}
		},
		func() error {
			for _, p := range procs {
				_ = p.stdin.Close()
				_ = p.stdout.Close()
			}
			return closeUpstream()
		},
	)
}

func runWorkerAndExit(workerIdx int, sub *flowgraph.SubPipeline, affinity *flowgraph.Port) {
	runWorker(workerIdx, sub, affinity)
}
