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
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"

	"github.com/brunotm/flowgraph"
)

// Env var sentinels a re-exec'd worker process reads to discover which
// parallel.Build call it is standing in for, and which worker index within
// that call's pool. A binary's construction code runs unconditionally in
// every process; Build checks these at the matching build-order position
// and, if present, hijacks execution into RunWorker instead of returning
// normally to the rest of main().
const (
	envScope = "FLOWGRAPH_WORKER_SCOPE"
	envIndex = "FLOWGRAPH_WORKER_INDEX"
)

// buildCounter assigns each parallel.Build call in a process a deterministic
// 0-based build-order index. Both the driver and every re-exec'd worker
// execute the identical construction code from the top of main(), so the
// Nth Build call gets the same index in every process.
var buildCounter uint64
var buildCounterMu sync.Mutex

func nextBuildIndex() uint64 {
	buildCounterMu.Lock()
	defer buildCounterMu.Unlock()
	idx := buildCounter
	buildCounter++
	return idx
}

// workerProc is the driver's handle to one spawned worker subprocess: its
// OS process, and the framed pipes used to send it work and read its
// replies.
type workerProc struct {
	index  int
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	enc    *frameWriter
	dec    *frameReader
}

// spawnWorker re-execs the current binary (os.Args[0] with the same
// os.Args[1:]) with envScope/envIndex set so that, when it reaches the
// matching parallel.Build call during its own construction pass, it
// recognizes itself as a worker and hijacks into RunWorker instead of
// continuing the driver's own main(). Stdin/stdout are dedicated pipes, not
// inherited, so the wire protocol cannot collide with the driver's own
// terminal or logs.
func spawnWorker(scopeIdx uint64, workerIdx int) (*workerProc, error) {
	cmd := exec.Command(os.Args[0], os.Args[1:]...)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("%s=%d", envScope, scopeIdx),
		fmt.Sprintf("%s=%d", envIndex, workerIdx),
	)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return &workerProc{
		index:  workerIdx,
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdout,
		enc:    newFrameWriter(stdin),
		dec:    newFrameReader(stdout),
	}, nil
}

// wait blocks until the worker subprocess exits and reports its exit code
// the way syscall.WaitStatus does: non-negative for a normal exit, negative
// for the signal number that killed it (e.g. -9 for SIGKILL), matching what
// the original worker-death scenario expects ("Exit code: -SIGKILL").
func (w *workerProc) wait() int {
	err := w.cmd.Wait()
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				return -int(status.Signal())
			}
			return status.ExitStatus()
		}
	}
	return -1
}

// isWorker reports whether this process was re-exec'd to stand in as
// worker index workerIdx for the parallel.Build call at scopeIdx, and
// consumes (reads, does not clear) the env vars to decide.
func isWorker(scopeIdx uint64) (workerIdx int, ok bool) {
	scopeStr := os.Getenv(envScope)
	if scopeStr == "" {
		return 0, false
	}
	wantScope, err := strconv.ParseUint(scopeStr, 10, 64)
	if err != nil || wantScope != scopeIdx {
		return 0, false
	}
	idxStr := os.Getenv(envIndex)
	idx, err := strconv.Atoi(idxStr)
	if err != nil {
		return 0, false
	}
	return idx, true
}

// runWorker runs RunWorker against this process's real stdin/stdout and
// exits the process once the driver signals it has no more work. Build
// calls this directly (never returning) when it discovers, via isWorker,
// that this process was re-exec'd to stand in for workerIdx.
func runWorker(workerIdx int, sub *flowgraph.SubPipeline, affinity *flowgraph.Port) {
	err := RunWorker(context.Background(), sub, affinity, os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "flowgraph worker %d: %s\n", workerIdx, err)
		os.Exit(1)
	}
	os.Exit(0)
}

// RunWorker is the worker subprocess's main loop: it reads workMsg frames
// from stdin, runs each through sub (the same node chain the driver built,
// reconstructed identically in this process), and writes resultMsg frames
// to stdout, until it receives Last. It never returns under normal
// operation except at end of input; callers (the hijack in Build) os.Exit
// immediately after.
func RunWorker(ctx context.Context, sub *flowgraph.SubPipeline, affinityPort *flowgraph.Port, in io.Reader, out io.Writer) error {
	dec := newFrameReader(in)
	enc := newFrameWriter(out)

	for {
		var msg workMsg
		if err := dec.Read(&msg); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if msg.Last {
			_ = enc.Write(&resultMsg{Done: true})
			return nil
		}

		obj, err := decodeObject(msg.Object)
		if err != nil {
			_ = enc.Write(&resultMsg{Seq: msg.Seq, ErrMsg: err.Error()})
			continue
		}

		stream, runErr := sub.Run(ctx, obj)
		if runErr != nil {
			_ = enc.Write(&resultMsg{Seq: msg.Seq, ErrMsg: runErr.Error()})
			continue
		}

		results, collectErr := flowgraph.Collect(ctx, stream)
		if collectErr != nil {
			key := errorKind(unwrapRuntime(collectErr))
			_ = enc.Write(&resultMsg{Seq: msg.Seq, ErrKey: key, ErrMsg: collectErr.Error()})
			continue
		}

		if len(results) == 0 {
			// Nothing to emit for this Seq (e.g. a filtering inner node), but
			// the reorder buffer on the other end still needs a message to
			// advance past it.
			if err := enc.Write(&resultMsg{Seq: msg.Seq, Empty: true}); err != nil {
				return err
			}
			continue
		}

		for i, r := range results {
			m := &resultMsg{
				Seq:    msg.Seq,
				Idx:    i,
				More:   i < len(results)-1,
				Object: encodeObject(r, msg.Seq),
			}
			if err := enc.Write(m); err != nil {
				return err
			}
		}
	}
}

func unwrapRuntime(err error) error {
	type unwrapper interface{ Unwrap() error }
	for {
		u, ok := err.(unwrapper)
		if !ok {
			return err
		}
		next := u.Unwrap()
		if next == nil {
			return err
		}
		err = next
	}
}
