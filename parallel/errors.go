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

import "fmt"

// WorkerError describes an error a node raised while running inside a
// worker subprocess. Nothing in this package constructs it: such an error
// reaches the driver as a *flowgraph.RuntimeError wrapping either the exact
// sentinel registered via RegisterErrorKind, or, for anything else, a
// generic error carrying only its message (see resolveKind).
type WorkerError struct {
	Worker int
	Kind   string
	Msg    string
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker %d: %s", e.Worker, e.Msg)
}

// WorkerDiedError reports a worker subprocess that exited while it still had
// dispatched work outstanding, as opposed to a worker that raised a Go
// error and kept running. ExitCode is negative for a signal-terminated
// process (e.g. -9 for SIGKILL), mirroring syscall.WaitStatus's convention.
type WorkerDiedError struct {
	Worker   int
	ExitCode int
}

func (e *WorkerDiedError) Error() string {
	return fmt.Sprintf("worker %d died unexpectedly. exit code: %d", e.Worker, e.ExitCode)
}

// kindRegistry maps a stable string key to a sentinel error value, so a
// worker can tag a WorkerError with the kind of a well-known sentinel (e.g.
// flowgraph.ErrPortNotBound) and the driver can hand back the exact same
// value instead of a reconstructed generic error.
var kindRegistry = map[string]error{}

// RegisterErrorKind associates a stable key with a sentinel error value.
// Call this for every sentinel a node running inside a ParallelPipeline
// worker might return, so WorkerError round-trips it faithfully.
func RegisterErrorKind(key string, sentinel error) {
	kindRegistry[key] = sentinel
}

func errorKind(err error) string {
	for key, sentinel := range kindRegistry {
		if err == sentinel {
			return key
		}
	}
	return ""
}

func resolveKind(key, msg string) error {
	if key != "" {
		if sentinel, ok := kindRegistry[key]; ok {
			return sentinel
		}
	}
	return fmt.Errorf("%s", msg)
}
