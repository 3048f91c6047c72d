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
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/brunotm/flowgraph"
)

// wireObject is the cross-process representation of a flowgraph.Object.
// Ports cannot be sent by pointer across a process boundary, so each
// binding is keyed by the Port's numeric ID (see Port.ID / PortByID):
// both the driver and every worker mint ports via the exact same
// deterministic construction sequence, so the Nth NewPort call yields the
// same ID everywhere.
type wireObject struct {
	Seq    uint64
	Values map[uint64]interface{}
	RemOK  bool
	Remain int
}

// RegisterValueType registers the concrete type of v with encoding/gob, so
// it can flow through a port binding across the worker wire protocol. gob
// must know every concrete type that will ever be decoded into an
// interface{} value; call this once at init time for every value type a
// node inside a ParallelPipeline might bind, beyond the predeclared basics
// this package registers automatically.
func RegisterValueType(v interface{}) {
	gob.Register(v)
}

func init() {
	RegisterValueType(int(0))
	RegisterValueType(int64(0))
	RegisterValueType(float64(0))
	RegisterValueType(string(""))
	RegisterValueType(bool(false))
	RegisterValueType([]interface{}(nil))
	RegisterValueType(map[string]interface{}(nil))
}

// workMsg is one unit of dispatched work sent from the driver to a worker.
type workMsg struct {
	Seq    uint64
	Object wireObject
	Last   bool // true once all work has been sent to this worker
}

// resultMsg is a worker's reply to one dispatched workMsg, an upstream error
// the node raised, or (Done) the worker's acknowledgment that it has drained
// its input and emitted every result.
//
// A single dispatched Seq can produce any number of result objects: the
// inner sub-pipeline may itself contain a source (an "inner source" per a
// ParallelPipeline nested inside a fan-out), in which case it emits once per
// incoming outer object rather than exactly once. Idx numbers a Seq's reply
// group from 0; More is true on every reply but the last one belonging to
// that Seq, telling the reorder buffer it must keep draining this Seq before
// advancing to the next. Empty marks a Seq that produced zero result
// objects (Idx/More still apply, Object is unused) so the reorder buffer
// still has something to advance past.
type resultMsg struct {
	Seq    uint64
	Idx    int
	More   bool
	Empty  bool
	Object wireObject
	ErrKey string
	ErrMsg string
	Done   bool
}

func encodeObject(obj flowgraph.Object, seq uint64) wireObject {
	w := wireObject{Seq: seq, Values: make(map[uint64]interface{})}
	for _, p := range obj.Ports() {
		v, _ := obj.Get(p)
		w.Values[p.ID()] = v
	}
	w.Remain, w.RemOK = obj.Remaining()
	return w
}

func decodeObject(w wireObject) (flowgraph.Object, error) {
	obj := flowgraph.NewObject()
	for id, v := range w.Values {
		p, ok := flowgraph.PortByID(id)
		if !ok {
			return obj, fmt.Errorf("parallel: unknown port id %d in worker reply", id)
		}
		var err error
		obj, err = obj.Bind(p, v)
		if err != nil {
			return obj, err
		}
	}
	if w.RemOK {
		obj = obj.WithRemaining(w.Remain)
	}
	return obj, nil
}

// frameWriter/frameReader implement a simple length-prefixed gob wire
// protocol over a pipe: a uint32 byte length followed by that many gob
// encoded bytes. Framing lets the reader resynchronize message boundaries
// without relying on gob's own (unframed) stream semantics matching up
// exactly across a blocking pipe.
type frameWriter struct {
	w io.Writer
}

func newFrameWriter(w io.Writer) *frameWriter {
	return &frameWriter{w: w}
}

func (f *frameWriter) Write(v interface{}) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(buf.Len()))
	if _, err := f.w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := f.w.Write(buf.Bytes())
	return err
}

type frameReader struct {
	r *bufio.Reader
}

func newFrameReader(r io.Reader) *frameReader {
	return &frameReader{r: bufio.NewReader(r)}
}

func (f *frameReader) Read(v interface{}) error {
	var lenBuf [4]byte
	if _, err := io.ReadFull(f.r, lenBuf[:]); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(f.r, buf); err != nil {
		return err
	}
	return gob.NewDecoder(bytes.NewReader(buf)).Decode(v)
}
