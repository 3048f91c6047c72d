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
	"fmt"
	"net/http"
	"strings"

	"github.com/brunotm/flowgraph/internal/httpserver"
)

// InspectServer exposes a running Pipeline's shape and health over HTTP: a
// DOT graph of its node chain and a liveness probe. It is optional
// plumbing a long-running consumer of this package may start next to a
// Pipeline, built on the same httprouter-based Server the teacher used for
// its own admin endpoints.
type InspectServer struct {
	http *httpserver.Server
	p    *Pipeline
}

// NewInspectServer wires up /healthz and /graph for p on the given address.
func NewInspectServer(p *Pipeline, cfg httpserver.Config) *InspectServer {
	s := &InspectServer{p: p, http: httpserver.New(cfg)}
	s.http.AddHandler(http.MethodGet, "/healthz", s.handleHealth)
	s.http.AddHandler(http.MethodGet, "/graph", s.handleGraph)
	return s
}

// Start blocks serving HTTP until Close is called.
func (s *InspectServer) Start() error {
	return s.http.Start()
}

// Close shuts the HTTP server down.
func (s *InspectServer) Close() error {
	return s.http.Close(context.Background())
}

func (s *InspectServer) handleHealth(w http.ResponseWriter, r *http.Request, _ httpserver.Params) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "ok\n")
}

func (s *InspectServer) handleGraph(w http.ResponseWriter, r *http.Request, _ httpserver.Params) {
	w.Header().Set("Content-Type", "text/vnd.graphviz")
	fmt.Fprint(w, DotGraph(s.p))
}

// DotGraph renders a Pipeline's root scope as a Graphviz DOT digraph of its
// node registration order, for dashboards and debugging. Nested scopes
// (BatchPipeline, ParallelPipeline) are not expanded here: they appear as a
// single node in the chain, matching the black-box view a consumer of the
// outer Pipeline has of them.
func DotGraph(p *Pipeline) string {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", p.name)
	names := p.root.Entries()
	kinds := p.root.Kinds()
	prev := ""
	for i, name := range names {
		fmt.Fprintf(&b, "  %q [label=%q];\n", name, name+"\\n"+kinds[i].String())
		if prev != "" {
			fmt.Fprintf(&b, "  %q -> %q;\n", prev, name)
		}
		prev = name
	}
	fmt.Fprint(&b, "}\n")
	return b.String()
}
