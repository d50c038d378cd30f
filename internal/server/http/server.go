package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redbasin/basin/internal/metrics"
	"github.com/redbasin/basin/internal/runtime"
	"github.com/redbasin/basin/internal/stream"
	"github.com/redbasin/basin/internal/streamdb"
	"github.com/redbasin/basin/pkg/log"
)

type Server struct {
	rt      *runtime.Runtime
	srv     *http.Server
	lis     net.Listener
	logger  log.Logger
	metrics *metrics.Metrics
}

// Options configures the HTTP server.
type Options struct {
	Logger  log.Logger
	Metrics *metrics.Metrics
}

func New(rt *runtime.Runtime, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewLogger()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	mux := http.NewServeMux()
	s := &Server{rt: rt, logger: logger.WithComponent("http"), metrics: m,
		srv: &http.Server{Handler: cors(mux)}}
	mux.HandleFunc("/v1/healthz", s.handleHealth)
	mux.HandleFunc("/v1/ns/create", s.handleNSCreate)
	mux.HandleFunc("/v1/streams/add", s.handleAdd)
	mux.HandleFunc("/v1/streams/range", s.handleRange)
	mux.HandleFunc("/v1/streams/search", s.handleSearch)
	mux.HandleFunc("/v1/streams/tail", s.handleTail)
	mux.HandleFunc("/v1/streams/info", s.handleInfo)
	mux.Handle("/metrics", m.Handler())
	return s
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("http server listening", log.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

// Addr returns the bound address, or nil before ListenAndServe.
func (s *Server) Addr() net.Addr {
	if s.lis == nil {
		return nil
	}
	return s.lis.Addr()
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps domain errors to HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, stream.ErrInvalidEntryID),
		errors.Is(err, streamdb.ErrEntryIDTooSmall):
		return http.StatusBadRequest
	case errors.Is(err, stream.ErrLastEntryIDReached):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.CheckHealth(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_serving"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type nsCreateReq struct {
	Namespace string `json:"namespace"`
}

func (s *Server) handleNSCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req nsCreateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if _, err := s.rt.EnsureNamespace(req.Namespace); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// namespaceOrDefault resolves the namespace of a request.
func (s *Server) namespaceOrDefault(ns string) string {
	if ns == "" {
		return s.rt.Config().DefaultNamespaceName
	}
	return ns
}

type addReq struct {
	Namespace string   `json:"namespace"`
	Stream    string   `json:"stream"`
	ID        string   `json:"id"`
	Fields    []string `json:"fields"`
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req addReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if req.Stream == "" || len(req.Fields) == 0 || len(req.Fields)%2 != 0 {
		writeError(w, http.StatusBadRequest, errors.New("stream and an even field list are required"))
		return
	}

	add := streamdb.AddRequest{Fields: make([][]byte, len(req.Fields))}
	for i, f := range req.Fields {
		add.Fields[i] = []byte(f)
	}
	if req.ID != "" && req.ID != "*" {
		id, err := stream.ParseNewEntryID(req.ID)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		add.ID = &id
	}

	st, err := s.rt.OpenStream(s.namespaceOrDefault(req.Namespace), req.Stream)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	id, err := st.Add(r.Context(), add)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.metrics.ObserveEntriesAdded(1)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id.String()})
}

type entryJSON struct {
	ID     string   `json:"id"`
	Fields []string `json:"fields"`
}

func entriesJSON(entries []streamdb.Entry) []entryJSON {
	out := make([]entryJSON, len(entries))
	for i, e := range entries {
		fields := make([]string, len(e.Fields))
		for j, f := range e.Fields {
			fields[j] = string(f)
		}
		out[i] = entryJSON{ID: e.ID.String(), Fields: fields}
	}
	return out
}

// rangeOptionsFromQuery parses start/end/count/reverse query parameters.
// start defaults to "-" and end to "+".
func rangeOptionsFromQuery(r *http.Request) (streamdb.RangeOptions, error) {
	var opts streamdb.RangeOptions
	q := r.URL.Query()

	startArg := q.Get("start")
	if startArg == "" || startArg == "-" {
		opts.Start = stream.Minimum()
	} else {
		if startArg[0] == '(' {
			opts.ExcludeStart = true
			startArg = startArg[1:]
		}
		id, err := stream.ParseRangeStart(startArg)
		if err != nil {
			return opts, err
		}
		opts.Start = id
	}

	endArg := q.Get("end")
	if endArg == "" || endArg == "+" {
		opts.End = stream.Maximum()
	} else {
		if endArg[0] == '(' {
			opts.ExcludeEnd = true
			endArg = endArg[1:]
		}
		id, err := stream.ParseRangeEnd(endArg)
		if err != nil {
			return opts, err
		}
		opts.End = id
	}

	if c := q.Get("count"); c != "" {
		n, err := strconv.ParseUint(c, 10, 64)
		if err != nil {
			return opts, errors.New("count is not an integer")
		}
		opts.Count = n
	}
	opts.Reverse = q.Get("reverse") == "true"
	return opts, nil
}

func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	opts, err := rangeOptionsFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	st, err := s.rt.OpenStream(s.namespaceOrDefault(q.Get("namespace")), q.Get("stream"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	entries, err := st.Range(r.Context(), opts)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.metrics.ObserveEntriesRead(len(entries))
	writeJSON(w, http.StatusOK, map[string]any{"entries": entriesJSON(entries)})
}

// handleSearch runs a range and keeps only entries matching a CEL filter
// expression passed in the "filter" query parameter.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	expr := q.Get("filter")
	if expr == "" {
		writeError(w, http.StatusBadRequest, errors.New("filter expression is required"))
		return
	}
	filter, err := streamdb.NewFilter(expr)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	opts, err := rangeOptionsFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	st, err := s.rt.OpenStream(s.namespaceOrDefault(q.Get("namespace")), q.Get("stream"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	entries, err := st.Range(r.Context(), opts)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	matched := entries[:0]
	for _, e := range entries {
		if filter.Eval(e) {
			matched = append(matched, e)
		}
	}
	s.metrics.ObserveEntriesRead(len(matched))
	writeJSON(w, http.StatusOK, map[string]any{"entries": entriesJSON(matched)})
}

// handleTail long-polls for entries after the given id. It returns
// immediately when entries already exist past "after", otherwise waits up to
// "wait_ms" (default 10s) for an append before re-reading.
func (s *Server) handleTail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()

	after := stream.Minimum()
	if a := q.Get("after"); a != "" {
		id, err := stream.ParseRangeStart(a)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		after = id
	}
	// wait_ms of 0 gets the default so a client cannot request an unbounded wait.
	wait := 10 * time.Second
	if ms := q.Get("wait_ms"); ms != "" {
		n, err := strconv.ParseUint(ms, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("wait_ms is not an integer"))
			return
		}
		if n > 0 {
			wait = time.Duration(n) * time.Millisecond
		}
	}

	st, err := s.rt.OpenStream(s.namespaceOrDefault(q.Get("namespace")), q.Get("stream"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	opts := streamdb.RangeOptions{Start: after, ExcludeStart: true, End: stream.Maximum()}
	entries, err := st.Range(r.Context(), opts)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if len(entries) == 0 && st.WaitForAppend(r.Context(), wait) {
		entries, err = st.Range(r.Context(), opts)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
	}
	s.metrics.ObserveEntriesRead(len(entries))
	writeJSON(w, http.StatusOK, map[string]any{"entries": entriesJSON(entries)})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	st, err := s.rt.OpenStream(s.namespaceOrDefault(q.Get("namespace")), q.Get("stream"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	info, err := st.Info(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	resp := map[string]any{
		"length":        info.Length,
		"entries_added": info.EntriesAdded,
		"last_id":       info.LastID.String(),
	}
	if info.FirstEntry != nil {
		resp["first_entry"] = entriesJSON([]streamdb.Entry{*info.FirstEntry})[0]
	}
	if info.LastEntry != nil {
		resp["last_entry"] = entriesJSON([]streamdb.Entry{*info.LastEntry})[0]
	}
	writeJSON(w, http.StatusOK, resp)
}
