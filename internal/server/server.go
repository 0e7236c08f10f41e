package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/rendis/txlens/internal/filter"
	"github.com/rendis/txlens/internal/layout"
	"github.com/rendis/txlens/internal/logging"
	"github.com/rendis/txlens/internal/playback"
	"github.com/rendis/txlens/internal/render"
	"github.com/rendis/txlens/internal/store"
	"github.com/rendis/txlens/internal/streaming"
	"github.com/rendis/txlens/internal/validation"
	"github.com/rendis/txlens/pkg/schema"
)

// maxDocumentBytes caps ingest request bodies.
const maxDocumentBytes = 4 << 20

// Deps holds the dependencies for the API server.
type Deps struct {
	Store     store.Store
	Validator *validation.DocumentValidator
	Engine    *layout.Engine
	Hub       streaming.EventHub
	Sessions  *SessionManager
	Filters   map[string]filter.Engine
	Logger    *slog.Logger

	// SpeedMs is the playback speed for sessions that do not set one.
	SpeedMs int
}

// Server serves the transaction graph HTTP API.
type Server struct {
	deps Deps
}

// NewServer creates a Server, filling in defaults for optional deps.
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if deps.Engine == nil {
		deps.Engine = layout.NewEngine(layout.DefaultConfig())
	}
	if deps.Sessions == nil {
		deps.Sessions = NewSessionManager(deps.Engine, deps.Hub, deps.Logger)
	}
	return &Server{deps: deps}
}

// Handler returns the HTTP handler for the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Transaction cache.
	mux.HandleFunc("POST /api/transactions", s.handleIngest)
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("GET /api/transactions/{hash}", s.handleGetTransaction)

	// One-shot layout and exports.
	mux.HandleFunc("GET /api/transactions/{hash}/graph", s.handleGraph)
	mux.HandleFunc("GET /api/transactions/{hash}/export/mermaid", s.handleExportMermaid)
	mux.HandleFunc("GET /api/transactions/{hash}/export/png", s.handleExportPNG)

	// Viewing sessions.
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleSessionState)
	mux.HandleFunc("POST /api/sessions/{id}/playback", s.handlePlayback)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleCloseSession)

	// SSE streams.
	mux.HandleFunc("GET /sse/sessions/{id}", s.handleSSESession)
	mux.HandleFunc("GET /sse/events", s.handleSSEGlobal)

	return mux
}

// handleIngest validates a transaction document and caches it by hash.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	doc, err := s.deps.Validator.Validate(body)
	if err != nil {
		writeTxlensError(w, err)
		return
	}
	if doc.TxHash == "" {
		writeError(w, http.StatusBadRequest, "tx_hash is required for caching")
		return
	}

	ops, err := json.Marshal(doc.Operations)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode operations")
		return
	}

	ctx := logging.WithTxHash(r.Context(), doc.TxHash)
	tx := &store.Transaction{
		Hash:       doc.TxHash,
		Network:    r.URL.Query().Get("network"),
		Operations: ops,
		TraceLines: doc.Trace,
	}
	if err := s.deps.Store.SaveTransaction(ctx, tx); err != nil {
		s.deps.Logger.Error("save transaction failed", "tx_hash", doc.TxHash, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to cache transaction")
		return
	}

	s.deps.Logger.InfoContext(ctx, "transaction cached",
		"tx_hash", doc.TxHash, "operations", len(doc.Operations), "trace_lines", len(doc.Trace))
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         tx.ID,
		"tx_hash":    tx.Hash,
		"operations": len(doc.Operations),
	})
}

// handleListTransactions lists cached transactions, newest first.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f := store.TransactionFilter{
		Network: r.URL.Query().Get("network"),
		Limit:   queryInt(r, "limit", 50),
	}
	txs, err := s.deps.Store.ListTransactions(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	summaries := make([]map[string]any, 0, len(txs))
	for _, tx := range txs {
		summaries = append(summaries, map[string]any{
			"hash":       tx.Hash,
			"network":    tx.Network,
			"fetched_at": tx.FetchedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": summaries})
}

// handleGetTransaction returns the full cached document.
func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.deps.Store.GetTransaction(r.Context(), r.PathValue("hash"))
	if err != nil {
		writeTxlensError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// handleGraph computes a one-shot layout for a cached transaction.
// Query params: mode, cursor, edges, filter, dialect.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	frame, err := s.computeFrame(r)
	if err != nil {
		writeTxlensError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, frame)
}

// handleExportMermaid renders the current layout as a Mermaid flowchart.
func (s *Server) handleExportMermaid(w http.ResponseWriter, r *http.Request) {
	frame, err := s.computeFrame(r)
	if err != nil {
		writeTxlensError(w, err)
		return
	}
	out := render.Mermaid(r.PathValue("hash"), frame.Nodes, frame.Edges)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, out)
}

// handleExportPNG renders the current layout as a PNG via graphviz.
func (s *Server) handleExportPNG(w http.ResponseWriter, r *http.Request) {
	frame, err := s.computeFrame(r)
	if err != nil {
		writeTxlensError(w, err)
		return
	}
	png, err := render.Image(r.PathValue("hash"), frame.Nodes, frame.Edges)
	if err != nil {
		s.deps.Logger.Error("png export failed", "tx_hash", r.PathValue("hash"), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to render image")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// computeFrame loads a cached transaction and computes its layout from the
// request's query parameters.
func (s *Server) computeFrame(r *http.Request) (*Frame, error) {
	hash := r.PathValue("hash")
	tx, err := s.deps.Store.GetTransaction(r.Context(), hash)
	if err != nil {
		return nil, err
	}

	var ops []schema.Operation
	if len(tx.Operations) > 0 {
		if err := json.Unmarshal(tx.Operations, &ops); err != nil {
			return nil, schema.NewError(schema.ErrCodeStore, "cached operations are corrupt").WithTx(hash).WithCause(err)
		}
	}

	q := r.URL.Query()
	if expr := q.Get("filter"); expr != "" {
		dialect := q.Get("dialect")
		if dialect == "" {
			dialect = "expr"
		}
		eng := s.deps.Filters[dialect]
		if eng == nil {
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown filter dialect %q", dialect)
		}
		ops, err = filter.Operations(r.Context(), eng, expr, ops)
		if err != nil {
			return nil, err
		}
	}

	sess := &Session{
		TxHash:    hash,
		Mode:      schema.LayoutMode(q.Get("mode")),
		WithEdges: q.Get("edges") != "false",
		ops:       ops,
	}
	sess.controller = playback.NewController(len(ops), 0, nil, s.deps.Logger)
	if cursor := queryInt(r, "cursor", -1); cursor >= 0 {
		for i := 0; i <= cursor && i < len(ops); i++ {
			sess.controller.StepForward()
		}
	}
	if q.Get("trace") != "false" {
		sess.forest = parseForest(tx.TraceLines)
	}

	frame := sess.Frame(s.deps.Engine)
	return &frame, nil
}

// handleCreateSession opens a live viewing session over a cached transaction.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TxHash  string            `json:"tx_hash"`
		Mode    schema.LayoutMode `json:"mode"`
		SpeedMs int               `json:"speed_ms"`
		Edges   *bool             `json:"edges"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.TxHash == "" {
		writeError(w, http.StatusBadRequest, "tx_hash is required")
		return
	}

	tx, err := s.deps.Store.GetTransaction(r.Context(), req.TxHash)
	if err != nil {
		writeTxlensError(w, err)
		return
	}

	var ops []schema.Operation
	if len(tx.Operations) > 0 {
		if err := json.Unmarshal(tx.Operations, &ops); err != nil {
			writeError(w, http.StatusInternalServerError, "cached operations are corrupt")
			return
		}
	}

	withEdges := true
	if req.Edges != nil {
		withEdges = *req.Edges
	}
	speedMs := req.SpeedMs
	if speedMs <= 0 {
		speedMs = s.deps.SpeedMs
	}
	sess := s.deps.Sessions.Create(ops, tx.TraceLines,
		req.Mode, time.Duration(speedMs)*time.Millisecond, withEdges, req.TxHash)

	frame := sess.Frame(s.deps.Engine)
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": sess.ID,
		"frame":      frame,
	})
}

// handleSessionState returns the current frame for a session.
func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	sess := s.deps.Sessions.Get(r.PathValue("id"))
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess.Frame(s.deps.Engine))
}

// handlePlayback applies a playback action to a session. Actions:
// step_forward, step_backward, play_pause, reset, set_speed.
func (s *Server) handlePlayback(w http.ResponseWriter, r *http.Request) {
	sess := s.deps.Sessions.Get(r.PathValue("id"))
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	var req struct {
		Action  string `json:"action"`
		SpeedMs int    `json:"speed_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var state schema.PlaybackState
	switch req.Action {
	case "step_forward":
		state = sess.controller.StepForward()
	case "step_backward":
		state = sess.controller.StepBackward()
	case "play_pause":
		state = sess.controller.PlayPause()
	case "reset":
		state = sess.controller.Reset()
	case "set_speed":
		sess.controller.SetSpeed(time.Duration(req.SpeedMs) * time.Millisecond)
		state = sess.controller.Snapshot()
	default:
		writeError(w, http.StatusBadRequest, "unknown playback action "+req.Action)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"state": state})
}

// handleCloseSession tears down a session.
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	s.deps.Sessions.Close(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}
