package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/flowdiagram/pkg/buildinfo"
	"github.com/matzehuels/flowdiagram/pkg/diagram"
	errs "github.com/matzehuels/flowdiagram/pkg/errors"
	"github.com/matzehuels/flowdiagram/pkg/flow"
	"github.com/matzehuels/flowdiagram/pkg/pipeline"
	"github.com/matzehuels/flowdiagram/pkg/session"
)

// =============================================================================
// Request and response bodies
// =============================================================================

// PositionRequest is the body of a node move.
type PositionRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ConnectRequest is the body of a link creation.
type ConnectRequest struct {
	Source     string       `json:"source"`
	SourcePort string       `json:"sourcePort"`
	Target     string       `json:"target"`
	TargetPort string       `json:"targetPort"`
	Points     []flow.Point `json:"points"`
}

// FlowSummary describes a stored flow after a write.
type FlowSummary struct {
	Name     string                `json:"name"`
	Nodes    int                   `json:"nodes"`
	Links    int                   `json:"links"`
	Problems []diagram.NodeProblem `json:"problems"`
	Viewport diagram.Viewport      `json:"viewport"`
}

// =============================================================================
// Flows
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Short()})
}

func (s *Server) handleListFlows(w http.ResponseWriter, r *http.Request) {
	names, err := s.pool.Store().List(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"flows": names,
		"open":  s.pool.Open(),
	})
}

func (s *Server) handleGetFlow(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = flow.Write(sess.Document(), w)
}

func (s *Server) handlePutFlow(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "flow")
	doc, err := flow.Read(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.respondErr(w, r, errs.Wrap(errs.ErrCodeInvalidDocument, err, "invalid flow document"))
		return
	}
	if doc.Name == "" {
		doc.Name = name
	}
	if doc.Name != name {
		s.respondErr(w, r, errs.New(errs.ErrCodeInvalidInput, "document name %q does not match %q", doc.Name, name))
		return
	}

	sess, err := s.pool.Put(r.Context(), doc)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s.summary(sess))
}

func (s *Server) handleDeleteFlow(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "flow")
	if err := s.pool.Store().Delete(r.Context(), name); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.pool.Forget(name)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) summary(sess *session.Session) FlowSummary {
	nodes, links := sess.Manager().Counts()
	return FlowSummary{
		Name:     sess.Name(),
		Nodes:    nodes,
		Links:    links,
		Problems: sess.Problems(),
		Viewport: sess.Viewport(),
	}
}

// =============================================================================
// Diagram queries
// =============================================================================

func (s *Server) handleProblems(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"problems": sess.Problems()})
}

func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, sess.Viewport())
}

func (s *Server) handleFit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, sess.FitToView())
}

func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = pipeline.FormatSVG
	}
	opts := pipeline.Options{
		Formats:   []string{format},
		Detailed:  queryBool(q.Get("detailed")),
		Pinned:    queryBool(q.Get("pinned")),
		Terminals: queryBool(q.Get("terminals")),
	}
	if v := q.Get("scale"); v != "" {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil {
			s.respondErr(w, r, errs.New(errs.ErrCodeInvalidInput, "invalid scale %q", v))
			return
		}
		opts.Scale = scale
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		s.respondErr(w, r, err)
		return
	}

	res, err := s.runner.Render(r.Context(), sess.Manager(), opts)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", pipeline.ContentTypes[format])
	w.Header().Set("ETag", strconv.Quote(res.DiagramHash))
	if res.CacheHit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	_, _ = w.Write(res.Artifacts[format])
}

// =============================================================================
// Edits
// =============================================================================

func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var n flow.Node
	if !s.decode(w, r, &n) {
		return
	}
	added, err := sess.AddNode(r.Context(), n)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, added)
}

func (s *Server) handleMoveNode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req PositionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := sess.Move(r.Context(), chi.URLParam(r, "node"), req.X, req.Y); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.DeleteNode(r.Context(), chi.URLParam(r, "node")); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req ConnectRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.TargetPort == "" {
		req.TargetPort = diagram.InPort
	}
	l, err := sess.Connect(r.Context(), req.Source, req.SourcePort, req.Target, req.TargetPort, req.Points)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, l)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Disconnect(r.Context(), chi.URLParam(r, "node"), chi.URLParam(r, "port")); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.pool.Get(r.Context(), chi.URLParam(r, "flow"))
	if err != nil {
		s.respondErr(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		s.respondErr(w, r, errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid request body"))
		return false
	}
	return true
}

func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status := errs.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	code := errs.GetCode(err)
	if code == "" {
		code = errs.ErrCodeInternal
	}
	respondJSON(w, status, ErrorResponse{Error: string(code), Message: errs.UserMessage(err)})
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func queryBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}
