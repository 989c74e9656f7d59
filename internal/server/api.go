package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/matijazezelj/wayfind/internal/graph"
	"github.com/matijazezelj/wayfind/internal/navigation"
	"github.com/matijazezelj/wayfind/internal/wayfinder"
	"github.com/matijazezelj/wayfind/pkg/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeQueryError maps service errors onto status codes. Not-found
// outcomes carry the human-readable reason.
func (s *Server) writeQueryError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, navigation.ErrNoSafeTarget):
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error":   "no safe target",
			"reason":  err.Error(),
			"warning": "no_safe_target",
		})
	case navigation.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error":  "no route",
			"reason": err.Error(),
		})
	case errors.Is(err, navigation.ErrUnknownNode):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, wayfinder.ErrEdgeNotFound), errors.Is(err, wayfinder.ErrHazardNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, wayfinder.ErrNoBuilding):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// parseBool reads an optional boolean query parameter.
func parseBool(r *http.Request, key string) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

func optionalBool(r *http.Request, key string) (*bool, error) {
	if r.URL.Query().Get(key) == "" {
		return nil, nil
	}
	b, err := parseBool(r, key)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.cfg.Version})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Metrics == nil {
		writeError(w, http.StatusNotFound, "metrics disabled")
		return
	}
	s.cfg.Metrics.ServeHTTP(w, r)
}

func (s *Server) activeBlocked(ctx context.Context) ([]models.BlockedEdge, []models.Hazard, error) {
	hazards, err := s.svc.ActiveHazards(ctx)
	if err != nil {
		return nil, nil, err
	}
	if hazards == nil {
		hazards = []models.Hazard{}
	}
	blocked := make([]models.BlockedEdge, 0, len(hazards))
	for _, h := range hazards {
		blocked = append(blocked, h.Blocked())
	}
	return blocked, hazards, nil
}

func (s *Server) handleBuilding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	nodes, err := s.store.ListNodes(ctx, graph.NodeFilter{})
	if err != nil {
		s.logger.Error("listing nodes", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	edges, err := s.store.ListEdges(ctx, graph.EdgeFilter{})
	if err != nil {
		s.logger.Error("listing edges", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	_, hazards, err := s.activeBlocked(ctx)
	if err != nil {
		s.logger.Error("listing hazards", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if nodes == nil {
		nodes = []models.Node{}
	}
	if edges == nil {
		edges = []models.Edge{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes":   nodes,
		"edges":   edges,
		"hazards": hazards,
	})
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	accessible, err := optionalBool(r, "accessible")
	if err != nil {
		writeError(w, http.StatusBadRequest, "accessible must be a boolean")
		return
	}
	filter := graph.NodeFilter{
		Type:       r.URL.Query().Get("type"),
		Accessible: accessible,
	}

	nodes, err := s.store.ListNodes(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing nodes", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if nodes == nil {
		nodes = []models.Node{}
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) handleNodeByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "node id required")
		return
	}

	node, err := s.store.GetNode(ctx, id)
	if err != nil {
		s.logger.Error("getting node", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if node == nil {
		writeError(w, http.StatusNotFound, "node not found")
		return
	}
	neighbors, err := s.svc.Neighbors(ctx, id)
	if err != nil {
		s.logger.Error("getting neighbors", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if neighbors == nil {
		neighbors = []models.Node{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"node":      node,
		"neighbors": neighbors,
	})
}

func (s *Server) handleEdges(w http.ResponseWriter, r *http.Request) {
	accessible, err := optionalBool(r, "accessible")
	if err != nil {
		writeError(w, http.StatusBadRequest, "accessible must be a boolean")
		return
	}
	filter := graph.EdgeFilter{
		Type:       r.URL.Query().Get("type"),
		NodeID:     r.URL.Query().Get("node"),
		Accessible: accessible,
	}

	edges, err := s.store.ListEdges(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing edges", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if edges == nil {
		edges = []models.Edge{}
	}
	writeJSON(w, http.StatusOK, edges)
}

// queryOptions reads the accessible and blocked parameters shared by the
// route and evacuate endpoints.
func queryOptions(r *http.Request) (bool, []models.BlockedEdge, error) {
	accessible, err := parseBool(r, "accessible")
	if err != nil {
		return false, nil, errors.New("accessible must be a boolean")
	}
	blocked, err := models.ParseBlockedList(r.URL.Query().Get("blocked"))
	if err != nil {
		return false, nil, err
	}
	return accessible, blocked, nil
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}
	accessible, blocked, err := queryOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.svc.Route(r.Context(), wayfinder.RouteRequest{
		From:       from,
		To:         to,
		Accessible: accessible,
		Blocked:    blocked,
	})
	if err != nil {
		s.writeQueryError(w, "route", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleEvacuate(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	if from == "" {
		writeError(w, http.StatusBadRequest, "from is required")
		return
	}
	accessible, blocked, err := queryOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.svc.Evacuate(r.Context(), wayfinder.EvacuateRequest{
		From:       from,
		Accessible: accessible,
		Blocked:    blocked,
	})
	if err != nil {
		s.writeQueryError(w, "evacuate", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleImpact(w http.ResponseWriter, r *http.Request) {
	accessible, err := parseBool(r, "accessible")
	if err != nil {
		writeError(w, http.StatusBadRequest, "accessible must be a boolean")
		return
	}
	res, err := s.svc.Impact(r.Context(), accessible)
	if err != nil {
		s.writeQueryError(w, "impact", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHazards(w http.ResponseWriter, r *http.Request) {
	_, hazards, err := s.activeBlocked(r.Context())
	if err != nil {
		s.logger.Error("listing hazards", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, hazards)
}

// hazardRequest is the JSON body for POST /api/v1/hazards.
type hazardRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
	TTL    string `json:"ttl,omitempty"`
}

func (s *Server) handleDeclareHazard(w http.ResponseWriter, r *http.Request) {
	var req hazardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.From == "" || req.To == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}
	var ttl time.Duration
	if req.TTL != "" {
		d, err := time.ParseDuration(req.TTL)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "ttl must be a positive duration such as 15m")
			return
		}
		ttl = d
	}

	h, err := s.svc.DeclareHazard(r.Context(), wayfinder.HazardRequest{
		From:   req.From,
		To:     req.To,
		Reason: req.Reason,
		TTL:    ttl,
	})
	if err != nil {
		s.writeQueryError(w, "declaring hazard", err)
		return
	}
	writeJSON(w, http.StatusCreated, h)
}

func (s *Server) handleClearHazard(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "hazard id must be an integer")
		return
	}
	if err := s.svc.ClearHazard(r.Context(), id); err != nil {
		s.writeQueryError(w, "clearing hazard", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearHazards(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.ClearHazards(r.Context())
	if err != nil {
		s.writeQueryError(w, "clearing hazards", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"cleared": n})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	nodeCount, _ := s.store.NodeCount(ctx)
	edgeCount, _ := s.store.EdgeCount(ctx)
	nodesByType, _ := s.store.NodeCountByType(ctx)
	edgesByType, _ := s.store.EdgeCountByType(ctx)
	hazards, _ := s.svc.ActiveHazards(ctx)

	writeJSON(w, http.StatusOK, map[string]any{
		"nodes_total":    nodeCount,
		"edges_total":    edgeCount,
		"nodes_by_type":  nodesByType,
		"edges_by_type":  edgesByType,
		"hazards_active": len(hazards),
	})
}

func (s *Server) handleImports(w http.ResponseWriter, r *http.Request) {
	imports, err := s.store.ListImports(r.Context(), 50)
	if err != nil {
		s.logger.Error("listing imports", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if imports == nil {
		imports = []models.Import{}
	}
	writeJSON(w, http.StatusOK, imports)
}

type exporter func(ctx context.Context, store graph.Store, blocked []models.BlockedEdge) (string, error)

func (s *Server) export(w http.ResponseWriter, r *http.Request, fn exporter, contentType, filename string) {
	blocked, _, err := s.activeBlocked(r.Context())
	if err != nil {
		s.logger.Error("listing hazards", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out, err := fn(r.Context(), s.store, blocked)
	if err != nil {
		s.logger.Error("export", "format", filename, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = w.Write([]byte(out))
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, graph.ExportJSON, "application/json", "wayfind-building.json")
}

func (s *Server) handleExportDOT(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, graph.ExportDOT, "text/vnd.graphviz", "wayfind-building.dot")
}

func (s *Server) handleExportMermaid(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, graph.ExportMermaid, "text/plain", "wayfind-building.mmd")
}
