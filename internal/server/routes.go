package server

import "net/http"

// RegisterRoutes registers all API routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, s *Server) {
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/v1/building", s.handleBuilding)
	mux.HandleFunc("GET /api/v1/building/nodes", s.handleNodes)
	mux.HandleFunc("GET /api/v1/building/nodes/{id}", s.handleNodeByID)
	mux.HandleFunc("GET /api/v1/building/edges", s.handleEdges)

	mux.HandleFunc("GET /api/v1/route", s.handleRoute)
	mux.HandleFunc("GET /api/v1/evacuate", s.handleEvacuate)
	mux.HandleFunc("GET /api/v1/impact", s.handleImpact)

	mux.HandleFunc("GET /api/v1/hazards", s.handleHazards)

	mux.HandleFunc("GET /api/v1/stats", s.handleStats)
	mux.HandleFunc("GET /api/v1/imports", s.handleImports)

	mux.HandleFunc("GET /api/v1/export/json", s.handleExportJSON)
	mux.HandleFunc("GET /api/v1/export/dot", s.handleExportDOT)
	mux.HandleFunc("GET /api/v1/export/mermaid", s.handleExportMermaid)

	if !s.cfg.ReadOnly {
		mux.HandleFunc("POST /api/v1/hazards", s.handleDeclareHazard)
		mux.HandleFunc("DELETE /api/v1/hazards/{id}", s.handleClearHazard)
		mux.HandleFunc("DELETE /api/v1/hazards", s.handleClearHazards)
	}
}
