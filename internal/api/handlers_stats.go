package api

import (
	"net/http"

	"github.com/dgallion1/lexsum/internal/model"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var latency model.StatsSnapshot
	if s.deps.ModelStats != nil {
		latency = s.deps.ModelStats.Snapshot()
	}

	stats := map[string]any{
		"model": map[string]any{
			"name":    s.cfg.ModelName,
			"backend": s.cfg.ModelBackend,
			"latency": latency,
		},
		"pipeline": s.deps.Pipeline.Stats(),
		"errors":   s.deps.Errors.Stats(),
		"sessions": s.deps.Sessions.Len(),
	}
	if s.deps.Security != nil {
		stats["security"] = s.deps.Security.Status()
	}
	if s.deps.Orchestrator != nil {
		stats["queue"] = map[string]int{
			"depth": s.deps.Orchestrator.QueueDepth(),
			"jobs":  s.deps.Orchestrator.JobCount(),
		}
	}
	writeJSON(w, http.StatusOK, stats)
}
