package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coinsift/coinsift/internal/market"
)

// handleHealth reports pipeline state and liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"state":     s.orch.State(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleScan runs one scan cycle and returns its records.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	result, err := s.orch.Run(r.Context())
	if err != nil {
		status := http.StatusBadGateway
		var formatErr *market.DataFormatError
		if errors.As(err, &formatErr) {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, map[string]interface{}{
			"error":   err.Error(),
			"scan_id": result.ScanID,
			"results": result.Records,
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleResults serves the last completed scan without triggering a new one.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	result := s.orch.LastResult()
	if result == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no scan completed yet"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found", "path": r.URL.Path})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
