package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/dgallion1/checkgest/internal/scoring"
)

const maxJSONBody = 1 << 20

// handleEvaluate runs the weighted engine on explicit criteria and factors.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var in scoring.Input
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	ev, err := scoring.EvaluateInput(in)
	if err != nil {
		if scoring.IsInputError(err) {
			jsonError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		s.log.Error("evaluate failed", zap.Error(err))
		jsonError(w, "evaluation failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

type scoreRequest struct {
	Text string `json:"text"`
}

// handleScore assesses a text with the rule table and evaluates it.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		jsonError(w, "text is required", http.StatusBadRequest)
		return
	}

	ev, err := scoring.EvaluateText(req.Text)
	if err != nil {
		s.log.Error("score failed", zap.Error(err))
		jsonError(w, "scoring failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.llmStats == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"model": s.cfg.Structurer.Model,
		"stats": s.llmStats.Snapshot(),
	})
}
