package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dgallion1/checkgest/internal/store"
)

const maxListLimit = 500

// handleListConversions lists stored conversions, newest first, without
// their trees.
func (s *Server) handleListConversions(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		jsonError(w, "result store disabled", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	filter := store.ListFilter{
		Source: q.Get("source"),
		Status: q.Get("status"),
	}
	var err error
	if filter.Limit, err = queryInt(q.Get("limit")); err != nil || filter.Limit > maxListLimit {
		jsonError(w, "limit must be between 0 and 500", http.StatusBadRequest)
		return
	}
	if filter.Offset, err = queryInt(q.Get("offset")); err != nil {
		jsonError(w, "offset must be a non-negative integer", http.StatusBadRequest)
		return
	}

	convs, err := s.store.List(r.Context(), filter)
	if err != nil {
		s.log.Error("list conversions", zap.Error(err))
		jsonError(w, "failed to list conversions", http.StatusInternalServerError)
		return
	}
	if convs == nil {
		convs = []store.Conversion{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversions": convs})
}

func (s *Server) handleGetConversion(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		jsonError(w, "result store disabled", http.StatusServiceUnavailable)
		return
	}

	id := chi.URLParam(r, "id")
	conv, err := s.store.Get(r.Context(), id)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			jsonError(w, "conversion not found", http.StatusNotFound)
			return
		}
		s.log.Error("get conversion", zap.String("id", id), zap.Error(err))
		jsonError(w, "failed to load conversion", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func queryInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, eris.New("negative value")
	}
	return n, nil
}
