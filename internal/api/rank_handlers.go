package api

import (
	"net/http"
)

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	record, err := s.RankService.GetRecord(r.Context(), playerKeyFromContext(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleRankProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := s.RankService.Progress(r.Context(), playerKeyFromContext(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}
