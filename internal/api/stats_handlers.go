package api

import (
	"net/http"
)

func (s *Server) handlePuzzleStats(w http.ResponseWriter, r *http.Request) {
	puzzleID, ok := puzzleIDParam(w, r)
	if !ok {
		return
	}

	stats, err := s.StatsService.GetPuzzleStats(r.Context(), puzzleID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"puzzle_id":         stats.PuzzleID,
		"total_attempts":    stats.TotalAttempts,
		"total_completions": stats.TotalCompletions,
		"solved_count":      stats.SolvedCount,
		"avg_attempts":      stats.AvgAttempts,
		"solve_rate":        stats.SolveRate(),
	})
}
