package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.identityMiddleware)

		r.Get("/puzzles/today", s.handleTodayPuzzle)
		r.Get("/puzzles/{id}", s.handleGetPuzzle)
		r.Post("/puzzles/{id}/guess", s.handleSubmitGuess)
		r.Get("/puzzles/{id}/completion", s.handleGetCompletion)
		r.Get("/puzzles/{id}/attempts", s.handleAttemptHistory)
		r.Get("/puzzles/{id}/stats", s.handlePuzzleStats)
		r.Get("/rank", s.handleRank)
		r.Get("/rank/progress", s.handleRankProgress)
	})

	return r
}
