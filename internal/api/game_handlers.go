package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marlow/casefile/internal/errors"
	"github.com/marlow/casefile/internal/logger"
	"github.com/marlow/casefile/internal/models"
)

type puzzleResponse struct {
	Puzzle     *models.Puzzle     `json:"puzzle"`
	Statements []models.Statement `json:"statements"`
}

func (s *Server) handleTodayPuzzle(w http.ResponseWriter, r *http.Request) {
	today := time.Now().Format("2006-01-02")
	puzzle, statements, err := s.GameService.TodayPuzzle(r.Context(), today)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, puzzleResponse{Puzzle: puzzle, Statements: statements})
}

func (s *Server) handleGetPuzzle(w http.ResponseWriter, r *http.Request) {
	id, ok := puzzleIDParam(w, r)
	if !ok {
		return
	}
	puzzle, statements, err := s.GameService.GetPuzzle(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, puzzleResponse{Puzzle: puzzle, Statements: statements})
}

type guessRequest struct {
	StatementID int64 `json:"statement_id"`
}

func (s *Server) handleSubmitGuess(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	puzzleID, ok := puzzleIDParam(w, r)
	if !ok {
		return
	}

	var req guessRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn("invalid guess body: %v", err)
		handleError(w, r, errors.NewBadRequestError("invalid request body"))
		return
	}
	if req.StatementID <= 0 {
		handleError(w, r, errors.NewValidationError("statement_id", "must be positive"))
		return
	}

	playerKey := playerKeyFromContext(r.Context())
	result, err := s.GameService.SubmitGuess(r.Context(), playerKey, puzzleID, req.StatementID)
	if err != nil {
		// A duplicate guess after completion is answered with the stored
		// outcome, not an opaque failure.
		if appErr, ok := err.(*errors.AppError); ok && appErr.Code == errors.ErrCodeAlreadyCompleted {
			completion, getErr := s.GameService.GetCompletion(r.Context(), playerKey, puzzleID)
			if getErr == nil && completion != nil {
				writeJSON(w, appErr.Status, map[string]any{
					"error": map[string]any{
						"code":    appErr.Code,
						"message": appErr.Message,
					},
					"completion": completion,
				})
				return
			}
		}
		handleError(w, r, err)
		return
	}

	log.Info("guess submitted: puzzle=%d, correct=%t", puzzleID, result.IsCorrect)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetCompletion(w http.ResponseWriter, r *http.Request) {
	puzzleID, ok := puzzleIDParam(w, r)
	if !ok {
		return
	}

	playerKey := playerKeyFromContext(r.Context())
	completion, err := s.GameService.GetCompletion(r.Context(), playerKey, puzzleID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if completion == nil {
		handleError(w, r, errors.NewNotFoundError("completion", puzzleID))
		return
	}
	writeJSON(w, http.StatusOK, completion)
}

func (s *Server) handleAttemptHistory(w http.ResponseWriter, r *http.Request) {
	puzzleID, ok := puzzleIDParam(w, r)
	if !ok {
		return
	}

	attempts, err := s.GameService.AttemptHistory(r.Context(), models.AttemptFilter{
		PlayerKey: playerKeyFromContext(r.Context()),
		PuzzleID:  puzzleID,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attempts": attempts})
}

func puzzleIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		logger.FromContext(r.Context()).Warn("invalid puzzle ID: %s", idStr)
		handleError(w, r, errors.NewBadRequestError("invalid puzzle ID"))
		return 0, false
	}
	return id, true
}
