package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vitos/sentiment_mint/internal/domain"
	"go.uber.org/zap"
)

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// writeError maps the error taxonomy onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		s.writeJSON(w, http.StatusNotFound, errorBody{Error: "Not found"})
		return
	}

	var de *domain.Error
	if !errors.As(err, &de) {
		s.logger.Error("Unhandled error", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
		return
	}

	status := http.StatusInternalServerError
	if de.Kind == domain.KindValidation {
		status = http.StatusBadRequest
	}
	s.writeJSON(w, status, errorBody{Error: de.Msg})
}
