package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/ballotbox/internal/core/domain"
	"github.com/vncsmyrnk/ballotbox/internal/logging"
)

type errorResponse struct {
	Error    string `json:"error"`
	Location string `json:"location,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.For("http").WithError(err).Error("failed to encode response")
	}
}

// writeError maps domain errors to status codes. Rejected poll requests carry
// the page the caller should go to instead.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	pollID := chi.URLParam(r, "id")

	switch {
	case errors.Is(err, domain.ErrPollNotFound), errors.Is(err, domain.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidChoice):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Location: pollPath(pollID, "")})
	case errors.Is(err, domain.ErrInvalidPollID),
		errors.Is(err, domain.ErrQuestionRequired),
		errors.Is(err, domain.ErrChoiceTextRequired),
		errors.Is(err, domain.ErrUsernameRequired):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrPollClosed), errors.Is(err, domain.ErrAlreadyVoted):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Location: pollPath(pollID, "results")})
	case errors.Is(err, domain.ErrPollOpen), errors.Is(err, domain.ErrNotVoted):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Location: pollsIndexPath})
	case errors.Is(err, domain.ErrDuplicateQuestion),
		errors.Is(err, domain.ErrDuplicateUsername),
		errors.Is(err, domain.ErrNoChoices):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	default:
		logging.For("http").
			WithField("request_id", middleware.GetReqID(r.Context())).
			WithError(err).
			Error("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: domain.ErrInternal.Error()})
	}
}

const pollsIndexPath = "/api/polls"

func pollPath(id, page string) string {
	if id == "" {
		return pollsIndexPath
	}
	if page == "" {
		return pollsIndexPath + "/" + id
	}
	return pollsIndexPath + "/" + id + "/" + page
}

func pollIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, domain.ErrInvalidPollID
	}
	return id, nil
}

func userIDFrom(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(UserIDKey).(uuid.UUID)
	return id, ok
}

type pollIDsRequest struct {
	PollIDs []uuid.UUID `json:"poll_ids"`
}
