package http

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/ballotbox/internal/core/domain"
	"github.com/vncsmyrnk/ballotbox/internal/core/ports"
)

type VoteHandler struct {
	service ports.VoteService
}

func NewVoteHandler(service ports.VoteService) *VoteHandler {
	return &VoteHandler{
		service: service,
	}
}

type voteRequest struct {
	ChoiceID uuid.UUID `json:"choice_id"`
}

type voteResponse struct {
	Status   domain.PollStatus `json:"status"`
	Location string            `json:"location"`
}

func (h *VoteHandler) VoteOnPoll(w http.ResponseWriter, r *http.Request) {
	pollID, err := pollIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	userID, ok := userIDFrom(r)
	if !ok {
		writeError(w, r, domain.ErrInvalidToken)
		return
	}

	status, err := h.service.Vote(r.Context(), ports.VoteInput{
		PollID:   pollID,
		ChoiceID: req.ChoiceID,
		UserID:   userID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	next := pollPath(pollID.String(), "progress")
	if status == domain.PollStatusClosed {
		next = pollPath(pollID.String(), "results")
	}
	writeJSON(w, http.StatusCreated, voteResponse{Status: status, Location: next})
}

func (h *VoteHandler) VoteRandomly(w http.ResponseWriter, r *http.Request) {
	var req pollIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	votes, err := h.service.VoteRandomlyMany(r.Context(), req.PollIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"votes": votes, "location": pollsIndexPath})
}
