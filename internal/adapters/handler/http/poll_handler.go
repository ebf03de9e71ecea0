package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/vncsmyrnk/ballotbox/internal/core/domain"
	"github.com/vncsmyrnk/ballotbox/internal/core/ports"
)

type PollHandler struct {
	service   ports.PollService
	lifecycle ports.LifecycleService
	now       func() time.Time
}

func NewPollHandler(service ports.PollService, lifecycle ports.LifecycleService) *PollHandler {
	return &PollHandler{
		service:   service,
		lifecycle: lifecycle,
		now:       time.Now,
	}
}

type overviewItem struct {
	pollResponse
	ViewStatus string         `json:"view_status"`
	Eligible   int            `json:"eligible_voters"`
	Voted      int            `json:"voted"`
	Pending    int            `json:"pending"`
	Winner     *domain.Choice `json:"winner,omitempty"`
}

// Overview lists the caller's polls tagged user_open, open or closed.
func (h *PollHandler) Overview(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		writeError(w, r, domain.ErrInvalidToken)
		return
	}

	overview, err := h.service.Overview(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	now := h.now()
	items := make([]overviewItem, 0, len(overview))
	for _, o := range overview {
		items = append(items, overviewItem{
			pollResponse: newPollResponse(o.Poll, now),
			ViewStatus:   o.Status,
			Eligible:     o.Eligible,
			Voted:        o.Voted,
			Pending:      o.Pending,
			Winner:       o.Winner,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"polls": items})
}

// Detail shows an open poll to a voter who has not voted yet.
func (h *PollHandler) Detail(w http.ResponseWriter, r *http.Request) {
	access, ok := h.access(w, r, domain.RequirePollStatus(true), domain.RequireVotingStatus(false))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newPollResponse(access.Poll, h.now()))
}

// Progress shows who is still pending on an open poll the caller voted on.
func (h *PollHandler) Progress(w http.ResponseWriter, r *http.Request) {
	access, ok := h.access(w, r, domain.RequirePollStatus(true), domain.RequireVotingStatus(true))
	if !ok {
		return
	}

	voters, err := h.service.Voters(r.Context(), access.Poll.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"poll":           newPollResponse(access.Poll, h.now()),
		"all_voters":     voters,
		"pending_voters": domain.PendingVoters(voters),
	})
}

// Results shows the ranked choices of a closed poll the caller voted on.
func (h *PollHandler) Results(w http.ResponseWriter, r *http.Request) {
	access, ok := h.access(w, r, domain.RequirePollStatus(false), domain.RequireVotingStatus(true))
	if !ok {
		return
	}

	res, err := h.service.Results(r.Context(), access.Poll.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *PollHandler) access(w http.ResponseWriter, r *http.Request, guards ...domain.Guard) (*domain.PollAccess, bool) {
	pollID, err := pollIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	userID, ok := userIDFrom(r)
	if !ok {
		writeError(w, r, domain.ErrInvalidToken)
		return nil, false
	}

	access, err := h.service.Access(r.Context(), pollID, userID, guards...)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return access, true
}

func (h *PollHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	var req pollIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.lifecycle.ReopenMany(r.Context(), req.PollIDs); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reopened": len(req.PollIDs), "location": pollsIndexPath})
}

type createPollRequest struct {
	Question string    `json:"question"`
	PubDate  time.Time `json:"pub_date"`
	Choices  []string  `json:"choices"`
}

func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	poll, err := h.service.CreatePollWithVoters(r.Context(), ports.CreatePollInput{
		Question: req.Question,
		PubDate:  req.PubDate,
		Choices:  req.Choices,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPollResponse(poll, h.now()))
}

// Search lists polls for staff, published or not.
func (h *PollHandler) Search(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	polls, err := h.service.Search(r.Context(), ports.SearchPollsInput{
		Page:  page,
		Query: r.URL.Query().Get("q"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	now := h.now()
	items := make([]pollResponse, 0, len(polls))
	for _, p := range polls {
		items = append(items, newPollResponse(p, now))
	}
	writeJSON(w, http.StatusOK, map[string]any{"polls": items})
}

type addChoiceRequest struct {
	Text string `json:"text"`
}

func (h *PollHandler) AddChoice(w http.ResponseWriter, r *http.Request) {
	pollID, err := pollIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req addChoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	choice, err := h.service.AddChoice(r.Context(), pollID, req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, choice)
}

func (h *PollHandler) RegisterVoters(w http.ResponseWriter, r *http.Request) {
	pollID, err := pollIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := h.lifecycle.RegisterVoters(r.Context(), pollID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"created": created})
}

func (h *PollHandler) EligibleVoters(w http.ResponseWriter, r *http.Request) {
	pollID, err := pollIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	count, err := h.service.EligibleVoterCount(r.Context(), pollID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"eligible_voters": count})
}
