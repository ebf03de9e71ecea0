package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/vncsmyrnk/ballotbox/internal/core/domain"
	"github.com/vncsmyrnk/ballotbox/internal/core/ports"
)

// targetApp is an application the shell can send a user to after login.
type targetApp struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

var targetApps = []targetApp{
	{Name: "polls", URL: pollsIndexPath, Caption: "Polls"},
	{Name: "blogs", URL: "/api/blogs", Caption: "Blogs"},
}

// appIndex returns the index URL of a known target app, matched case-insensitively.
func appIndex(name string) (string, bool) {
	for _, app := range targetApps {
		if strings.EqualFold(app.Name, name) {
			return app.URL, true
		}
	}
	return "", false
}

type appPreview struct {
	targetApp
	Count   int      `json:"count"`
	Summary string   `json:"summary"`
	Objects []string `json:"objects"`
}

type ShellHandler struct {
	polls ports.PollService
	now   func() time.Time
}

func NewShellHandler(polls ports.PollService) *ShellHandler {
	return &ShellHandler{
		polls: polls,
		now:   time.Now,
	}
}

func (h *ShellHandler) Apps(w http.ResponseWriter, r *http.Request) {
	polls, err := h.polls.ListPublished(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	previews := make([]appPreview, 0, len(targetApps))
	for _, app := range targetApps {
		p := appPreview{targetApp: app, Objects: []string{}}
		if app.Name == "polls" {
			for _, poll := range polls {
				p.Objects = append(p.Objects, poll.Question)
			}
		}
		p.Count = len(p.Objects)
		p.Summary = humanize.Comma(int64(p.Count)) + " " + plural(p.Count, "item", "items")
		previews = append(previews, p)
	}

	writeJSON(w, http.StatusOK, map[string]any{"apps": previews})
}

// Blogs is the index of the blogs app, which has no content yet.
func (h *ShellHandler) Blogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"app": "blogs", "entries": []any{}})
}

type pollResponse struct {
	*domain.Poll
	Status            domain.PollStatus `json:"status"`
	Published         string            `json:"published"`
	PublishedRecently bool              `json:"published_recently"`
	TotalVotes        int               `json:"total_votes"`
}

func newPollResponse(p *domain.Poll, now time.Time) pollResponse {
	return pollResponse{
		Poll:              p,
		Status:            p.Status(),
		Published:         humanize.RelTime(p.PubDate, now, "ago", "from now"),
		PublishedRecently: p.PublishedRecently(now),
		TotalVotes:        p.TotalVotes(),
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
