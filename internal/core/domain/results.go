package domain

// Results is the ranked outcome of a poll.
type Results struct {
	Poll   *Poll    `json:"poll"`
	Ranked []Choice `json:"ranked_choices"`
	Total  int      `json:"total_votes"`
	Winner *Choice  `json:"winner,omitempty"`
}

func NewResults(p *Poll, ranked []Choice) *Results {
	return &Results{
		Poll:   p,
		Ranked: ranked,
		Total:  p.TotalVotes(),
		Winner: p.Winner(),
	}
}

// Overview statuses as seen by one user.
const (
	OverviewUserOpen = "user_open"
	OverviewOpen     = "open"
	OverviewClosed   = "closed"
)

// PollOverview is one row of a user's poll index.
type PollOverview struct {
	Poll     *Poll   `json:"poll"`
	Status   string  `json:"status"`
	Eligible int     `json:"eligible_voters"`
	Voted    int     `json:"voted"`
	Pending  int     `json:"pending"`
	Winner   *Choice `json:"winner,omitempty"`
}
