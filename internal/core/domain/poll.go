package domain

import (
	"time"

	"github.com/google/uuid"
)

// RecentWindow is how far back a publication date still counts as recent.
const RecentWindow = 24 * time.Hour

type PollStatus string

const (
	PollStatusOpen   PollStatus = "open"
	PollStatusClosed PollStatus = "closed"
)

func StatusOf(open bool) PollStatus {
	if open {
		return PollStatusOpen
	}
	return PollStatusClosed
}

type Poll struct {
	ID        uuid.UUID `json:"id"`
	Question  string    `json:"question"`
	PubDate   time.Time `json:"pub_date"`
	IsOpen    bool      `json:"is_open"`
	Choices   []Choice  `json:"choices"`
	CreatedAt time.Time `json:"created_at"`
}

type Choice struct {
	ID       uuid.UUID `json:"id"`
	PollID   uuid.UUID `json:"poll_id"`
	Text     string    `json:"text"`
	Votes    int       `json:"votes"`
	Position int       `json:"position"`
}

// Voter records whether a user has cast the single vote they get in a poll.
type Voter struct {
	ID       uuid.UUID `json:"id"`
	PollID   uuid.UUID `json:"poll_id"`
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	HasVoted bool      `json:"has_voted"`
}

// RandomVote pairs a voter with the choice picked on their behalf.
type RandomVote struct {
	Voter  Voter  `json:"voter"`
	Choice Choice `json:"choice"`
}

func (p *Poll) Status() PollStatus {
	return StatusOf(p.IsOpen)
}

// IsPublished reports whether end users may see the poll at now.
func (p *Poll) IsPublished(now time.Time) bool {
	return !p.PubDate.After(now)
}

func (p *Poll) PublishedRecently(now time.Time) bool {
	return !p.PubDate.Before(now.Add(-RecentWindow)) && p.PubDate.Before(now)
}

func (p *Poll) HasVotingStarted() bool {
	for _, c := range p.Choices {
		if c.Votes > 0 {
			return true
		}
	}
	return false
}

func (p *Poll) TotalVotes() int {
	total := 0
	for _, c := range p.Choices {
		total += c.Votes
	}
	return total
}

// Winner returns the choice with the highest tally once the poll is closed.
// Ties go to the lowest position.
func (p *Poll) Winner() *Choice {
	if p.IsOpen || len(p.Choices) == 0 {
		return nil
	}

	best := 0
	for i, c := range p.Choices {
		b := p.Choices[best]
		if c.Votes > b.Votes || (c.Votes == b.Votes && c.Position < b.Position) {
			best = i
		}
	}
	winner := p.Choices[best]
	return &winner
}

func (p *Poll) Choice(id uuid.UUID) (*Choice, bool) {
	for i := range p.Choices {
		if p.Choices[i].ID == id {
			return &p.Choices[i], true
		}
	}
	return nil, false
}

// Turnout counts voters that have voted.
func Turnout(voters []Voter) int {
	n := 0
	for _, v := range voters {
		if v.HasVoted {
			n++
		}
	}
	return n
}

// PendingVoters returns voters that have not voted yet, in input order.
func PendingVoters(voters []Voter) []Voter {
	pending := make([]Voter, 0, len(voters))
	for _, v := range voters {
		if !v.HasVoted {
			pending = append(pending, v)
		}
	}
	return pending
}

// ShouldClose reports full turnout. A poll without eligible voters never closes on its own.
func ShouldClose(eligible, voted int) bool {
	return eligible > 0 && voted >= eligible
}
