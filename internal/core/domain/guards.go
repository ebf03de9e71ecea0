package domain

// PollAccess is what a guarded poll request has resolved so far.
type PollAccess struct {
	Poll  *Poll
	Voter *Voter
}

// Guard checks one precondition of a poll request.
type Guard func(a *PollAccess) error

// RequirePollStatus passes when the poll open flag equals open.
func RequirePollStatus(open bool) Guard {
	return func(a *PollAccess) error {
		if a.Poll.IsOpen == open {
			return nil
		}
		if open {
			return ErrPollClosed
		}
		return ErrPollOpen
	}
}

// RequireVotingStatus passes when the voter's has-voted flag equals voted.
func RequireVotingStatus(voted bool) Guard {
	return func(a *PollAccess) error {
		if a.Voter == nil {
			return ErrPollNotFound
		}
		if a.Voter.HasVoted == voted {
			return nil
		}
		if voted {
			return ErrNotVoted
		}
		return ErrAlreadyVoted
	}
}

// Check runs guards in order and stops at the first failure.
func (a *PollAccess) Check(guards ...Guard) error {
	for _, g := range guards {
		if err := g(a); err != nil {
			return err
		}
	}
	return nil
}
