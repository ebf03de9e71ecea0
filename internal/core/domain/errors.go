package domain

import "errors"

var (
	ErrPollNotFound       = errors.New("poll not found")
	ErrInvalidPollID      = errors.New("invalid poll id")
	ErrInvalidChoice      = errors.New("invalid choice for this poll")
	ErrAlreadyVoted       = errors.New("user has already voted")
	ErrNotVoted           = errors.New("user did not vote on this poll")
	ErrPollClosed         = errors.New("poll is closed")
	ErrPollOpen           = errors.New("poll is still open")
	ErrQuestionRequired   = errors.New("question is required")
	ErrDuplicateQuestion  = errors.New("a poll with this question already exists")
	ErrNoChoices          = errors.New("poll has no choices")
	ErrChoiceTextRequired = errors.New("choice text is required")
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrUsernameRequired   = errors.New("username is required")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrForbidden          = errors.New("staff access required")
	ErrInternal           = errors.New("internal server error")
)
