package service

import "github.com/makeasinger/lyrics-api/internal/model"

// Status tags the outcome of a transcription step
type Status int

const (
	StatusSuccess Status = iota
	StatusUnauthorized
	StatusMissingInput
	StatusShortfall
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusUnauthorized:
		return "unauthorized"
	case StatusMissingInput:
		return "missing_input"
	case StatusShortfall:
		return "shortfall"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of a step. Err is set only for StatusFailed.
type Result struct {
	Status Status
	User   *model.User
	Lyrics string
	Err    error
}

// OK reports whether the step succeeded and the next one may run.
func (r *Result) OK() bool {
	return r.Status == StatusSuccess
}

func success(user *model.User, lyrics string) *Result {
	return &Result{Status: StatusSuccess, User: user, Lyrics: lyrics}
}

func failed(err error) *Result {
	return &Result{Status: StatusFailed, Err: err}
}
