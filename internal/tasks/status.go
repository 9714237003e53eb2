package tasks

import (
	"errors"
	"strings"
)

var (
	ErrTitleRequired = errors.New("title required")
	ErrInvalidStatus = errors.New("invalid status")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
)

// Statuses lists every status in cycle order.
var Statuses = []Status{StatusPending, StatusOngoing, StatusCompleted}

// Next returns the status that follows s in the cycle
// pending -> ongoing -> completed -> pending. Anything unrecognized
// restarts at pending.
func (s Status) Next() Status {
	switch s {
	case StatusPending:
		return StatusOngoing
	case StatusOngoing:
		return StatusCompleted
	default:
		return StatusPending
	}
}

// NextLabel is the call to action shown next to a task's status control.
func (s Status) NextLabel() string {
	switch s.Next() {
	case StatusOngoing:
		return "Mark as ongoing"
	case StatusCompleted:
		return "Mark as completed"
	default:
		return "Mark as pending"
	}
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusOngoing, StatusCompleted:
		return true
	}
	return false
}

func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

// ValidateTitle rejects titles that are empty once whitespace is removed.
// The title itself is sent untrimmed.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrTitleRequired
	}
	return nil
}
