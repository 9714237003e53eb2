package tasks

import (
	"errors"
	"testing"
)

func TestStatusNext_Cycle(t *testing.T) {
	cases := []struct {
		in   Status
		want Status
	}{
		{StatusPending, StatusOngoing},
		{StatusOngoing, StatusCompleted},
		{StatusCompleted, StatusPending},
		{Status(""), StatusPending},
		{Status("archived"), StatusPending},
	}
	for _, tc := range cases {
		if got := tc.in.Next(); got != tc.want {
			t.Errorf("%q.Next() = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStatusNext_ReturnsToStartAfterThreeSteps(t *testing.T) {
	for _, s := range Statuses {
		if got := s.Next().Next().Next(); got != s {
			t.Errorf("three steps from %q landed on %q", s, got)
		}
	}
}

func TestStatusNextLabel(t *testing.T) {
	want := map[Status]string{
		StatusPending:   "Mark as ongoing",
		StatusOngoing:   "Mark as completed",
		StatusCompleted: "Mark as pending",
		Status("bogus"): "Mark as pending",
	}
	for s, label := range want {
		if got := s.NextLabel(); got != label {
			t.Errorf("%q.NextLabel() = %q, want %q", s, got, label)
		}
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("  Ongoing ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != StatusOngoing {
		t.Fatalf("expected ongoing, got %q", s)
	}

	if _, err := ParseStatus("done"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestValidateTitle(t *testing.T) {
	for _, title := range []string{"", " ", "\t\n  "} {
		if err := ValidateTitle(title); !errors.Is(err, ErrTitleRequired) {
			t.Errorf("ValidateTitle(%q) = %v, want ErrTitleRequired", title, err)
		}
	}
	if err := ValidateTitle("  buy milk "); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
