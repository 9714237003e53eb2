package tasks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Status      Status    `json:"status"`
	Completed   bool      `json:"completed"`
	CreatedAt   Timestamp `json:"created_at"`
	UpdatedAt   Timestamp `json:"updated_at"`
	CompletedAt Timestamp `json:"completed_at"`
}

// Timestamp is an optional instant as the API serializes it. The API emits
// RFC 1123 dates ("Tue, 14 Jan 2025 10:00:00 GMT"), some deployments emit
// RFC 3339, and unset fields are null or absent.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC1123,
	time.RFC1123Z,
	time.RFC3339Nano,
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			t.Time = ts.UTC()
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognized format %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// Set reports whether the API supplied a value.
func (t Timestamp) Set() bool { return !t.IsZero() }
