package tasks

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTaskDecode_TimestampFormats(t *testing.T) {
	body := []byte(`[
		{"id":"a","title":"rfc1123","status":"completed","completed":true,
		 "created_at":"Tue, 14 Jan 2025 10:00:00 GMT","completed_at":"Wed, 15 Jan 2025 08:30:00 GMT"},
		{"id":"b","title":"rfc3339","status":"pending","created_at":"2025-01-14T10:00:00Z","completed_at":null},
		{"id":"c","title":"absent","status":"ongoing"}
	]`)

	var list []Task
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(list))
	}

	want := time.Date(2025, 1, 15, 8, 30, 0, 0, time.UTC)
	if !list[0].CompletedAt.Equal(want) {
		t.Errorf("completed_at = %v, want %v", list[0].CompletedAt, want)
	}
	if !list[0].Completed || list[0].Status != StatusCompleted {
		t.Errorf("unexpected first task: %+v", list[0])
	}
	if !list[1].CreatedAt.Equal(time.Date(2025, 1, 14, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("created_at = %v", list[1].CreatedAt)
	}
	if list[1].CompletedAt.Set() {
		t.Errorf("null completed_at should be unset")
	}
	if list[2].CreatedAt.Set() {
		t.Errorf("absent created_at should be unset")
	}
}

func TestTaskDecode_BadTimestamp(t *testing.T) {
	var task Task
	err := json.Unmarshal([]byte(`{"id":"x","created_at":"yesterday"}`), &task)
	if err == nil {
		t.Fatalf("expected error for unrecognized timestamp")
	}
}
