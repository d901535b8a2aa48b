package models

import "testing"

func TestTaskStatus_Valid(t *testing.T) {
	tests := []struct {
		name   string
		status TaskStatus
		want   bool
	}{
		{"not_started is valid", TaskStatusNotStarted, true},
		{"in_progress is valid", TaskStatusInProgress, true},
		{"completed is valid", TaskStatusCompleted, true},
		{"failed is valid", TaskStatusFailed, true},
		{"blocked is valid", TaskStatusBlocked, true},
		{"empty string is invalid", TaskStatus(""), false},
		{"legacy pending is invalid", TaskStatus("pending"), false},
		{"unknown status is invalid", TaskStatus("unknown"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.want {
				t.Errorf("TaskStatus(%q).Valid() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestTaskStatus_Terminal(t *testing.T) {
	tests := []struct {
		status TaskStatus
		want   bool
	}{
		{TaskStatusNotStarted, false},
		{TaskStatusInProgress, false},
		{TaskStatusCompleted, true},
		{TaskStatusFailed, true},
		{TaskStatusBlocked, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.want {
				t.Errorf("TaskStatus(%q).Terminal() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestNewTaskStats_AllStatusesPresent(t *testing.T) {
	stats := NewTaskStats()

	if len(stats) != 5 {
		t.Fatalf("expected 5 statuses, got %d", len(stats))
	}
	for _, s := range AllTaskStatuses {
		count, ok := stats[s]
		if !ok {
			t.Errorf("status %q missing from stats", s)
		}
		if count != 0 {
			t.Errorf("status %q = %d, want 0", s, count)
		}
	}
	if stats.Total() != 0 {
		t.Errorf("Total() = %d, want 0", stats.Total())
	}
}

func TestTaskStats_Total(t *testing.T) {
	stats := NewTaskStats()
	stats[TaskStatusCompleted] = 3
	stats[TaskStatusBlocked] = 2

	if got := stats.Total(); got != 5 {
		t.Errorf("Total() = %d, want 5", got)
	}
}
