package models

import "testing"

func TestAgent_HasAnyCapability(t *testing.T) {
	agent := Agent{ID: "a1", Capabilities: []string{"lint", "format"}, MaxConcurrent: 1}

	tests := []struct {
		name     string
		required []string
		want     bool
	}{
		{"no requirement matches", nil, true},
		{"empty requirement matches", []string{}, true},
		{"single match", []string{"lint"}, true},
		{"one of several matches", []string{"docs", "format"}, true},
		{"no overlap", []string{"docs"}, false},
		{"case sensitive", []string{"Lint"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := agent.HasAnyCapability(tt.required); got != tt.want {
				t.Errorf("HasAnyCapability(%v) = %v, want %v", tt.required, got, tt.want)
			}
		})
	}
}

func TestAgent_NoCapabilities(t *testing.T) {
	agent := Agent{ID: "bare", MaxConcurrent: 1}

	if !agent.HasAnyCapability(nil) {
		t.Error("agent without capabilities should match an empty requirement")
	}
	if agent.HasAnyCapability([]string{"lint"}) {
		t.Error("agent without capabilities should not match a requirement")
	}
}
