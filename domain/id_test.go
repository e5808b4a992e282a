package domain

import "testing"

func TestAssigneeRef(t *testing.T) {
	tests := []struct {
		name string
		ref  *AssigneeRef
		want string
	}{
		{"nil", nil, ""},
		{"empty", &AssigneeRef{}, ""},
		{"id", &AssigneeRef{ID: "u-1"}, "u-1"},
		{"legacy_id", &AssigneeRef{LegacyID: "u-2"}, "u-2"},
		{"legacy_wins_over_id", &AssigneeRef{ID: "u-1", LegacyID: "u-2"}, "u-2"},
		{"blank_legacy_falls_back", &AssigneeRef{ID: "u-1", LegacyID: "  "}, "u-1"},
		{"trims_whitespace", &AssigneeRef{ID: " u-1 "}, "u-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ref.Ref(); got != tt.want {
				t.Fatalf("Ref() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeID(t *testing.T) {
	if got := NormalizeID("\t ws-1 \n"); got != "ws-1" {
		t.Fatalf("NormalizeID = %q", got)
	}
	if got := NormalizeID("   "); got != "" {
		t.Fatalf("expected blank to normalize to empty, got %q", got)
	}
}
