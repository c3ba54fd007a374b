package model

import "testing"

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		role     string
		minimum  string
		expected bool
	}{
		{RoleManager, RoleManager, true},
		{RoleManager, RoleTechnician, true},
		{RoleTechnician, RoleManager, false},
		{RoleTechnician, RoleTechnician, true},
		// Unknown roles fail-closed.
		{"unknown", RoleTechnician, false},
		{RoleManager, "unknown", false},
		{"", "", false},
		{"", RoleTechnician, false},
	}

	for _, tt := range tests {
		got := RoleAtLeast(tt.role, tt.minimum)
		if got != tt.expected {
			t.Errorf("RoleAtLeast(%q, %q) = %v, want %v", tt.role, tt.minimum, got, tt.expected)
		}
	}
}
