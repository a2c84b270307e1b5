package service

import "testing"

func TestClampPanelLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"zero defaults", 0, 50},
		{"negative defaults", -3, 50},
		{"in range passes through", 120, 120},
		{"just over cap", 201, 200},
		{"far over cap", 10000, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampPanelLimit(tt.limit); got != tt.want {
				t.Errorf("clampPanelLimit(%d) = %d, want %d", tt.limit, got, tt.want)
			}
		})
	}
}
