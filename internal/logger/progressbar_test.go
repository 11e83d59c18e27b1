package logger

import (
	"strings"
	"testing"
)

func TestProgressBar_Render(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		width   int
		current int
		want    string
	}{
		{"empty", 4, 10, 0, "[          ] 0/4 (0%)"},
		{"half", 4, 10, 2, "[=====     ] 2/4 (50%)"},
		{"complete", 4, 10, 4, "[==========] 4/4 (100%)"},
		{"overflow clamps", 4, 10, 9, "[==========] 9/4 (100%)"},
		{"zero total", 0, 10, 0, "[          ] 0/0 (0%)"},
		{"default width", 2, 0, 1, "[=====     ] 1/2 (50%)"},
		{"narrow", 3, 3, 2, "[=  ] 2/3 (66%)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := NewProgressBar(tt.total, tt.width, false)
			pb.Update(tt.current)
			if got := pb.Render(); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProgressBar_Color(t *testing.T) {
	pb := NewProgressBar(2, 10, true)
	pb.Update(1)
	if !strings.Contains(pb.Render(), "\x1b[36m") {
		t.Errorf("expected cyan while in progress, got %q", pb.Render())
	}

	pb.Update(2)
	if !strings.Contains(pb.Render(), "\x1b[32m") {
		t.Errorf("expected green when complete, got %q", pb.Render())
	}
}
