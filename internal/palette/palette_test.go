package palette

import (
	"strings"
	"testing"
)

func TestLookupColor(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		ok      bool
	}{
		{"red", 255, 0, 0, true},
		{"Turquoise", 64, 224, 208, true},
		{" PINK ", 255, 192, 203, true},
		{"purple", 128, 0, 128, true},
		{"magenta", 0, 0, 0, false},
	}
	for _, tt := range tests {
		c, ok := LookupColor(tt.name)
		if ok != tt.ok {
			t.Errorf("LookupColor(%q) ok = %v, want %v", tt.name, ok, tt.ok)
			continue
		}
		if ok && (c.R != tt.r || c.G != tt.g || c.B != tt.b) {
			t.Errorf("LookupColor(%q) = (%d,%d,%d), want (%d,%d,%d)", tt.name, c.R, c.G, c.B, tt.r, tt.g, tt.b)
		}
	}
}

func TestLookupPresets(t *testing.T) {
	tests := []struct {
		lookup func(string) (Preset, bool)
		name   string
		want   uint8
		ok     bool
	}{
		{LookupAnimation, "jump-rgb", 0x87, true},
		{LookupAnimation, "Crossfade All", 0x8a, true},
		{LookupAnimation, "blink_all", 0x95, true},
		{LookupAnimation, "strobe", 0, false},
		{LookupSpeed, "fast", 100, true},
		{LookupSpeed, "SLOW", 25, true},
		{LookupBrightness, "full", 100, true},
		{LookupBrightness, "High", 75, true},
		{LookupBrightness, "medium", 50, true},
		{LookupBrightness, "low", 25, true},
		{LookupBrightness, "off", 0, false},
		{LookupWarmWhite, "very low", 64, true},
		{LookupWarmWhite, "medium", 191, true},
		{LookupWarmWhite, "max", 0, false},
	}
	for _, tt := range tests {
		p, ok := tt.lookup(tt.name)
		if ok != tt.ok || p.Value != tt.want {
			t.Errorf("lookup(%q) = %d, %v; want %d, %v", tt.name, p.Value, ok, tt.want, tt.ok)
		}
	}
}

func TestNames(t *testing.T) {
	if got := strings.Join(Names(Speeds), ","); got != "fast,medium,slow" {
		t.Errorf("Names(Speeds) = %s, want fast,medium,slow", got)
	}
	if got := ColorNames(); len(got) != 9 || got[0] != "white" || got[8] != "red" {
		t.Errorf("ColorNames() = %v", got)
	}
}
