package units

import "testing"

func TestIsValid(t *testing.T) {
	for _, u := range []string{"s", "min"} {
		if !IsValid(u) {
			t.Errorf("IsValid(%q) = false", u)
		}
	}
	for _, u := range []string{"", "h", "mph"} {
		if IsValid(u) {
			t.Errorf("IsValid(%q) = true", u)
		}
	}
	if got := GetValidUnitsString(); got != "s, min" {
		t.Errorf("GetValidUnitsString = %q", got)
	}
}

func TestConvertWait(t *testing.T) {
	tests := []struct {
		seconds float64
		unit    string
		want    float64
	}{
		{90, Seconds, 90},
		{90, Minutes, 1.5},
		{90, "bogus", 90},
		{0, Minutes, 0},
	}
	for _, tt := range tests {
		if got := ConvertWait(tt.seconds, tt.unit); got != tt.want {
			t.Errorf("ConvertWait(%v, %q) = %v, want %v", tt.seconds, tt.unit, got, tt.want)
		}
	}
}

func TestLabel(t *testing.T) {
	if got := Label(Minutes); got != "wait (min)" {
		t.Errorf("Label = %q", got)
	}
	if got := Label("x"); got != "wait (s)" {
		t.Errorf("Label fallback = %q", got)
	}
}
