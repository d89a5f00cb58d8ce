package passage

import "testing"

func TestZoneGroupOf(t *testing.T) {
	tests := []struct {
		zone int
		want ZoneGroup
	}{
		{0, GroupIdentity},
		{1, GroupIdentity},
		{3, GroupIdentity},
		{4, GroupSecurity},
		{17, GroupSecurity},
	}
	for _, tt := range tests {
		if got := ZoneGroupOf(tt.zone); got != tt.want {
			t.Errorf("ZoneGroupOf(%d) = %s, want %s", tt.zone, got, tt.want)
		}
	}
}

func TestClassifyCongestion(t *testing.T) {
	tests := []struct {
		name  string
		zone  int
		count int
		want  CongestionLevel
	}{
		{"identity empty", 1, 0, LevelLow},
		{"identity at t1", 2, 40, LevelLow},
		{"identity above t1", 2, 41, LevelMedium},
		{"identity at t2", 3, 80, LevelMedium},
		{"identity at t3", 3, 140, LevelHigh},
		{"identity above t3", 1, 141, LevelVeryHigh},
		{"security at t1", 5, 5, LevelLow},
		{"security medium", 5, 6, LevelMedium},
		{"security at t2", 9, 11, LevelMedium},
		{"security high", 9, 16, LevelHigh},
		{"security very high", 17, 17, LevelVeryHigh},
		{"security huge queue", 4, 100000, LevelVeryHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyCongestion(tt.zone, tt.count); got != tt.want {
				t.Errorf("ClassifyCongestion(%d, %d) = %s, want %s", tt.zone, tt.count, got, tt.want)
			}
		})
	}
}

func TestClassifyAllDoesNotMutateInput(t *testing.T) {
	in := []Record{{ZoneID: 5, ObjectCount: 12}, {ZoneID: 1, ObjectCount: 3}}
	out := ClassifyAll(in)

	if in[0].Congestion != LevelUnknown {
		t.Errorf("input mutated: %s", in[0].Congestion)
	}
	if out[0].Congestion != LevelHigh || out[1].Congestion != LevelLow {
		t.Errorf("ClassifyAll = %s, %s", out[0].Congestion, out[1].Congestion)
	}
}

func TestCongestionLevelIsValid(t *testing.T) {
	for _, l := range CongestionLevels {
		if !l.IsValid() {
			t.Errorf("%s should be valid", l)
		}
	}
	if LevelUnknown.IsValid() || CongestionLevel("Very High").IsValid() {
		t.Error("unexpected valid level")
	}
	if LevelUnknown.Rank() != len(CongestionLevels) {
		t.Errorf("unknown level rank = %d", LevelUnknown.Rank())
	}
}
