package passage

// Bounds is a wait-time interval in seconds.
type Bounds struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// ContainsOpen reports whether lower < v < upper.
func (b Bounds) ContainsOpen(v float64) bool {
	return b.Lower < v && v < b.Upper
}

// ContainsClosed reports whether lower <= v <= upper.
func (b Bounds) ContainsClosed(v float64) bool {
	return b.Lower <= v && v <= b.Upper
}

const minute = 60

// hardBounds encodes what operators consider a plausible wait for each kind
// of checkpoint at each congestion level, e.g. an identity check at Low
// congestion takes under 8 minutes. It is editorial, not derived from data.
var hardBounds = map[ZoneGroup]map[CongestionLevel]Bounds{
	GroupIdentity: {
		LevelLow:      {0, 8 * minute},
		LevelMedium:   {4 * minute, 15 * minute},
		LevelHigh:     {6 * minute, 30 * minute},
		LevelVeryHigh: {8 * minute, 40 * minute},
	},
	GroupSecurity: {
		LevelLow:      {0, 8 * minute},
		LevelMedium:   {2 * minute, 15 * minute},
		LevelHigh:     {3 * minute, 20 * minute},
		LevelVeryHigh: {4 * minute, 30 * minute},
	},
}

// HardBound returns the plausible wait interval for a zone group and
// congestion level. ok is false for an unknown level.
func HardBound(g ZoneGroup, level CongestionLevel) (b Bounds, ok bool) {
	b, ok = hardBounds[g][level]
	return b, ok
}

// WithinHardBounds reports whether the record's observed wait lies strictly
// inside the hard bound for its zone group and congestion level. Records
// missing any filter field fail.
func WithinHardBounds(r Record) bool {
	if !r.HasFilterFields() {
		return false
	}
	b, ok := HardBound(r.Group(), r.Congestion)
	if !ok {
		return false
	}
	return b.ContainsOpen(float64(r.ActualPassTime))
}
