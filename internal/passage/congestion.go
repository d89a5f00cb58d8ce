package passage

// CongestionLevel is a discrete queue-size bucket. Thresholds differ by
// zone group.
type CongestionLevel string

const (
	// LevelUnknown is the zero value: the level has not been derived.
	LevelUnknown  CongestionLevel = ""
	LevelLow      CongestionLevel = "Low"
	LevelMedium   CongestionLevel = "Medium"
	LevelHigh     CongestionLevel = "High"
	LevelVeryHigh CongestionLevel = "VeryHigh"
)

// CongestionLevels lists the levels from least to most congested.
var CongestionLevels = []CongestionLevel{LevelLow, LevelMedium, LevelHigh, LevelVeryHigh}

// IsValid reports whether l is one of the four defined levels.
func (l CongestionLevel) IsValid() bool {
	switch l {
	case LevelLow, LevelMedium, LevelHigh, LevelVeryHigh:
		return true
	}
	return false
}

// Rank orders levels for sorting; unknown levels sort last.
func (l CongestionLevel) Rank() int {
	for i, v := range CongestionLevels {
		if v == l {
			return i
		}
	}
	return len(CongestionLevels)
}

// ZoneGroup partitions checkpoints by the kind of check performed there.
type ZoneGroup string

const (
	// GroupIdentity covers the document/identity check zones.
	GroupIdentity ZoneGroup = "identity"
	// GroupSecurity covers the security screening zones.
	GroupSecurity ZoneGroup = "security"
)

// IdentityZoneCutoff is the first zone id that belongs to the security
// group. Zones 1-3 are identity checks.
const IdentityZoneCutoff = 4

// ZoneGroupOf maps a zone id to its group. The mapping is total: every id,
// including non-positive ones, lands in exactly one group.
func ZoneGroupOf(zoneID int) ZoneGroup {
	if zoneID < IdentityZoneCutoff {
		return GroupIdentity
	}
	return GroupSecurity
}

// congestionThresholds holds the ascending queue-size cut points
// [t1, t2, t3] for each zone group.
var congestionThresholds = map[ZoneGroup][3]int{
	GroupIdentity: {40, 80, 140},
	GroupSecurity: {5, 11, 16},
}

// Thresholds returns the queue-size cut points for a zone group.
func Thresholds(g ZoneGroup) [3]int {
	return congestionThresholds[g]
}

// ClassifyCongestion maps a queue size to a congestion level using the
// thresholds of the zone's group. Counts at a threshold belong to the lower
// level.
func ClassifyCongestion(zoneID, objectCount int) CongestionLevel {
	t := congestionThresholds[ZoneGroupOf(zoneID)]
	switch {
	case objectCount <= t[0]:
		return LevelLow
	case objectCount <= t[1]:
		return LevelMedium
	case objectCount <= t[2]:
		return LevelHigh
	default:
		return LevelVeryHigh
	}
}

// Classify returns the congestion level of a record.
func Classify(r Record) CongestionLevel {
	return ClassifyCongestion(r.ZoneID, r.ObjectCount)
}

// ClassifyAll returns a copy of records with Congestion set on each.
func ClassifyAll(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		r.Congestion = Classify(r)
		out[i] = r
	}
	return out
}
