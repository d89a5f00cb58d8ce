// Package outlier removes implausible passages before any aggregate or
// model is computed from them.
//
// Filtering runs in two stages. Stage 1 checks each record against the
// static hard bound for its zone group and congestion level. Stage 2 groups
// the Stage-1 survivors by (zone, congestion level) and, for groups with
// enough samples, keeps only records within a multiple of the group mean.
// Because Stage 2 statistics are computed after Stage 1, gross outliers can
// never widen the adaptive bounds that are meant to catch subtler ones.
//
// Records missing a zone, congestion level or observed wait fail Stage 1
// but are kept by Stage 2 if they reach it (Stage 1 disabled). Stage 1 is a
// gate; Stage 2 never discards what it cannot evaluate.
package outlier
