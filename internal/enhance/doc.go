// Package enhance trains and applies the two multiplicative corrections to
// wait-time estimates: a per-hour factor (TimeOfDayModel) and a factor for
// whether the queue was growing, stable or shrinking (QueueGrowthModel).
//
// Models are plain values. Fit builds one from historical records, Save and
// Load persist it, and the Transform methods annotate records with adjusted
// predictions. ApplyAll chains both models and multiplies in the
// conservative bias.
package enhance

import "errors"

// ErrUntrained is returned when a model that was neither fitted nor loaded
// is used for inference or persistence.
var ErrUntrained = errors.New("enhance: model is not trained")

// ErrSchemaMismatch is returned when a persisted artifact does not have the
// expected shape.
var ErrSchemaMismatch = errors.New("enhance: artifact schema mismatch")
