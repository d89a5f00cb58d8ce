package units

import (
	"fmt"
	"time"
)

// IsTimezoneValid reports whether tz names a zone in the tz database.
func IsTimezoneValid(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// LoadLocation resolves the timezone passage logs were written in. An
// empty name means the host's local zone.
func LoadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", tz, err)
	}
	return loc, nil
}
