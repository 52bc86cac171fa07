package types

import "fmt"

// UpdateStrategy decides which incoming values may overwrite fields of an
// existing account during an update.
type UpdateStrategy string

const (
	// UpdateNoChanges never overwrites existing fields.
	UpdateNoChanges UpdateStrategy = "no-change"
	// UpdateMissing overwrites a field only when the existing value is empty.
	UpdateMissing UpdateStrategy = "fill-missing"
	// UpdateFileOverride overwrites with values that came from the CSV file,
	// but never with values filled from the policy defaults.
	UpdateFileOverride UpdateStrategy = "file-override"
	// UpdateAllOverride overwrites with both file values and defaults.
	UpdateAllOverride UpdateStrategy = "all-override"
)

// AllUpdateStrategies returns all valid update strategies.
func AllUpdateStrategies() []UpdateStrategy {
	return []UpdateStrategy{UpdateNoChanges, UpdateMissing, UpdateFileOverride, UpdateAllOverride}
}

// IsValid checks if the strategy is known.
func (s UpdateStrategy) IsValid() bool {
	switch s {
	case UpdateNoChanges, UpdateMissing, UpdateFileOverride, UpdateAllOverride:
		return true
	default:
		return false
	}
}

// FillsDefaults reports whether default templates are applied to fields an
// existing account's row left blank. Only file-override needs the defaults
// materialized (the merge later skips default-filled values, so they must be
// tracked); no-change tolerates them since nothing is written anyway.
func (s UpdateStrategy) FillsDefaults() bool {
	return s == UpdateFileOverride || s == UpdateNoChanges
}

// String returns the string representation of the strategy.
func (s UpdateStrategy) String() string {
	return string(s)
}

// ParseUpdateStrategy parses a string into an UpdateStrategy.
func ParseUpdateStrategy(v string) (UpdateStrategy, error) {
	s := UpdateStrategy(v)
	if !s.IsValid() {
		return "", fmt.Errorf("invalid update strategy: %s", v)
	}
	return s, nil
}
