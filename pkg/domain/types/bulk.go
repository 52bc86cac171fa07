package types

import "fmt"

// BulkSelection controls which processed user ids are collected into the
// deferred bulk-action set.
type BulkSelection string

const (
	BulkNone    BulkSelection = "none"
	BulkNew     BulkSelection = "new"
	BulkUpdated BulkSelection = "updated"
	BulkAll     BulkSelection = "all"
)

// IsValid checks if the selection is known.
func (b BulkSelection) IsValid() bool {
	switch b {
	case BulkNone, BulkNew, BulkUpdated, BulkAll:
		return true
	default:
		return false
	}
}

// IncludesCreated reports whether newly created accounts are collected.
func (b BulkSelection) IncludesCreated() bool {
	return b == BulkNew || b == BulkAll
}

// IncludesUpdated reports whether updated accounts are collected.
func (b BulkSelection) IncludesUpdated() bool {
	return b == BulkUpdated || b == BulkAll
}

// IncludesUpToDate reports whether unchanged accounts are collected.
func (b BulkSelection) IncludesUpToDate() bool {
	return b == BulkAll
}

// String returns the string representation of the selection.
func (b BulkSelection) String() string {
	return string(b)
}

// ParseBulkSelection parses a string into a BulkSelection, treating empty
// as BulkNone.
func ParseBulkSelection(v string) (BulkSelection, error) {
	if v == "" {
		return BulkNone, nil
	}
	b := BulkSelection(v)
	if !b.IsValid() {
		return "", fmt.Errorf("invalid bulk selection: %s", v)
	}
	return b, nil
}
