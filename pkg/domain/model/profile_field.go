package model

// ProfileField describes one registered custom profile field. Composite
// fields carry content plus a format indicator and are split into two
// sub-values during normalization.
type ProfileField struct {
	// Name is the full column name including the profile_field_ prefix.
	Name string
	// Composite marks text+format shaped fields.
	Composite bool
}

// FormatSuffix is appended to a composite field's name for its format
// sub-value.
const FormatSuffix = "_format"

// DefaultFormat is the format indicator written for composite fields loaded
// from CSV.
const DefaultFormat = "plain"
