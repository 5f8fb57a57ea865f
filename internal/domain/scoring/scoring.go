// Package scoring classifies scoring descriptors and values them in points.
package scoring

import "strings"

// Canonical scoring types.
const (
	Try         = "TRY"
	Conversion  = "CONVERSION"
	PenaltyKick = "PENALTY-KICK"
	Drop        = "DROP"
)

// Result is a classified scoring action.
type Result struct {
	Type  string
	Value int
}

// Scorer turns a free-form points descriptor into a Result.
type Scorer interface {
	Score(descriptor string) (Result, bool)
}

// Option applies a configuration option to the TableScorer.
type Option func(*TableScorer)

// WithValues overrides point values per scoring type. Negative values are
// ignored.
func WithValues(values map[string]int) Option {
	return func(s *TableScorer) {
		for typ, v := range values {
			if v >= 0 {
				s.values[strings.ToUpper(strings.TrimSpace(typ))] = v
			}
		}
	}
}

// TableScorer values scoring types from a lookup table.
type TableScorer struct {
	values map[string]int
}

// NewTableScorer creates a scorer with rugby union point values.
func NewTableScorer(opts ...Option) *TableScorer {
	s := &TableScorer{values: map[string]int{
		Try:         5,
		Conversion:  2,
		PenaltyKick: 3,
		Drop:        3,
	}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Classify maps a descriptor onto a canonical type. Unrecognised text is
// returned upper-cased.
func Classify(descriptor string) string {
	d := strings.ToUpper(strings.TrimSpace(descriptor))
	switch {
	case d == "":
		return ""
	case d == "P TRY" || strings.Contains(d, "TRY"):
		return Try
	case strings.Contains(d, "CONVERSION"):
		return Conversion
	case strings.Contains(d, "DROP"):
		return Drop
	case strings.Contains(d, "PENAL"):
		return PenaltyKick
	default:
		return d
	}
}

// Score classifies descriptor. ok is false when the type has no value.
func (s *TableScorer) Score(descriptor string) (Result, bool) {
	typ := Classify(descriptor)
	if typ == "" {
		return Result{}, false
	}
	v, ok := s.values[typ]
	return Result{Type: typ, Value: v}, ok
}
