package mapping

import (
	"bytes"
	"encoding/json"
)

// Rule copies the value at Source to Target through an optional transformer.
type Rule struct {
	Source      string `koanf:"source" json:"source"`
	Target      string `koanf:"target" json:"target"`
	Transformer string `koanf:"transformer" json:"transformer,omitempty"`
}

// Spec is the mapping block of an import profile. It holds either path
// rules or the structured code/team_inference/labels sections.
type Spec struct {
	Rules         []Rule            `koanf:"rules" json:"rules,omitempty"`
	Code          map[string]string `koanf:"code" json:"code,omitempty"`
	TeamInference map[string]string `koanf:"team_inference" json:"team_inference,omitempty"`
	Labels        map[string]string `koanf:"labels" json:"labels,omitempty"`
}

// Structured reports whether any structured section is set.
func (s Spec) Structured() bool {
	return len(s.Code) > 0 || len(s.TeamInference) > 0 || len(s.Labels) > 0
}

// IsZero reports whether the spec does nothing.
func (s Spec) IsZero() bool {
	return len(s.Rules) == 0 && !s.Structured()
}

// UnmarshalJSON accepts either a bare rule list or an object.
func (s *Spec) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var rules []Rule
		if err := json.Unmarshal(trimmed, &rules); err != nil {
			return err
		}
		*s = Spec{Rules: rules}
		return nil
	}
	type plain Spec
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*s = Spec(p)
	return nil
}
