package model

// MappingType scopes a CategoryMapping row.
type MappingType string

// Known mapping types.
const (
	MappingEventType  MappingType = "event_type"
	MappingDescriptor MappingType = "descriptor"
)

// CategoryMapping maps a source term to a canonical category.
type CategoryMapping struct {
	SourceTerm     string      `json:"source_term"`
	TargetCategory string      `json:"target_category"`
	MappingType    MappingType `json:"mapping_type"`
	Language       string      `json:"language,omitempty"`
	Priority       int         `json:"priority"`
	Notes          string      `json:"notes,omitempty"`
}
