package model

// DefectKind classifies a recoverable per-event problem.
type DefectKind string

// Known defect kinds.
const (
	DefectMissingTimestamp DefectKind = "missing_timestamp"
	DefectMissingCategory  DefectKind = "missing_category"
	DefectBadCoordinate    DefectKind = "bad_coordinate"
	DefectTransform        DefectKind = "transform_failed"
)

// Defect records a problem with one event. The event is kept.
type Defect struct {
	Index  int        `json:"index"`
	Kind   DefectKind `json:"kind"`
	Detail string     `json:"detail,omitempty"`
}
