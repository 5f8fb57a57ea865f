package repository

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/matchlog/internal/domain/timeline"
)

// JSONMap is a map stored as JSON text.
type JSONMap map[string]any

// GormDataType implements schema.GormDataTypeInterface.
func (JSONMap) GormDataType() string { return "text" }

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]any(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(src any) error {
	out := JSONMap{}
	if err := scanJSON(src, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

// JSONList is a string list stored as JSON text.
type JSONList []string

// GormDataType implements schema.GormDataTypeInterface.
func (JSONList) GormDataType() string { return "text" }

// Value implements driver.Valuer.
func (l JSONList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *JSONList) Scan(src any) error {
	var out JSONList
	if err := scanJSON(src, &out); err != nil {
		return err
	}
	*l = out
	return nil
}

func scanJSON(src, dst any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, dst)
}

// Club is a rugby club.
type Club struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"uniqueIndex;size:200;not null"`
	CreatedAt time.Time
}

// Team belongs to a club.
type Team struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"uniqueIndex:idx_team_club,priority:1;size:200;not null"`
	ClubID    uint   `gorm:"uniqueIndex:idx_team_club,priority:2"`
	CreatedAt time.Time
}

// Player is identified by name.
type Player struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"uniqueIndex;size:200;not null"`
	CreatedAt time.Time
}

// MatchRecord is a stored match. Anchor columns are nil until an import or
// recalculation resolves them.
type MatchRecord struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	TeamID       uint   `gorm:"index"`
	OpponentID   uint   `gorm:"index"`
	Opponent     string `gorm:"size:200"`
	Date         string
	Location     string
	Competition  string
	Round        string
	Referee      string
	VideoURL     string
	Result       string
	Field        string
	Rain         string
	Muddy        string
	Wind1P       string
	Wind2P       string
	SourcePath   string
	SourceFormat string
	Profile      string
	Batch        string `gorm:"index;size:36"`
	KickOff1     *float64
	End1         *float64
	KickOff2     *float64
	End2         *float64
	Delays       JSONMap
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName implements schema.Tabler.
func (MatchRecord) TableName() string { return "matches" }

// Default anchors used when a match row has none.
var defaultAnchors = timeline.Anchors{KickOff1: 0, End1: 2400, KickOff2: 2700, End2: 4800}

// Anchors returns the stored anchors, defaulting missing ones.
func (m MatchRecord) Anchors() timeline.Anchors {
	a := defaultAnchors
	pick := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	pick(&a.KickOff1, m.KickOff1)
	pick(&a.End1, m.End1)
	pick(&a.KickOff2, m.KickOff2)
	pick(&a.End2, m.End2)
	return a
}

// DelaySpec decodes the stored delays.
func (m MatchRecord) DelaySpec() timeline.DelaySpec {
	var d timeline.DelaySpec
	if len(m.Delays) == 0 {
		return d
	}
	b, err := json.Marshal(map[string]any(m.Delays))
	if err != nil {
		return d
	}
	_ = json.Unmarshal(b, &d)
	return d
}

func delaysColumn(d timeline.DelaySpec) JSONMap {
	out := JSONMap{"global_delay_seconds": d.GlobalDelaySeconds}
	if len(d.EventDelays) > 0 {
		ev := make(map[string]any, len(d.EventDelays))
		for k, v := range d.EventDelays {
			ev[k] = v
		}
		out["event_delays"] = ev
	}
	return out
}

// EventRow is a stored canonical event.
type EventRow struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	MatchID      uint   `gorm:"index;not null"`
	Index        int    `gorm:"column:event_index"`
	EventType    string `gorm:"index;size:100"`
	TimestampSec *float64
	Team         string `gorm:"size:200"`
	PlayerID     *uint  `gorm:"index"`
	Players      JSONList
	X            *float64
	Y            *float64
	ExtraData    JSONMap
	CreatedAt    time.Time
}

// TableName implements schema.Tabler.
func (EventRow) TableName() string { return "events" }

func (r EventRow) stored() StoredEvent {
	return StoredEvent{
		ID:        r.ID,
		MatchID:   r.MatchID,
		Index:     r.Index,
		Type:      r.EventType,
		Timestamp: r.TimestampSec,
		Team:      r.Team,
		Players:   []string(r.Players),
		X:         r.X,
		Y:         r.Y,
		ExtraData: map[string]any(r.ExtraData),
	}
}

// CategoryMappingRow is a vocabulary row.
type CategoryMappingRow struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	SourceTerm     string `gorm:"uniqueIndex:idx_mapping_term,priority:1;size:200;not null"`
	MappingType    string `gorm:"uniqueIndex:idx_mapping_term,priority:2;size:20;not null"`
	Language       string `gorm:"uniqueIndex:idx_mapping_term,priority:3;size:10"`
	TargetCategory string `gorm:"size:200;not null"`
	Priority       int
	Notes          string
	UpdatedAt      time.Time
}

// TableName implements schema.Tabler.
func (CategoryMappingRow) TableName() string { return "category_mappings" }

// ProfileRow stores an import profile as JSON.
type ProfileRow struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"uniqueIndex;size:200;not null"`
	Data      string `gorm:"type:text"`
	UpdatedAt time.Time
}

// TableName implements schema.Tabler.
func (ProfileRow) TableName() string { return "import_profiles" }
