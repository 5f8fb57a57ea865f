// Package repository persists clubs, teams, players, matches, events,
// category mappings and import profiles.
package repository

import (
	"context"

	"github.com/okian/matchlog/internal/domain/model"
	"github.com/okian/matchlog/internal/domain/profile"
	"github.com/okian/matchlog/internal/domain/timeline"
)

// MatchInput describes a match row created by an import.
type MatchInput struct {
	Info         model.MatchInfo
	OurTeam      string
	Opponent     string
	SourcePath   string
	SourceFormat model.Format
	Profile      string
	Batch        string
	Anchors      timeline.Anchors
	Delays       timeline.DelaySpec
}

// ImportResult identifies what an import stored.
type ImportResult struct {
	MatchID uint
	TeamID  uint
	Events  int
	Players int
}

// StoredEvent is a persisted event row.
type StoredEvent struct {
	ID        uint
	MatchID   uint
	Index     int
	Type      string
	Timestamp *float64
	Team      string
	Players   []string
	X, Y      *float64
	ExtraData map[string]any
}

// Store is the persistence collaborator of the import pipeline.
type Store interface {
	FindOrCreateClub(ctx context.Context, name string) (uint, error)
	FindOrCreateTeam(ctx context.Context, name string, clubID uint) (uint, error)
	FindOrCreatePlayer(ctx context.Context, name string) (uint, error)

	// CreateMatch creates the match row and its teams.
	CreateMatch(ctx context.Context, in MatchInput) (ImportResult, error)
	// Match returns a match row. Returns ErrNotFound for unknown ids.
	Match(ctx context.Context, id uint) (MatchRecord, error)
	// PersistEvents stores events for a match in one transaction.
	PersistEvents(ctx context.Context, matchID uint, events []*model.Event) (int, error)
	// SaveImport creates the match and stores its events atomically.
	SaveImport(ctx context.Context, in MatchInput, events []*model.Event) (ImportResult, error)

	MatchEvents(ctx context.Context, matchID uint) ([]StoredEvent, error)
	UpdateEventExtras(ctx context.Context, extras map[uint]map[string]any) error
	// UpdateMatchTiming stores the anchors and delays a recalculation used.
	UpdateMatchTiming(ctx context.Context, matchID uint, a timeline.Anchors, d timeline.DelaySpec) error

	CategoryMappings(ctx context.Context) ([]model.CategoryMapping, error)
	UpsertCategoryMappings(ctx context.Context, rows []model.CategoryMapping) (int, error)

	Profile(ctx context.Context, name string) (*profile.Profile, error)
	SaveProfile(ctx context.Context, p *profile.Profile) error

	Counts(ctx context.Context) (Counts, error)

	Close() error
}
