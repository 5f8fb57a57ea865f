package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/okian/matchlog/internal/domain/model"
	"github.com/okian/matchlog/internal/domain/profile"
	"github.com/okian/matchlog/internal/domain/timeline"
	"github.com/okian/matchlog/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultDBFile is used when no database path is configured.
const DefaultDBFile = "matchlog.sqlite3"

const insertBatchSize = 200

// SQLStore is a Store backed by SQLite through gorm.
type SQLStore struct {
	db           *gorm.DB
	sqlDB        *sql.DB
	maxOpenConns int
	busyTimeout  time.Duration
	logger       logger.Logger
}

// Counts summarizes stored rows.
type Counts struct {
	Matches int64 `json:"matches"`
	Events  int64 `json:"events"`
	Players int64 `json:"players"`
}

// Open opens or creates the database at path and migrates the schema.
func Open(path string, opts ...Option) (*SQLStore, error) {
	s := &SQLStore{
		maxOpenConns: 1,
		busyTimeout:  5 * time.Second,
		logger:       logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if strings.TrimSpace(path) == "" {
		path = DefaultDBFile
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)", path, s.busyTimeout.Milliseconds())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}
	sqlDB.SetMaxOpenConns(s.maxOpenConns)
	sqlDB.SetMaxIdleConns(s.maxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Club{}, &Team{}, &Player{}, &MatchRecord{}, &EventRow{}, &CategoryMappingRow{}, &ProfileRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	s.db, s.sqlDB = db, sqlDB
	return s, nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// FindOrCreateClub returns the id of the club named name.
func (s *SQLStore) FindOrCreateClub(ctx context.Context, name string) (uint, error) {
	return findOrCreateClub(s.db.WithContext(ctx), name)
}

// FindOrCreateTeam returns the id of the team named name in clubID.
func (s *SQLStore) FindOrCreateTeam(ctx context.Context, name string, clubID uint) (uint, error) {
	return findOrCreateTeam(s.db.WithContext(ctx), name, clubID)
}

// FindOrCreatePlayer returns the id of the player named name.
func (s *SQLStore) FindOrCreatePlayer(ctx context.Context, name string) (uint, error) {
	return findOrCreatePlayer(s.db.WithContext(ctx), name)
}

func findOrCreateClub(tx *gorm.DB, name string) (uint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrEmptyName
	}
	var c Club
	if err := tx.Where(Club{Name: name}).FirstOrCreate(&c).Error; err != nil {
		return 0, fmt.Errorf("find or create club %q: %w", name, err)
	}
	return c.ID, nil
}

func findOrCreateTeam(tx *gorm.DB, name string, clubID uint) (uint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrEmptyName
	}
	var t Team
	if err := tx.Where(Team{Name: name, ClubID: clubID}).FirstOrCreate(&t).Error; err != nil {
		return 0, fmt.Errorf("find or create team %q: %w", name, err)
	}
	return t.ID, nil
}

func findOrCreatePlayer(tx *gorm.DB, name string) (uint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrEmptyName
	}
	var p Player
	if err := tx.Where(Player{Name: name}).FirstOrCreate(&p).Error; err != nil {
		return 0, fmt.Errorf("find or create player %q: %w", name, err)
	}
	return p.ID, nil
}

// teamFor creates a club of the same name and its team.
func teamFor(tx *gorm.DB, name string) (uint, error) {
	clubID, err := findOrCreateClub(tx, name)
	if err != nil {
		return 0, err
	}
	return findOrCreateTeam(tx, name, clubID)
}

// CreateMatch creates the match row and its teams.
func (s *SQLStore) CreateMatch(ctx context.Context, in MatchInput) (ImportResult, error) {
	return createMatch(s.db.WithContext(ctx), in)
}

func createMatch(tx *gorm.DB, in MatchInput) (ImportResult, error) {
	var res ImportResult
	ours := strings.TrimSpace(in.OurTeam)
	if ours == "" {
		ours = strings.TrimSpace(in.Info.Team)
	}
	teamID, err := teamFor(tx, ours)
	if err != nil {
		return res, fmt.Errorf("our team: %w", err)
	}
	var opponentID uint
	opponent := strings.TrimSpace(in.Opponent)
	if opponent == "" {
		opponent = strings.TrimSpace(in.Info.Opponent)
	}
	if opponent != "" {
		if opponentID, err = teamFor(tx, opponent); err != nil {
			return res, fmt.Errorf("opponent: %w", err)
		}
	}

	a := in.Anchors
	m := MatchRecord{
		TeamID:       teamID,
		OpponentID:   opponentID,
		Opponent:     opponent,
		Date:         in.Info.Date,
		Location:     in.Info.Location,
		Competition:  in.Info.Competition,
		Round:        in.Info.Round,
		Referee:      in.Info.Referee,
		VideoURL:     in.Info.VideoURL,
		Result:       in.Info.Result,
		Field:        in.Info.Field,
		Rain:         in.Info.Rain,
		Muddy:        in.Info.Muddy,
		Wind1P:       in.Info.Wind1P,
		Wind2P:       in.Info.Wind2P,
		SourcePath:   in.SourcePath,
		SourceFormat: string(in.SourceFormat),
		Profile:      in.Profile,
		Batch:        in.Batch,
		KickOff1:     model.FloatPtr(a.KickOff1),
		End1:         model.FloatPtr(a.End1),
		KickOff2:     model.FloatPtr(a.KickOff2),
		End2:         model.FloatPtr(a.End2),
		Delays:       delaysColumn(in.Delays),
	}
	if err := tx.Create(&m).Error; err != nil {
		return res, fmt.Errorf("creating match: %w", err)
	}
	res.MatchID, res.TeamID = m.ID, teamID
	return res, nil
}

// Match returns a match row.
func (s *SQLStore) Match(ctx context.Context, id uint) (MatchRecord, error) {
	var m MatchRecord
	err := s.db.WithContext(ctx).First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return m, fmt.Errorf("match %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return m, fmt.Errorf("querying match: %w", err)
	}
	return m, nil
}

// PersistEvents stores events for matchID in one transaction.
func (s *SQLStore) PersistEvents(ctx context.Context, matchID uint, events []*model.Event) (int, error) {
	var n int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		n, _, err = persistEvents(tx, matchID, events)
		return err
	})
	return n, err
}

func persistEvents(tx *gorm.DB, matchID uint, events []*model.Event) (int, int, error) {
	players := make(map[string]uint)
	rows := make([]EventRow, 0, len(events))
	for _, ev := range events {
		row := EventRow{
			MatchID:      matchID,
			Index:        ev.Index,
			EventType:    ev.Type,
			TimestampSec: ev.Timestamp,
			Team:         ev.Team,
			Players:      JSONList(ev.Players),
			X:            ev.X,
			Y:            ev.Y,
			ExtraData:    JSONMap(ev.ExtraData()),
		}
		for i, name := range ev.Players {
			id, ok := players[name]
			if !ok {
				var err error
				if id, err = findOrCreatePlayer(tx, name); err != nil {
					if errors.Is(err, ErrEmptyName) {
						continue
					}
					return 0, 0, err
				}
				players[name] = id
			}
			if i == 0 {
				row.PlayerID = &id
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return 0, len(players), nil
	}
	if err := tx.CreateInBatches(rows, insertBatchSize).Error; err != nil {
		return 0, 0, fmt.Errorf("batch insert events: %w", err)
	}
	return len(rows), len(players), nil
}

// SaveImport creates the match and stores its events atomically.
func (s *SQLStore) SaveImport(ctx context.Context, in MatchInput, events []*model.Event) (ImportResult, error) {
	var res ImportResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if res, err = createMatch(tx, in); err != nil {
			return err
		}
		res.Events, res.Players, err = persistEvents(tx, res.MatchID, events)
		return err
	})
	if err != nil {
		return ImportResult{}, err
	}
	return res, nil
}

// MatchEvents returns the events of a match in source order.
func (s *SQLStore) MatchEvents(ctx context.Context, matchID uint) ([]StoredEvent, error) {
	if _, err := s.Match(ctx, matchID); err != nil {
		return nil, err
	}
	var rows []EventRow
	if err := s.db.WithContext(ctx).Where("match_id = ?", matchID).Order("event_index, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	out := make([]StoredEvent, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.stored())
	}
	return out, nil
}

// UpdateEventExtras replaces extra_data of the given events.
func (s *SQLStore) UpdateEventExtras(ctx context.Context, extras map[uint]map[string]any) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, extra := range extras {
			res := tx.Model(&EventRow{}).Where("id = ?", id).Update("extra_data", JSONMap(extra))
			if res.Error != nil {
				return fmt.Errorf("updating event %d: %w", id, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("event %d: %w", id, ErrNotFound)
			}
		}
		return nil
	})
}

// UpdateMatchTiming stores resolved anchors and delays on the match row.
func (s *SQLStore) UpdateMatchTiming(ctx context.Context, matchID uint, a timeline.Anchors, d timeline.DelaySpec) error {
	res := s.db.WithContext(ctx).Model(&MatchRecord{ID: matchID}).
		Select("KickOff1", "End1", "KickOff2", "End2", "Delays").
		Updates(MatchRecord{
			KickOff1: model.FloatPtr(a.KickOff1),
			End1:     model.FloatPtr(a.End1),
			KickOff2: model.FloatPtr(a.KickOff2),
			End2:     model.FloatPtr(a.End2),
			Delays:   delaysColumn(d),
		})
	if res.Error != nil {
		return fmt.Errorf("updating match timing: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("match %d: %w", matchID, ErrNotFound)
	}
	return nil
}

// CategoryMappings returns every vocabulary row, lowest priority first so
// that later rows win ties when loaded in order.
func (s *SQLStore) CategoryMappings(ctx context.Context) ([]model.CategoryMapping, error) {
	var rows []CategoryMappingRow
	if err := s.db.WithContext(ctx).Order("priority, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying category mappings: %w", err)
	}
	out := make([]model.CategoryMapping, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.CategoryMapping{
			SourceTerm:     r.SourceTerm,
			TargetCategory: r.TargetCategory,
			MappingType:    model.MappingType(r.MappingType),
			Language:       r.Language,
			Priority:       r.Priority,
			Notes:          r.Notes,
		})
	}
	return out, nil
}

// UpsertCategoryMappings inserts rows or updates the ones sharing source
// term, mapping type and language.
func (s *SQLStore) UpsertCategoryMappings(ctx context.Context, mappings []model.CategoryMapping) (int, error) {
	rows := make([]CategoryMappingRow, 0, len(mappings))
	for _, m := range mappings {
		term := strings.TrimSpace(m.SourceTerm)
		target := strings.TrimSpace(m.TargetCategory)
		if term == "" || target == "" {
			return 0, fmt.Errorf("category mapping %q -> %q: %w", m.SourceTerm, m.TargetCategory, ErrEmptyName)
		}
		typ := m.MappingType
		if typ == "" {
			typ = model.MappingEventType
		}
		rows = append(rows, CategoryMappingRow{
			SourceTerm:     term,
			MappingType:    string(typ),
			Language:       strings.TrimSpace(m.Language),
			TargetCategory: target,
			Priority:       m.Priority,
			Notes:          m.Notes,
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_term"}, {Name: "mapping_type"}, {Name: "language"}},
		DoUpdates: clause.AssignmentColumns([]string{"target_category", "priority", "notes", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("upserting category mappings: %w", err)
	}
	return len(rows), nil
}

// Profile loads a stored import profile.
func (s *SQLStore) Profile(ctx context.Context, name string) (*profile.Profile, error) {
	var row ProfileRow
	err := s.db.WithContext(ctx).Where("name = ?", strings.TrimSpace(name)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("profile %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying profile: %w", err)
	}
	return profile.Decode([]byte(row.Data))
}

// SaveProfile validates and stores p under its name.
func (s *SQLStore) SaveProfile(ctx context.Context, p *profile.Profile) error {
	if p == nil || strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	p.ApplyDefaults()
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := p.Encode()
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	row := ProfileRow{Name: p.Name, Data: string(data)}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	return nil
}

// Counts returns row counts for the stats endpoint.
func (s *SQLStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	db := s.db.WithContext(ctx)
	if err := db.Model(&MatchRecord{}).Count(&c.Matches).Error; err != nil {
		return c, fmt.Errorf("counting matches: %w", err)
	}
	if err := db.Model(&EventRow{}).Count(&c.Events).Error; err != nil {
		return c, fmt.Errorf("counting events: %w", err)
	}
	if err := db.Model(&Player{}).Count(&c.Players).Error; err != nil {
		return c, fmt.Errorf("counting players: %w", err)
	}
	return c, nil
}
