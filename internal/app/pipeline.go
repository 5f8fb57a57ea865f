package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okian/matchlog/internal/domain/enrich"
	"github.com/okian/matchlog/internal/domain/mapping"
	"github.com/okian/matchlog/internal/domain/model"
	"github.com/okian/matchlog/internal/domain/normalize"
	"github.com/okian/matchlog/internal/domain/profile"
	"github.com/okian/matchlog/internal/domain/scoring"
	"github.com/okian/matchlog/internal/domain/source"
	"github.com/okian/matchlog/internal/domain/timeline"
	"github.com/okian/matchlog/internal/domain/vocab"
	"github.com/okian/matchlog/pkg/logger"
	"github.com/okian/matchlog/pkg/metrics"
)

// Stage names used for latency metrics.
const (
	StageParse     = "parse"
	StageNormalize = "normalize"
	StageMapping   = "mapping"
	StageAnchors   = "anchors"
	StageGameTime  = "game_time"
	StageEnrich    = "enrich"
)

// RunInput is one pipeline invocation.
type RunInput struct {
	Path     string
	Profile  *profile.Profile
	Mappings []model.CategoryMapping
	OurTeam  string
	Opponent string
}

// Result is the pipeline output, ready to persist.
type Result struct {
	Document *model.Document
	Events   []*model.Event
	Anchors  timeline.Anchors
	Delays   timeline.DelaySpec
	Defects  []model.Defect
	Discard  int
	Degraded int
	Batch    string
	OurTeam  string
	Opponent string
}

// Pipeline runs the import stages in order: parse, normalize, mapping,
// anchors, game-time, enrichment. A run is single-threaded; one Pipeline
// may serve concurrent runs.
type Pipeline struct {
	parser      *source.Parser
	scorer      scoring.Scorer
	tryWindow   float64
	breakWindow float64
	teamWindow  float64
	ourLabel    string
	newID       func() string
	logger      logger.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithParser sets the source parser.
func WithParser(p *source.Parser) PipelineOption {
	return func(pl *Pipeline) {
		if p != nil {
			pl.parser = p
		}
	}
}

// WithScorer sets the points table.
func WithScorer(s scoring.Scorer) PipelineOption {
	return func(pl *Pipeline) {
		if s != nil {
			pl.scorer = s
		}
	}
}

// WithWindows sets the try, break and team look-around windows in seconds.
// Zero keeps the default.
func WithWindows(try, brk, team float64) PipelineOption {
	return func(pl *Pipeline) {
		pl.tryWindow, pl.breakWindow, pl.teamWindow = try, brk, team
	}
}

// WithOurTeamLabel sets the team name used when neither the request, the
// profile nor the source names one.
func WithOurTeamLabel(label string) PipelineOption {
	return func(pl *Pipeline) {
		if label != "" {
			pl.ourLabel = label
		}
	}
}

// WithIDGenerator sets the batch id source.
func WithIDGenerator(f func() string) PipelineOption {
	return func(pl *Pipeline) {
		if f != nil {
			pl.newID = f
		}
	}
}

// WithPipelineLogger sets the pipeline logger.
func WithPipelineLogger(l logger.Logger) PipelineOption {
	return func(pl *Pipeline) {
		if l != nil {
			pl.logger = l
		}
	}
}

// NewPipeline creates a pipeline.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		scorer:   scoring.NewTableScorer(),
		ourLabel: enrich.DefaultOurTeam,
		newID:    uuid.NewString,
		logger:   logger.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.parser == nil {
		p.parser = source.NewParser(source.WithLogger(p.logger))
	}
	return p
}

// Run imports one file without persisting it. Parse and configuration
// errors abort the run; per-event problems are returned as defects.
func (p *Pipeline) Run(ctx context.Context, in RunInput) (*Result, error) {
	const op = "pipeline.Run"

	prof := in.Profile
	if prof == nil {
		prof = profile.Default()
	}
	tm, err := prof.TimeMapping.Build()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log := p.logger.Named("pipeline")

	var doc *model.Document
	if err := stage(StageParse, func() (err error) {
		doc, err = p.parser.Parse(ctx, in.Path, prof)
		return err
	}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res := &Result{Document: doc, Batch: p.newID(), Delays: prof.TimeMapping.Delays}
	res.OurTeam = firstNonEmpty(in.OurTeam, prof.OurTeam(doc.Match, p.ourLabel))
	res.Opponent = firstNonEmpty(in.Opponent, prof.OpponentTeam(doc.Match, ""))

	timed(StageNormalize, func() {
		n := normalize.New(
			normalize.WithTranslator(vocab.New(in.Mappings)),
			normalize.WithProfile(prof),
			normalize.WithScorer(p.scorer),
			normalize.WithLogger(log),
		)
		var rep normalize.Report
		res.Events, rep = n.Normalize(ctx, doc)
		res.Defects, res.Discard = rep.Defects, rep.Discarded
	})

	timed(StageMapping, func() {
		res.Defects = append(res.Defects, mapping.New(prof.Mapping, mapping.WithLogger(log)).Apply(ctx, res.Events)...)
	})

	if err := stage(StageAnchors, func() (err error) {
		res.Anchors, err = timeline.NewResolver(timeline.WithLogger(log)).Resolve(ctx, tm, res.Events)
		return err
	}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	timed(StageGameTime, func() {
		res.Degraded = timeline.NewCalculator(res.Anchors, tm.Delays).ApplyAll(res.Events)
	})

	timed(StageEnrich, func() {
		enrich.New(
			enrich.WithTryWindow(p.tryWindow),
			enrich.WithBreakWindow(p.breakWindow),
			enrich.WithTeamWindow(p.teamWindow),
			enrich.WithTeamMapping(prof.TeamMapping),
			enrich.WithOurTeam(res.OurTeam),
			enrich.WithOpponent(res.Opponent),
			enrich.WithInferenceRules(prof.TeamInference),
			enrich.WithLogger(log),
		).Enrich(ctx, res.Events)
	})

	for _, d := range res.Defects {
		metrics.RecordDefect(string(d.Kind))
		log.Warn(ctx, "event defect",
			logger.Int("index", d.Index),
			logger.String("kind", string(d.Kind)),
			logger.String("detail", d.Detail),
		)
	}
	metrics.RecordEventsDiscarded(res.Discard)

	log.Info(ctx, "pipeline finished",
		logger.String("path", in.Path),
		logger.String("profile", prof.Name),
		logger.String("batch", res.Batch),
		logger.Int("events", len(res.Events)),
		logger.Int("defects", len(res.Defects)),
		logger.Int("discarded", res.Discard),
		logger.Int("degraded", res.Degraded),
	)
	return res, nil
}

func stage(name string, fn func() error) error {
	var err error
	timed(name, func() { err = fn() })
	return err
}

// timed records the latency of a stage that cannot fail.
func timed(name string, fn func()) {
	start := time.Now()
	fn()
	metrics.ObserveStageLatency(name, float64(time.Since(start).Microseconds())/1000)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// CanonicalEvent is the persisted shape of an event.
type CanonicalEvent struct {
	Index     int            `json:"index"`
	Type      string         `json:"event_type"`
	Timestamp *float64       `json:"timestamp_sec"`
	Team      *string        `json:"team"`
	Players   []string       `json:"players"`
	X         *float64       `json:"x"`
	Y         *float64       `json:"y"`
	ExtraData map[string]any `json:"extra_data"`
}

// Canonical flattens events into their persisted shape.
func Canonical(events []*model.Event) []CanonicalEvent {
	out := make([]CanonicalEvent, 0, len(events))
	for _, ev := range events {
		c := CanonicalEvent{
			Index:     ev.Index,
			Type:      ev.Type,
			Timestamp: ev.Timestamp,
			Players:   ev.Players,
			X:         ev.X,
			Y:         ev.Y,
			ExtraData: ev.ExtraData(),
		}
		if c.Players == nil {
			c.Players = []string{}
		}
		if ev.Team != "" {
			c.Team = model.StringPtr(ev.Team)
		}
		out = append(out, c)
	}
	return out
}
