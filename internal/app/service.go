// Package service wires the import pipeline to its collaborators: the job
// queue and workers, the store and the notifier.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/matchlog/internal/adapters/mq/notify"
	eventqueue "github.com/okian/matchlog/internal/adapters/mq/queue"
	workerpool "github.com/okian/matchlog/internal/adapters/mq/worker"
	"github.com/okian/matchlog/internal/adapters/repository"
	"github.com/okian/matchlog/internal/domain/dedupe"
	"github.com/okian/matchlog/internal/domain/model"
	"github.com/okian/matchlog/internal/domain/profile"
	"github.com/okian/matchlog/internal/domain/timeline"
	"github.com/okian/matchlog/pkg/logger"
	"github.com/okian/matchlog/pkg/metrics"
)

// ImportRequest names a file to import.
type ImportRequest struct {
	Path     string `json:"path"`
	Profile  string `json:"profile,omitempty"`
	OurTeam  string `json:"our_team,omitempty"`
	Opponent string `json:"opponent,omitempty"`
}

// RecalcResult reports a game-time recalculation.
type RecalcResult struct {
	MatchID  uint             `json:"match_id"`
	Events   int              `json:"events"`
	Degraded int              `json:"degraded"`
	Anchors  timeline.Anchors `json:"anchors"`
}

// Service owns the import workflow.
type Service struct {
	mu sync.RWMutex

	store      repository.Store
	ownsStore  bool
	deduper    dedupe.Deduper
	jobQueue   *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool
	notifier   notify.Notifier
	pipeline   *Pipeline
	jobs       *jobRegistry
	profiles   map[string]*profile.Profile

	workerCount int
	queueSize   int
	dedupeSize  int
	dbPath      string
	profilesDir string

	started  bool
	stopping bool
	cancel   context.CancelFunc
	logger   logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of concurrent imports.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the number of jobs that may wait.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many submissions are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore injects a store. The caller keeps ownership.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithDatabasePath sets the sqlite file opened by Start when no store is
// injected.
func WithDatabasePath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithNotifier sets the import-completed notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithPipeline sets the import pipeline.
func WithPipeline(p *Pipeline) Option {
	return func(s *Service) {
		if p != nil {
			s.pipeline = p
		}
	}
}

// WithProfilesDir loads YAML profiles from dir on Start.
func WithProfilesDir(dir string) Option {
	return func(s *Service) {
		s.profilesDir = dir
	}
}

// WithProfiles registers file-backed profiles by name.
func WithProfiles(profiles ...*profile.Profile) Option {
	return func(s *Service) {
		for _, p := range profiles {
			if p != nil {
				s.profiles[strings.ToLower(p.Name)] = p
			}
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: 2,
		queueSize:   64,
		dedupeSize:  1024,
		dbPath:      repository.DefaultDBFile,
		notifier:    notify.Nop{},
		profiles:    make(map[string]*profile.Profile),
		logger:      logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pipeline == nil {
		s.pipeline = NewPipeline(WithPipelineLogger(s.logger))
	}
	return s
}

// Start opens the store and starts the workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting import service...")

	if s.profilesDir != "" {
		loaded, err := profile.LoadDir(s.profilesDir)
		if err != nil {
			return fmt.Errorf("loading profiles: %w", err)
		}
		for _, p := range loaded {
			s.profiles[strings.ToLower(p.Name)] = p
		}
	}
	if s.store == nil {
		st, err := repository.Open(s.dbPath, repository.WithLogger(s.logger))
		if err != nil {
			return err
		}
		s.store, s.ownsStore = st, true
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.jobs = newJobRegistry(s.dedupeSize)
	s.jobQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.workerPool = workerpool.NewPool(s.workerCount, s.jobQueue, workerpool.HandlerFunc(s.handle), s.logger)
	s.workerPool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "import service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("profiles", len(s.profiles)),
	)
	return nil
}

// Stop drains the queue and closes owned resources. Jobs already queued
// run to completion first.
func (s *Service) Stop() {
	ctx := context.Background()

	s.mu.Lock()
	if !s.started || s.stopping {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	pool := s.workerPool
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping import service...")
	if pool != nil {
		if err := pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	if err := s.notifier.Close(); err != nil {
		s.logger.Warn(ctx, "closing notifier", logger.Error(err))
	}
	if s.ownsStore && s.store != nil {
		_ = s.store.Close()
		s.store, s.ownsStore = nil, false
	}
	s.started, s.stopping = false, false
	s.logger.Info(ctx, "import service stopped")
}

func (s *Service) running() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrServiceNotStarted
	}
	return s.store, nil
}

// Submit queues an import. A resubmission of the same file, profile and
// teams returns the first job with ErrDuplicateImport.
func (s *Service) Submit(ctx context.Context, req ImportRequest) (JobView, error) {
	const op = "service.Submit"
	s.mu.RLock()
	accepting := s.started && !s.stopping
	s.mu.RUnlock()
	if !accepting {
		return JobView{}, ErrServiceNotStarted
	}
	req.Path = strings.TrimSpace(req.Path)
	if req.Path == "" {
		return JobView{}, fmt.Errorf("%s: %w: path is required", op, ErrInvalidImport)
	}
	if req.Profile == "" {
		req.Profile = profile.DefaultName
	}
	digest, err := fileDigest(req.Path)
	if err != nil {
		return JobView{}, fmt.Errorf("%s: %w: %w", op, ErrInvalidImport, err)
	}

	job := model.ImportJob{
		ID:          uuid.NewString(),
		Path:        req.Path,
		Profile:     req.Profile,
		OurTeam:     req.OurTeam,
		Opponent:    req.Opponent,
		Digest:      digest,
		SubmittedAt: time.Now().UTC(),
	}
	key := jobKey(job)
	if holder, dup := s.deduper.Claim(ctx, key, job.ID); dup {
		metrics.RecordDuplicateImport()
		s.logger.Debug(ctx, "duplicate import submission", logger.String("job_id", holder), logger.String("path", job.Path))
		v, _ := s.jobs.get(holder)
		return v, ErrDuplicateImport
	}

	view := s.jobs.add(job)
	if !s.jobQueue.Enqueue(ctx, job) {
		s.deduper.Release(ctx, key)
		s.jobs.remove(job.ID)
		return JobView{}, ErrQueueFull
	}
	s.logger.Info(ctx, "import queued", logger.String("job_id", job.ID), logger.String("path", job.Path))
	return view, nil
}

// Job returns the state of a submitted import.
func (s *Service) Job(_ context.Context, id string) (JobView, error) {
	if _, err := s.running(); err != nil {
		return JobView{}, err
	}
	v, ok := s.jobs.get(id)
	if !ok {
		return JobView{}, ErrJobNotFound
	}
	return v, nil
}

func (s *Service) handle(ctx context.Context, job model.ImportJob) error {
	started := time.Now().UTC()
	s.jobs.update(job.ID, func(v *JobView) {
		v.Status = model.JobRunning
		v.StartedAt = &started
	})

	req := ImportRequest{Path: job.Path, Profile: job.Profile, OurTeam: job.OurTeam, Opponent: job.Opponent}
	sum, err := s.importFile(ctx, req, job.ID)
	finished := time.Now().UTC()
	s.jobs.update(job.ID, func(v *JobView) {
		v.FinishedAt = &finished
		if err != nil {
			v.Status = model.JobFailed
			v.Error = err.Error()
			return
		}
		v.Status = model.JobSucceeded
		v.Summary = sum
	})
	if err != nil {
		s.deduper.Release(ctx, jobKey(job))
	}
	return err
}

// Import runs one import synchronously and persists it in one transaction.
func (s *Service) Import(ctx context.Context, req ImportRequest) (*Summary, error) {
	return s.importFile(ctx, req, "")
}

// importFile runs an import; jobID tags the notification when the import
// came through the queue.
func (s *Service) importFile(ctx context.Context, req ImportRequest, jobID string) (*Summary, error) {
	const op = "service.Import"
	store, err := s.running()
	if err != nil {
		return nil, err
	}

	prof, err := s.Profile(ctx, req.Profile)
	if err != nil {
		metrics.RecordImport("error", "unknown")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rows, err := store.CategoryMappings(ctx)
	if err != nil {
		metrics.RecordImport("error", "unknown")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.pipeline.Run(ctx, RunInput{
		Path:     req.Path,
		Profile:  prof,
		Mappings: rows,
		OurTeam:  req.OurTeam,
		Opponent: req.Opponent,
	})
	if err != nil {
		metrics.RecordImport("error", "unknown")
		return nil, err
	}
	format := string(res.Document.Format)

	stored, err := store.SaveImport(ctx, repository.MatchInput{
		Info:         res.Document.Match,
		OurTeam:      res.OurTeam,
		Opponent:     res.Opponent,
		SourcePath:   req.Path,
		SourceFormat: res.Document.Format,
		Profile:      prof.Name,
		Batch:        res.Batch,
		Anchors:      res.Anchors,
		Delays:       res.Delays,
	}, res.Events)
	if err != nil {
		metrics.RecordImport("error", format)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.RecordImport("success", format)
	metrics.RecordEventsImported(stored.Events)

	sum := &Summary{
		MatchID:   stored.MatchID,
		Batch:     res.Batch,
		Format:    res.Document.Format,
		OurTeam:   res.OurTeam,
		Opponent:  res.Opponent,
		Events:    stored.Events,
		Players:   stored.Players,
		Discarded: res.Discard,
		Degraded:  res.Degraded,
		Defects:   res.Defects,
		Anchors:   res.Anchors,
	}

	msg := notify.Message{
		Event:      notify.RoutingKeyImported,
		JobID:      jobID,
		MatchID:    stored.MatchID,
		Batch:      res.Batch,
		Profile:    prof.Name,
		SourcePath: req.Path,
		Events:     stored.Events,
		Defects:    len(res.Defects),
		ImportedAt: time.Now().UTC(),
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.logger.Warn(ctx, "import notification failed", logger.Int("match_id", int(stored.MatchID)), logger.Error(err))
	}

	s.logger.Info(ctx, "import stored",
		logger.Int("match_id", int(stored.MatchID)),
		logger.Int("events", stored.Events),
		logger.String("batch", res.Batch),
	)
	return sum, nil
}

// Recalculate recomputes game-time for a stored match without re-parsing.
// An empty spec reuses the anchors and delays stored on the match; a spec
// carrying only delays keeps the stored anchors.
func (s *Service) Recalculate(ctx context.Context, matchID uint, spec timeline.Spec) (RecalcResult, error) {
	const op = "service.Recalculate"
	store, err := s.running()
	if err != nil {
		return RecalcResult{}, err
	}
	res, err := s.recalculate(ctx, store, matchID, spec)
	if err != nil {
		metrics.RecordRecalculation("error")
		return RecalcResult{}, fmt.Errorf("%s: %w", op, err)
	}
	metrics.RecordRecalculation("success")
	s.logger.Info(ctx, "game-time recalculated",
		logger.Int("match_id", int(matchID)),
		logger.Int("events", res.Events),
		logger.Int("degraded", res.Degraded),
	)
	return res, nil
}

func (s *Service) recalculate(ctx context.Context, store repository.Store, matchID uint, spec timeline.Spec) (RecalcResult, error) {
	m, err := store.Match(ctx, matchID)
	if err != nil {
		return RecalcResult{}, err
	}
	if !spec.SelectsAnchors() {
		delays := spec.Delays
		if spec.IsZero() {
			delays = m.DelaySpec()
		}
		spec = timeline.ManualSpec(m.Anchors(), delays)
	}
	tm, err := spec.Build()
	if err != nil {
		return RecalcResult{}, err
	}
	stored, err := store.MatchEvents(ctx, matchID)
	if err != nil {
		return RecalcResult{}, err
	}

	events := make([]*model.Event, len(stored))
	for i, se := range stored {
		ev := model.NewEvent(se.Index)
		ev.Type, ev.Timestamp, ev.Team, ev.Players = se.Type, se.Timestamp, se.Team, se.Players
		for k, v := range se.ExtraData {
			ev.Extra[k] = v
		}
		for _, k := range model.GameTimeKeys() {
			delete(ev.Extra, k)
		}
		events[i] = ev
	}

	anchors, err := timeline.NewResolver(timeline.WithLogger(s.logger)).Resolve(ctx, tm, events)
	if err != nil {
		return RecalcResult{}, err
	}
	degraded := timeline.NewCalculator(anchors, tm.Delays).ApplyAll(events)

	extras := make(map[uint]map[string]any, len(stored))
	for i, se := range stored {
		extras[se.ID] = events[i].ExtraData()
	}
	if err := store.UpdateEventExtras(ctx, extras); err != nil {
		return RecalcResult{}, err
	}
	if err := store.UpdateMatchTiming(ctx, matchID, anchors, spec.Delays); err != nil {
		return RecalcResult{}, err
	}
	return RecalcResult{MatchID: matchID, Events: len(stored), Degraded: degraded, Anchors: anchors}, nil
}

// Profile resolves a profile by name: stored profiles first, then files,
// then the built-in default.
func (s *Service) Profile(ctx context.Context, name string) (*profile.Profile, error) {
	store, err := s.running()
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = profile.DefaultName
	}
	p, err := store.Profile(ctx, name)
	switch {
	case err == nil:
		return p, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	s.mu.RLock()
	p, ok := s.profiles[strings.ToLower(name)]
	s.mu.RUnlock()
	if ok {
		return p, nil
	}
	if strings.EqualFold(name, profile.DefaultName) {
		return profile.Default(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
}

// SaveProfile stores p under its name.
func (s *Service) SaveProfile(ctx context.Context, p *profile.Profile) error {
	store, err := s.running()
	if err != nil {
		return err
	}
	return store.SaveProfile(ctx, p)
}

// UpsertCategoryMappings stores vocabulary rows used by later imports.
func (s *Service) UpsertCategoryMappings(ctx context.Context, rows []model.CategoryMapping) (int, error) {
	store, err := s.running()
	if err != nil {
		return 0, err
	}
	return store.UpsertCategoryMappings(ctx, rows)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}
	if !s.started {
		return stats
	}

	stats["queueLength"] = s.jobQueue.Len(ctx)
	stats["dedupeEntries"] = s.deduper.Size()
	jobs := make(map[string]int)
	for st, n := range s.jobs.countByStatus() {
		jobs[string(st)] = n
	}
	stats["jobs"] = jobs
	if c, err := s.store.Counts(ctx); err == nil {
		stats["matches"] = c.Matches
		stats["events"] = c.Events
		stats["players"] = c.Players
	} else {
		s.logger.Warn(ctx, "counting stored rows", logger.Error(err))
	}
	return stats
}

func jobKey(j model.ImportJob) string { //nolint:gocritic // hugeParam
	return dedupe.Fingerprint(j.Digest, j.Profile, j.OurTeam+"|"+j.Opponent)
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
