package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/matchlog/internal/adapters/mq/notify"
	"github.com/okian/matchlog/internal/adapters/repository"
	service "github.com/okian/matchlog/internal/app"
	"github.com/okian/matchlog/internal/domain/model"
	"github.com/okian/matchlog/internal/domain/profile"
	"github.com/okian/matchlog/internal/domain/timeline"
	"github.com/okian/matchlog/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func newService(t *testing.T, opts ...service.Option) (*service.Service, *repository.SQLStore) {
	t.Helper()
	store, err := repository.Open(filepath.Join(t.TempDir(), "matchlog.sqlite3"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	base := []service.Option{
		service.WithStore(store),
		service.WithWorkerCount(1),
		service.WithLogger(logger.Nop()),
		service.WithPipeline(newPipeline()),
	}
	svc := service.New(append(base, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Stop)
	return svc, store
}

func eventByType(events []repository.StoredEvent, typ string) repository.StoredEvent {
	for _, e := range events {
		if e.Type == typ {
			return e
		}
	}
	return repository.StoredEvent{}
}

func TestService_Lifecycle(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service that was never started", t, func() {
		svc := service.New(service.WithLogger(logger.Nop()))

		Convey("Then every operation reports it", func() {
			_, err := svc.Submit(ctx, service.ImportRequest{Path: "x.xml"})
			So(errors.Is(err, service.ErrServiceNotStarted), ShouldBeTrue)
			_, err = svc.Import(ctx, service.ImportRequest{Path: "x.xml"})
			So(errors.Is(err, service.ErrServiceNotStarted), ShouldBeTrue)
			_, err = svc.Recalculate(ctx, 1, timeline.Spec{})
			So(errors.Is(err, service.ErrServiceNotStarted), ShouldBeTrue)
			So(svc.GetStats(ctx)["started"], ShouldEqual, false)
			svc.Stop()
		})
	})

	Convey("Given a started service", t, func() {
		svc, _ := newService(t)

		Convey("Then stats report it as started", func() {
			stats := svc.GetStats(ctx)
			So(stats["started"], ShouldEqual, true)
			So(stats["queueLength"], ShouldEqual, 0)
			So(stats["matches"], ShouldEqual, int64(0))
		})

		Convey("When it is stopped", func() {
			svc.Stop()
			So(svc.GetStats(ctx)["started"], ShouldEqual, false)
			_, err := svc.Job(ctx, "any")
			So(errors.Is(err, service.ErrServiceNotStarted), ShouldBeTrue)
		})
	})
}

func TestService_Profiles(t *testing.T) {
	ctx := context.Background()

	Convey("Given file and stored profiles", t, func() {
		fileProfile := profile.Default()
		fileProfile.Name = "club"
		fileProfile.DiscardCategories = []string{"FROM_FILE"}
		svc, _ := newService(t, service.WithProfiles(fileProfile))

		Convey("Then the default profile is always available", func() {
			p, err := svc.Profile(ctx, "")
			So(err, ShouldBeNil)
			So(p.Name, ShouldEqual, profile.DefaultName)
		})

		Convey("Then file profiles resolve by name", func() {
			p, err := svc.Profile(ctx, "CLUB")
			So(err, ShouldBeNil)
			So(p.DiscardCategories, ShouldResemble, []string{"FROM_FILE"})
		})

		Convey("Then stored profiles take precedence", func() {
			stored := profile.Default()
			stored.Name = "club"
			stored.DiscardCategories = []string{"FROM_DB"}
			So(svc.SaveProfile(ctx, stored), ShouldBeNil)
			p, err := svc.Profile(ctx, "club")
			So(err, ShouldBeNil)
			So(p.DiscardCategories, ShouldResemble, []string{"FROM_DB"})
		})

		Convey("Then unknown names fail", func() {
			_, err := svc.Profile(ctx, "nope")
			So(errors.Is(err, service.ErrUnknownProfile), ShouldBeTrue)
		})
	})
}

func TestService_ImportAndRecalculate(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with a vocabulary", t, func() {
		svc, store := newService(t)
		n, err := svc.UpsertCategoryMappings(ctx, []model.CategoryMapping{
			{SourceTerm: "PENAL", TargetCategory: "PENALTY"},
			{SourceTerm: "NEGATIVO", TargetCategory: "NEGATIVE", MappingType: model.MappingDescriptor},
		})
		So(err, ShouldBeNil)
		So(n, ShouldEqual, 2)
		path := writeFixture(t, "match.xml", matchXML)

		Convey("When a file is imported", func() {
			sum, err := svc.Import(ctx, service.ImportRequest{Path: path, OurTeam: "Pumas", Opponent: "Rivals"})
			So(err, ShouldBeNil)
			So(sum.MatchID, ShouldBeGreaterThan, 0)
			So(sum.Events, ShouldEqual, 6)
			So(sum.Format, ShouldEqual, model.FormatXML)
			So(sum.Anchors.KickOff2, ShouldEqual, 3400)

			events, err := store.MatchEvents(ctx, sum.MatchID)
			So(err, ShouldBeNil)
			So(events, ShouldHaveLength, 6)

			Convey("Then derived fields are persisted", func() {
				pen := eventByType(events, "PENALTY")
				So(pen.ExtraData[model.KeyGameTime], ShouldEqual, "41:40")
				So(pen.ExtraData[model.KeyRedCard], ShouldEqual, "Bea")
				m, err := store.Match(ctx, sum.MatchID)
				So(err, ShouldBeNil)
				So(m.Opponent, ShouldEqual, "Rivals")
			})

			Convey("Then recalculation rewrites only game-time keys", func() {
				spec := timeline.ManualSpec(
					timeline.Anchors{KickOff1: 90, End1: 2490, KickOff2: 3390, End2: 5790},
					timeline.DelaySpec{GlobalDelaySeconds: 5},
				)
				res, err := svc.Recalculate(ctx, sum.MatchID, spec)
				So(err, ShouldBeNil)
				So(res.Events, ShouldEqual, 6)
				So(res.Anchors.KickOff1, ShouldEqual, 90)

				after, err := store.MatchEvents(ctx, sum.MatchID)
				So(err, ShouldBeNil)
				tackle := eventByType(after, "TACKLE")
				So(tackle.ExtraData[model.KeyGameTime], ShouldEqual, "00:45")
				So(tackle.ExtraData[model.KeyDelayApplied], ShouldEqual, float64(5))
				So(eventByType(after, "PENALTY").ExtraData[model.KeyRedCard], ShouldEqual, "Bea")

				Convey("And an empty spec reuses the stored anchors and delays", func() {
					_, err := svc.Recalculate(ctx, sum.MatchID, timeline.Spec{})
					So(err, ShouldBeNil)
					again, err := store.MatchEvents(ctx, sum.MatchID)
					So(err, ShouldBeNil)
					tackle := eventByType(again, "TACKLE")
					So(tackle.ExtraData[model.KeyGameTime], ShouldEqual, "00:45")
					So(tackle.ExtraData[model.KeyDelayApplied], ShouldEqual, float64(5))
				})
			})

			Convey("Then a delays-only recalculation keeps corrected anchors", func() {
				corrected := timeline.Anchors{KickOff1: 50, End1: 2450, KickOff2: 3300, End2: 5700}
				_, err := svc.Recalculate(ctx, sum.MatchID, timeline.ManualSpec(corrected, timeline.DelaySpec{}))
				So(err, ShouldBeNil)

				res, err := svc.Recalculate(ctx, sum.MatchID, timeline.Spec{Delays: timeline.DelaySpec{GlobalDelaySeconds: 5}})
				So(err, ShouldBeNil)
				So(res.Anchors.KickOff1, ShouldEqual, 50)
				So(res.Anchors.End1, ShouldEqual, 2450)
				So(res.Anchors.KickOff2, ShouldEqual, 3300)
				So(res.Anchors.End2, ShouldEqual, 5700)
				So(res.Anchors.Synthesized, ShouldBeEmpty)

				m, err := store.Match(ctx, sum.MatchID)
				So(err, ShouldBeNil)
				So(m.Anchors().KickOff1, ShouldEqual, 50)
				So(m.DelaySpec().GlobalDelaySeconds, ShouldEqual, 5)

				after, err := store.MatchEvents(ctx, sum.MatchID)
				So(err, ShouldBeNil)
				So(eventByType(after, "TACKLE").ExtraData[model.KeyGameTime], ShouldEqual, "01:25")

				Convey("And a later empty spec keeps the new delays", func() {
					_, err := svc.Recalculate(ctx, sum.MatchID, timeline.Spec{})
					So(err, ShouldBeNil)
					again, err := store.MatchEvents(ctx, sum.MatchID)
					So(err, ShouldBeNil)
					So(eventByType(again, "TACKLE").ExtraData[model.KeyGameTime], ShouldEqual, "01:25")
				})
			})

			Convey("Then bad recalculation requests fail cleanly", func() {
				_, err := svc.Recalculate(ctx, 9999, timeline.Spec{})
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				_, err = svc.Recalculate(ctx, sum.MatchID, timeline.Spec{Method: timeline.MethodManual})
				So(errors.Is(err, timeline.ErrConfiguration), ShouldBeTrue)
			})
		})

		Convey("When the file cannot be parsed nothing is stored", func() {
			bad := writeFixture(t, "bad.xml", "<file><instance><code>x</instance></file>")
			_, err := svc.Import(ctx, service.ImportRequest{Path: bad})
			So(err, ShouldNotBeNil)
			c, err := store.Counts(ctx)
			So(err, ShouldBeNil)
			So(c.Matches, ShouldEqual, 0)
		})
	})
}

func TestService_Submit(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service", t, func() {
		svc, _ := newService(t)
		path := writeFixture(t, "match.xml", matchXML)

		Convey("When a file is submitted", func() {
			view, err := svc.Submit(ctx, service.ImportRequest{Path: path, OurTeam: "Pumas"})
			So(err, ShouldBeNil)
			So(view.ID, ShouldNotBeEmpty)

			var got service.JobView
			deadline := time.Now().Add(5 * time.Second)
			for time.Now().Before(deadline) {
				got, err = svc.Job(ctx, view.ID)
				So(err, ShouldBeNil)
				if got.Status == model.JobSucceeded || got.Status == model.JobFailed {
					break
				}
				time.Sleep(10 * time.Millisecond)
			}

			Convey("Then it completes with a summary", func() {
				So(got.Status, ShouldEqual, model.JobSucceeded)
				So(got.Summary, ShouldNotBeNil)
				So(got.Summary.Events, ShouldEqual, 6)
				So(got.FinishedAt, ShouldNotBeNil)
			})

			Convey("Then the same submission is a duplicate", func() {
				dup, err := svc.Submit(ctx, service.ImportRequest{Path: path, OurTeam: "pumas"})
				So(errors.Is(err, service.ErrDuplicateImport), ShouldBeTrue)
				So(dup.ID, ShouldEqual, view.ID)
			})

			Convey("Then a different target is not a duplicate", func() {
				_, err := svc.Submit(ctx, service.ImportRequest{Path: path, OurTeam: "Other"})
				So(err, ShouldBeNil)
			})
		})

		Convey("When the request is invalid", func() {
			_, err := svc.Submit(ctx, service.ImportRequest{})
			So(errors.Is(err, service.ErrInvalidImport), ShouldBeTrue)
			_, err = svc.Submit(ctx, service.ImportRequest{Path: filepath.Join(t.TempDir(), "missing.xml")})
			So(errors.Is(err, service.ErrInvalidImport), ShouldBeTrue)
			_, err = svc.Job(ctx, "unknown")
			So(errors.Is(err, service.ErrJobNotFound), ShouldBeTrue)
		})
	})
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (r *recordingNotifier) Notify(_ context.Context, m notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
	return nil
}

func (r *recordingNotifier) Close() error { return nil }

func (r *recordingNotifier) messages() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Message(nil), r.msgs...)
}

func TestService_Notifications(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with a notifier", t, func() {
		rec := &recordingNotifier{}
		svc, _ := newService(t, service.WithNotifier(rec))
		path := writeFixture(t, "match.xml", matchXML)

		Convey("When a queued import completes", func() {
			view, err := svc.Submit(ctx, service.ImportRequest{Path: path, OurTeam: "Pumas"})
			So(err, ShouldBeNil)

			deadline := time.Now().Add(5 * time.Second)
			for time.Now().Before(deadline) {
				got, err := svc.Job(ctx, view.ID)
				So(err, ShouldBeNil)
				if got.Status == model.JobSucceeded || got.Status == model.JobFailed {
					break
				}
				time.Sleep(10 * time.Millisecond)
			}

			Convey("Then the message carries the job id", func() {
				msgs := rec.messages()
				So(msgs, ShouldHaveLength, 1)
				So(msgs[0].JobID, ShouldEqual, view.ID)
				So(msgs[0].Event, ShouldEqual, notify.RoutingKeyImported)
				So(msgs[0].Events, ShouldEqual, 6)
			})
		})

		Convey("When an import runs synchronously", func() {
			_, err := svc.Import(ctx, service.ImportRequest{Path: path, OurTeam: "Pumas"})
			So(err, ShouldBeNil)
			msgs := rec.messages()
			So(msgs, ShouldHaveLength, 1)
			So(msgs[0].JobID, ShouldBeEmpty)
		})
	})
}
