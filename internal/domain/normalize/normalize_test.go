package normalize_test

import (
	"context"
	"math"
	"testing"

	"github.com/okian/matchlog/internal/domain/model"
	"github.com/okian/matchlog/internal/domain/normalize"
	"github.com/okian/matchlog/internal/domain/profile"
	"github.com/okian/matchlog/internal/domain/scoring"
	"github.com/okian/matchlog/internal/domain/vocab"
	. "github.com/smartystreets/goconvey/convey"
)

func inst(i int, code string, start float64, labels ...string) model.RawInstance {
	r := model.RawInstance{Index: i, Code: code, Start: model.FloatPtr(start), End: model.FloatPtr(start + 5)}
	for j := 0; j+1 < len(labels); j += 2 {
		r.Descriptors = append(r.Descriptors, model.Descriptor{Group: labels[j], Text: labels[j+1]})
	}
	return r
}

func TestCleanCode(t *testing.T) {
	Convey("Given raw codes", t, func() {
		cases := []struct {
			raw, code, hint string
		}{
			{"PALOS RIVAL", "GOAL-KICK", normalize.Opponent},
			{"Palos", "GOAL-KICK", ""},
			{"QUIEBRE RIVAL", "BREAK", normalize.Opponent},
			{"PUNTOS", "POINTS", ""},
			{"TACKLE RIVAL", "TACKLE", normalize.Opponent},
			{" Scrum ", "Scrum", ""},
		}
		for _, c := range cases {
			code, hint := normalize.CleanCode(c.raw)
			So(code, ShouldEqual, c.code)
			So(hint, ShouldEqual, c.hint)
		}
	})
}

func TestGuessTeam(t *testing.T) {
	Convey("Given team tokens", t, func() {
		So(normalize.GuessTeam([]string{"DC", "Visitante"}), ShouldEqual, normalize.Opponent)
		So(normalize.GuessTeam([]string{"T1", "Pumas XV"}), ShouldEqual, "Pumas XV")
		So(normalize.GuessTeam([]string{"A1B", "", "9"}), ShouldBeEmpty)
		So(normalize.GuessTeam(nil), ShouldBeEmpty)
	})
}

func TestGoalKickResult(t *testing.T) {
	Convey("Given goal kick result texts", t, func() {
		So(normalize.GoalKickResult([]string{"convertida"}), ShouldEqual, "SUCCESS")
		So(normalize.GoalKickResult([]string{"x", "ERRADA"}), ShouldEqual, "FAIL")
		So(normalize.GoalKickResult([]string{"wide"}), ShouldBeEmpty)
	})
}

func TestNormalize(t *testing.T) {
	ctx := context.Background()

	Convey("Given a normalizer with a vocabulary and a profile", t, func() {
		tr := vocab.New([]model.CategoryMapping{
			{SourceTerm: "PENAL", TargetCategory: "PENALTY", MappingType: model.MappingEventType},
			{SourceTerm: "CALENTAMIENTO", TargetCategory: "WARMUP", MappingType: model.MappingEventType},
			{SourceTerm: "NEGATIVO", TargetCategory: "NEGATIVE", MappingType: model.MappingDescriptor},
		})
		p := profile.Default()
		p.DiscardCategories = []string{"WARMUP", "END"}
		n := normalize.New(
			normalize.WithTranslator(tr),
			normalize.WithProfile(p),
			normalize.WithScorer(scoring.NewTableScorer(scoring.WithValues(map[string]int{"TRY": 7}))),
		)

		Convey("When a document is normalized", func() {
			xy := inst(4, "TACKLE", 300, "PLAYER", "Ruiz")
			xy.X, xy.Y = model.FloatPtr(12.5), model.FloatPtr(40)
			bad := inst(5, "TACKLE", 310)
			bad.X = model.FloatPtr(3)
			noTime := inst(6, "LINEOUT", 0)
			noTime.Start = nil

			doc := &model.Document{Instances: []model.RawInstance{
				inst(0, "Penal", 100.04, "DESCRIPTOR", "negativo", "JUGADOR", "Smith", "JUGADOR", "Smith", "EQUIPO", "Pumas"),
				inst(1, "Calentamiento", 5),
				inst(2, "END", 2400),
				inst(3, "PUNTOS", 500, "TIPO-PUNTOS", "P TRY", "", "loose"),
				xy,
				bad,
				noTime,
				inst(7, "", 320),
				inst(8, "PALOS RIVAL", 520, "RESULTADO-PALOS", "Convertida"),
				inst(9, "TURNOVER", 600, "TIPO-PERDIDA/RECUPERACION", "KNOCK ON", "INFRACCION", "OFFSIDE"),
			}}
			events, rep := n.Normalize(ctx, doc)

			Convey("Then discarded categories are dropped by raw or translated name", func() {
				So(rep.Discarded, ShouldEqual, 2)
				So(events, ShouldHaveLength, 8)
			})

			Convey("Then categories and descriptors are translated", func() {
				pen := events[0]
				So(pen.Type, ShouldEqual, "PENALTY")
				So(pen.Extra["DESCRIPTOR"], ShouldEqual, "NEGATIVE")
				So(pen.Extra["JUGADOR"], ShouldResemble, []string{"Smith", "Smith"})
				So(pen.Players, ShouldResemble, []string{"Smith"})
				So(*pen.Timestamp, ShouldEqual, 100.0)
				So(pen.Team, ShouldEqual, "Pumas")
				So(pen.Extra["TEAM"], ShouldEqual, "Pumas")
			})

			Convey("Then points are classified and valued", func() {
				pts := events[1]
				So(pts.Type, ShouldEqual, "POINTS")
				So(pts.Derived.Points, ShouldEqual, scoring.Try)
				So(*pts.Derived.PointsValue, ShouldEqual, 7)
				So(pts.Extra[normalize.MiscGroup], ShouldEqual, "loose")
				So(pts.ExtraData()[model.KeyPointsValue], ShouldEqual, 7)
			})

			Convey("Then coordinates are kept only when both are valid", func() {
				So(*events[2].X, ShouldEqual, 12.5)
				So(events[3].X, ShouldBeNil)
				So(rep.Defects, ShouldContain, model.Defect{Index: 5, Kind: model.DefectBadCoordinate, Detail: "x=3 y=<nil>"})
			})

			Convey("Then events without time or category are kept with a defect", func() {
				So(events[4].Timestamp, ShouldBeNil)
				So(events[5].Type, ShouldBeEmpty)
				So(rep.Defects, ShouldContain, model.Defect{Index: 6, Kind: model.DefectMissingTimestamp})
				So(rep.Defects, ShouldContain, model.Defect{Index: 7, Kind: model.DefectMissingCategory})
			})

			Convey("Then opponent goal kicks carry the hint and the result", func() {
				gk := events[6]
				So(gk.Type, ShouldEqual, "GOAL-KICK")
				So(gk.Team, ShouldEqual, normalize.Opponent)
				So(gk.Extra["RESULTADO-PALOS"], ShouldEqual, "SUCCESS")
				So(gk.Extra["EQUIPO"], ShouldEqual, normalize.Opponent)
			})

			Convey("Then turnover and infraction types are lifted", func() {
				to := events[7]
				So(to.Extra["TURNOVER_TYPE"], ShouldEqual, "KNOCK ON")
				So(to.Extra["INFRACTION_TYPE"], ShouldEqual, "OFFSIDE")
				So(to.Extra["clip_end"], ShouldEqual, 605.0)
			})
		})

		Convey("When a start time is not finite", func() {
			r := inst(0, "SCRUM", 0)
			r.Start = model.FloatPtr(math.NaN())
			events, rep := n.Normalize(ctx, &model.Document{Instances: []model.RawInstance{r}})
			So(events[0].HasTimestamp(), ShouldBeFalse)
			So(rep.Defects[0].Kind, ShouldEqual, model.DefectMissingTimestamp)
		})

		Convey("When the document is nil", func() {
			events, rep := n.Normalize(ctx, nil)
			So(events, ShouldBeEmpty)
			So(rep.Discarded, ShouldEqual, 0)
		})
	})
}
