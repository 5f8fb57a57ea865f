package mapping_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/okian/matchlog/internal/domain/mapping"
	"github.com/okian/matchlog/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPaths(t *testing.T) {
	Convey("Given an empty document", t, func() {
		doc := map[string]any{}

		Convey("When writing a nested path", func() {
			ok := mapping.Write(doc, "a.b.c", 42)

			Convey("Then reading it back returns the value", func() {
				So(ok, ShouldBeTrue)
				So(mapping.Read(doc, "a.b.c"), ShouldEqual, 42)
				So(mapping.Read(doc, "a.b"), ShouldResemble, map[string]any{"c": 42})
			})
		})

		Convey("When round-tripping several paths", func() {
			for _, p := range []string{"x", "extra_data.descriptors.ADVANCE", "p.q.r.s.t"} {
				So(mapping.Write(doc, p, "v-"+p), ShouldBeTrue)
				So(mapping.Read(doc, p), ShouldEqual, "v-"+p)
			}
		})
	})

	Convey("Given a document with a scalar on the path", t, func() {
		doc := map[string]any{"a": "scalar"}

		Convey("Then reading through it returns nil", func() {
			So(mapping.Read(doc, "a.b"), ShouldBeNil)
			So(mapping.Read(doc, "missing.b"), ShouldBeNil)
		})

		Convey("Then writing through it leaves the document untouched", func() {
			So(mapping.Write(doc, "a.b", 1), ShouldBeFalse)
			So(doc["a"], ShouldEqual, "scalar")
		})

		Convey("Then empty paths are rejected", func() {
			So(mapping.Write(doc, "", 1), ShouldBeFalse)
			So(mapping.Write(doc, "a..b", 1), ShouldBeFalse)
			So(mapping.Read(doc, ""), ShouldBeNil)
		})
	})
}

func TestTransformers(t *testing.T) {
	Convey("Given the built-in transformers", t, func() {
		out, known, err := mapping.Transform("to_upper", "scrum")
		So(known, ShouldBeTrue)
		So(err, ShouldBeNil)
		So(out, ShouldEqual, "SCRUM")

		out, _, _ = mapping.Transform("split_and_dedupe", " Ana, Bo ,Ana,, Cy")
		So(out, ShouldResemble, []string{"Ana", "Bo", "Cy"})

		out, _, err = mapping.Transform("mmss_to_seconds", "2:05")
		So(err, ShouldBeNil)
		So(out, ShouldEqual, 125.0)

		out, _, _ = mapping.Transform("mmss_to_seconds", "1:02:03")
		So(out, ShouldEqual, 1.0)

		out, _, _ = mapping.Transform("mmss_to_seconds", "75.5")
		So(out, ShouldEqual, 75.5)

		out, known, err = mapping.Transform("mmss_to_seconds", "soon")
		So(known, ShouldBeTrue)
		So(err, ShouldNotBeNil)
		So(out, ShouldEqual, "soon")

		out, known, err = mapping.Transform("reverse", "abc")
		So(known, ShouldBeFalse)
		So(err, ShouldBeNil)
		So(out, ShouldEqual, "abc")
	})
}

func TestEngineRules(t *testing.T) {
	Convey("Given a rule-mode spec decoded from a bare JSON list", t, func() {
		var spec mapping.Spec
		err := json.Unmarshal([]byte(`[
			{"source":"extra_data.AV","target":"extra_data.descriptors.ADVANCE","transformer":"to_upper"},
			{"source":"extra_data.JUG","target":"players","transformer":"split_and_dedupe"},
			{"source":"extra_data.CLOCK","target":"extra_data.clock_seconds","transformer":"mmss_to_seconds"},
			{"source":"extra_data.BAD","target":"extra_data.bad_seconds","transformer":"mmss_to_seconds"},
			{"source":"extra_data.MISSING","target":"extra_data.never"}
		]`), &spec)
		So(err, ShouldBeNil)
		So(spec.Structured(), ShouldBeFalse)

		ev := model.NewEvent(7)
		ev.Type = "CARRY"
		ev.Extra["AV"] = "positive"
		ev.Extra["JUG"] = "Ana, Bo, Ana"
		ev.Extra["CLOCK"] = "3:10"
		ev.Extra["BAD"] = "later"

		Convey("When applied", func() {
			defects := mapping.New(spec).Apply(context.Background(), []*model.Event{ev})

			Convey("Then every rule writes its target", func() {
				desc := ev.Extra["descriptors"].(map[string]any)
				So(desc["ADVANCE"], ShouldEqual, "POSITIVE")
				So(ev.Players, ShouldResemble, []string{"Ana", "Bo"})
				So(ev.Extra["clock_seconds"], ShouldEqual, 190.0)
				So(ev.Extra["bad_seconds"], ShouldEqual, "later")
				_, wrote := ev.Extra["never"]
				So(wrote, ShouldBeFalse)
			})

			Convey("Then the unparsable value is reported as a defect", func() {
				So(len(defects), ShouldEqual, 1)
				So(defects[0].Kind, ShouldEqual, model.DefectTransform)
				So(defects[0].Index, ShouldEqual, 7)
			})
		})
	})
}

func TestEngineStructured(t *testing.T) {
	Convey("Given a structured spec", t, func() {
		spec := mapping.Spec{
			Code:          map[string]string{"PLACAJE": "TACKLE"},
			TeamInference: map[string]string{"placaje": "OUR_TEAM"},
			Labels:        map[string]string{"JUG": "PLAYER", "EQ": "TEAM", "AV": "AVANCE"},
		}
		So(spec.Structured(), ShouldBeTrue)

		ev := model.NewEvent(0)
		ev.Type = "Placaje"
		ev.Extra["jug"] = []string{"Lee"}
		ev.Extra["AV"] = "NEGATIVE"

		Convey("When applied", func() {
			mapping.New(spec).Apply(context.Background(), []*model.Event{ev})

			Convey("Then codes, teams and labels are remapped", func() {
				So(ev.Type, ShouldEqual, "TACKLE")
				So(ev.Team, ShouldEqual, "OUR_TEAM")
				So(ev.Players, ShouldResemble, []string{"Lee"})
				So(ev.Extra["PLAYER"], ShouldResemble, []string{"Lee"})
				So(ev.Extra["AVANCE"], ShouldEqual, "NEGATIVE")
				So(ev.Extra["ADVANCE"], ShouldEqual, "NEGATIVE")
				_, old := ev.Extra["jug"]
				So(old, ShouldBeFalse)
			})
		})

		Convey("When the event already has a team", func() {
			ev.Team = "OPPONENT"
			mapping.New(spec).Apply(context.Background(), []*model.Event{ev})

			Convey("Then the inferred team does not override it", func() {
				So(ev.Team, ShouldEqual, "OPPONENT")
			})
		})
	})
}
