package profile_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/matchlog/internal/domain/model"
	"github.com/okian/matchlog/internal/domain/profile"
	"github.com/okian/matchlog/internal/domain/timeline"
	. "github.com/smartystreets/goconvey/convey"
)

const clubYAML = `
name: club
file_type: xml
discard_categories: [WARMUP, "Fin"]
player_groups: [JUGADOR]
time_mapping:
  method: manual
  manual_times:
    kick_off_1: 12
    end_1: 2430
  delays:
    global_delay_seconds: -2
    event_delays:
      tackle: 1.5
mapping:
  labels:
    JUG: PLAYER
team_mapping:
  our_team:
    name: Pumas
    detected_name: PUMAS XV
  opponent:
    name: Rivals
team_inference:
  - event_type: DEFENSE
    assign_to: our_team
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	Convey("Given the default profile", t, func() {
		p := profile.Default()

		Convey("Then it reads MATRIZ workbooks with event-based anchors", func() {
			So(p.Name, ShouldEqual, profile.DefaultName)
			So(p.EventsSheet, ShouldEqual, "MATRIZ")
			So(p.MetaSheet, ShouldEqual, "MATCHES")
			So(p.ColEventType, ShouldEqual, "CATEGORY")
			So(p.PlayerGroups, ShouldResemble, []string{"JUGADOR", "PLAYER", "PLAYER_2"})
			So(p.Validate(), ShouldBeNil)

			tm, err := p.TimeMapping.Build()
			So(err, ShouldBeNil)
			eb, ok := tm.Method.(timeline.EventBased)
			So(ok, ShouldBeTrue)
			So(eb.Markers[timeline.KickOff2], ShouldResemble, timeline.Marker{
				Category: "KICK OFF", DescriptorKey: "PERIODS", DescriptorValue: "2",
			})
		})
	})
}

func TestLoadFile(t *testing.T) {
	Convey("Given a YAML profile on disk", t, func() {
		dir := t.TempDir()
		path := writeFile(t, dir, "club.yaml", clubYAML)

		Convey("When it is loaded", func() {
			p, err := profile.LoadFile(path)

			Convey("Then configured fields are kept and the rest defaulted", func() {
				So(err, ShouldBeNil)
				So(p.Name, ShouldEqual, "club")
				So(p.FileType, ShouldEqual, "xml")
				So(p.PlayerGroups, ShouldResemble, []string{"JUGADOR"})
				So(p.TeamGroups, ShouldResemble, []string{"EQUIPO", "TEAM", "SIDE"})
				So(p.EventsSheet, ShouldEqual, "MATRIZ")
				So(p.Mapping.Labels["JUG"], ShouldEqual, "PLAYER")
				So(p.TeamMapping.OurTeam.DetectedName, ShouldEqual, "PUMAS XV")
				So(p.TeamInference, ShouldHaveLength, 1)
				So(p.TeamInference[0].AssignTo, ShouldEqual, profile.AssignOurTeam)

				tm, err := p.TimeMapping.Build()
				So(err, ShouldBeNil)
				So(tm.Method.(timeline.Manual).Times[timeline.End1], ShouldEqual, 2430)
				So(tm.Delays.Global, ShouldEqual, -2)
				So(tm.Delays.For("Tackle"), ShouldEqual, -0.5)
			})
		})

		Convey("When the name is omitted it comes from the file name", func() {
			path := writeFile(t, dir, "other.yml", "file_type: xlsx\n")
			p, err := profile.LoadFile(path)
			So(err, ShouldBeNil)
			So(p.Name, ShouldEqual, "other")
		})

		Convey("When the file does not exist", func() {
			_, err := profile.LoadFile(filepath.Join(dir, "missing.yaml"))
			So(errors.Is(err, profile.ErrLoadProfile), ShouldBeTrue)
		})

		Convey("When the time mapping is invalid", func() {
			path := writeFile(t, dir, "bad.yaml", "time_mapping:\n  method: manual\n")
			_, err := profile.LoadFile(path)
			So(errors.Is(err, profile.ErrInvalidProfile), ShouldBeTrue)
			So(errors.Is(err, timeline.ErrConfiguration), ShouldBeTrue)
		})

		Convey("When a directory is loaded", func() {
			writeFile(t, dir, "a.yaml", "name: alpha\n")
			writeFile(t, dir, "notes.txt", "ignored")
			ps, err := profile.LoadDir(dir)
			So(err, ShouldBeNil)
			So(ps, ShouldHaveLength, 2)
			So(ps[0].Name, ShouldEqual, "alpha")
			So(ps[1].Name, ShouldEqual, "club")
		})
	})
}

func TestDecode(t *testing.T) {
	Convey("Given a JSON profile", t, func() {
		data := []byte(`{"name":"json","file_type":"XLSX","mapping":[{"source":"extra_data.A","target":"extra_data.B"}],
			"time_mapping":{"method":"event_based","kick_off_1":{"category":"KO","descriptor":"P","descriptor_value":1}}}`)

		Convey("Then it decodes and round-trips", func() {
			p, err := profile.Decode(data)
			So(err, ShouldBeNil)
			So(p.FileType, ShouldEqual, "xlsx")
			So(p.Mapping.Rules, ShouldHaveLength, 1)
			So(string(p.TimeMapping.KickOff1.DescriptorValue), ShouldEqual, "1")

			raw, err := p.Encode()
			So(err, ShouldBeNil)
			again, err := profile.Decode(raw)
			So(err, ShouldBeNil)
			So(again, ShouldResemble, p)
		})

		Convey("Then an unsupported file type is rejected", func() {
			_, err := profile.Decode([]byte(`{"file_type":"csv"}`))
			So(errors.Is(err, profile.ErrInvalidProfile), ShouldBeTrue)
		})
	})
}

func TestTeamsAndDiscards(t *testing.T) {
	Convey("Given a profile with a team mapping", t, func() {
		p := profile.Default()
		p.DiscardCategories = []string{" warmup "}
		match := model.MatchInfo{Team: "Home", Opponent: "Away"}

		So(p.Discards("WARMUP"), ShouldBeTrue)
		So(p.Discards("TACKLE"), ShouldBeFalse)
		So(p.Discards(""), ShouldBeFalse)

		So(p.OurTeam(match, "OUR_TEAM"), ShouldEqual, "Home")
		So(p.OurTeam(model.MatchInfo{}, "OUR_TEAM"), ShouldEqual, "OUR_TEAM")

		p.TeamMapping = &profile.TeamMapping{OurTeam: profile.TeamRef{Name: "Pumas"}}
		So(p.OurTeam(match, "OUR_TEAM"), ShouldEqual, "Pumas")
		So(p.OpponentTeam(match, "OPPONENT"), ShouldEqual, "Away")
	})
}
