package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

const fixtureXML = `<?xml version="1.0" encoding="utf-8"?>
<file>
  <ALL_INSTANCES>
    <instance><ID>1</ID><code>KICK OFF</code><start>100</start><end>101</end>
      <label><group>PERIODS</group><text>1</text></label></instance>
    <instance><ID>2</ID><code>TACKLE</code><start>130</start><end>134</end>
      <label><group>EQUIPO</group><text>Pumas</text></label>
      <label><group>JUGADOR</group><text>Ana</text></label></instance>
    <instance><ID>3</ID><code>END</code><start>2500</start><end>2501</end>
      <label><group>PERIODS</group><text>1</text></label></instance>
    <instance><ID>4</ID><code>KICK OFF</code><start>3400</start><end>3401</end>
      <label><group>PERIODS</group><text>2</text></label></instance>
    <instance><ID>5</ID><code>END</code><start>5800</start><end>5801</end>
      <label><group>PERIODS</group><text>2</text></label></instance>
  </ALL_INSTANCES>
</file>`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun(t *testing.T) {
	convey.Convey("Given a timeline export", t, func() {
		ctx := context.Background()
		src := writeFile(t, "match.xml", fixtureXML)
		var stdout, stderr bytes.Buffer

		convey.Convey("Canonical events are printed", func() {
			err := run(ctx, []string{"-file", src, "-our-team", "Pumas"}, &stdout, &stderr)
			convey.So(err, convey.ShouldBeNil)

			var out struct {
				OurTeam string `json:"our_team"`
				Anchors struct {
					KickOff1 float64 `json:"kick_off_1"`
					End2     float64 `json:"end_2"`
				} `json:"anchors"`
				Events []struct {
					Type      string         `json:"event_type"`
					Players   []string       `json:"players"`
					ExtraData map[string]any `json:"extra_data"`
				} `json:"events"`
			}
			convey.So(json.Unmarshal(stdout.Bytes(), &out), convey.ShouldBeNil)
			convey.So(out.OurTeam, convey.ShouldEqual, "Pumas")
			convey.So(out.Anchors.KickOff1, convey.ShouldEqual, 100.0)
			convey.So(out.Anchors.End2, convey.ShouldEqual, 5800.0)

			var tackle map[string]any
			for _, ev := range out.Events {
				if ev.Type == "TACKLE" {
					tackle = ev.ExtraData
					convey.So(ev.Players, convey.ShouldResemble, []string{"Ana"})
				}
			}
			convey.So(tackle, convey.ShouldNotBeNil)
			convey.So(tackle["Game_Time"], convey.ShouldEqual, "00:30")
		})

		convey.Convey("With -persist the summary is printed", func() {
			db := filepath.Join(t.TempDir(), "cli.sqlite3")
			err := run(ctx, []string{"-persist", "-db", db, src}, &stdout, &stderr)
			convey.So(err, convey.ShouldBeNil)

			var sum map[string]any
			convey.So(json.Unmarshal(stdout.Bytes(), &sum), convey.ShouldBeNil)
			convey.So(sum["match_id"], convey.ShouldBeGreaterThan, 0.0)
			convey.So(sum["events"], convey.ShouldBeGreaterThan, 0.0)
			_, statErr := os.Stat(db)
			convey.So(statErr, convey.ShouldBeNil)
		})

		convey.Convey("A profile file is applied", func() {
			prof := writeFile(t, "pumas.yaml", "name: pumas\ndiscard_categories: [TACKLE]\n")
			err := run(ctx, []string{"-file", src, "-profile", prof}, &stdout, &stderr)
			convey.So(err, convey.ShouldBeNil)
			convey.So(stdout.String(), convey.ShouldNotContainSubstring, `"TACKLE"`)
		})
	})
}

func TestRunErrors(t *testing.T) {
	convey.Convey("Given bad invocations", t, func() {
		ctx := context.Background()
		var stdout, stderr bytes.Buffer

		convey.Convey("A missing file flag is a usage error", func() {
			err := run(ctx, nil, &stdout, &stderr)
			convey.So(errors.Is(err, errUsage), convey.ShouldBeTrue)
		})

		convey.Convey("A missing source file fails", func() {
			err := run(ctx, []string{"-file", filepath.Join(t.TempDir(), "nope.xml")}, &stdout, &stderr)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(stdout.Len(), convey.ShouldEqual, 0)
		})

		convey.Convey("A missing profile file fails", func() {
			src := writeFile(t, "match.xml", fixtureXML)
			err := run(ctx, []string{"-file", src, "-profile", "/no/such/profile.yaml"}, &stdout, &stderr)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
