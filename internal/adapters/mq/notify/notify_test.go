package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/okian/matchlog/internal/adapters/mq/notify"
	"github.com/okian/matchlog/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNop(t *testing.T) {
	Convey("The nop notifier accepts everything", t, func() {
		var n notify.Notifier = notify.Nop{}
		So(n.Notify(context.Background(), notify.Message{MatchID: 1}), ShouldBeNil)
		So(n.Close(), ShouldBeNil)
	})
}

func TestMessage(t *testing.T) {
	Convey("Messages encode with snake_case keys", t, func() {
		at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		b, err := json.Marshal(notify.Message{Event: notify.RoutingKeyImported, MatchID: 7, Batch: "b1", Events: 3, ImportedAt: at})
		So(err, ShouldBeNil)

		var m map[string]any
		So(json.Unmarshal(b, &m), ShouldBeNil)
		So(m["event"], ShouldEqual, "match.imported")
		So(m["match_id"], ShouldEqual, float64(7))
		So(m["batch"], ShouldEqual, "b1")
		So(m["imported_at"], ShouldEqual, "2024-05-01T12:00:00Z")
	})
}

func TestAMQPPublisher(t *testing.T) {
	Convey("Given a publisher with an invalid broker URL", t, func() {
		p := notify.NewAMQPPublisher("http://not-a-broker", notify.WithExchange("test"), notify.WithLogger(logger.Nop()))

		Convey("Then Notify fails without panicking", func() {
			So(p.Notify(context.Background(), notify.Message{MatchID: 1}), ShouldNotBeNil)
		})

		Convey("Then Notify after Close returns ErrClosed", func() {
			So(p.Close(), ShouldBeNil)
			err := p.Notify(context.Background(), notify.Message{MatchID: 1})
			So(errors.Is(err, notify.ErrClosed), ShouldBeTrue)
		})
	})
}
