package vocab_test

import (
	"testing"

	"github.com/okian/matchlog/internal/domain/model"
	"github.com/okian/matchlog/internal/domain/vocab"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTranslator(t *testing.T) {
	Convey("Given mapping rows with conflicting priorities", t, func() {
		tr := vocab.New([]model.CategoryMapping{
			{SourceTerm: "placaje", TargetCategory: "TACKLE", MappingType: model.MappingEventType, Priority: 1},
			{SourceTerm: "PLACAJE ", TargetCategory: "TACKLE-LOW", MappingType: model.MappingEventType, Priority: 0},
			{SourceTerm: "Salida", TargetCategory: "KICKOFF", Priority: 2},
			{SourceTerm: "salida", TargetCategory: "KICK OFF", MappingType: model.MappingEventType, Priority: 2},
			{SourceTerm: "positivo", TargetCategory: "POSITIVE", MappingType: model.MappingDescriptor},
			{SourceTerm: "", TargetCategory: "IGNORED"},
		})

		Convey("Then the higher priority row wins", func() {
			So(tr.EventType("Placaje"), ShouldEqual, "TACKLE")
		})

		Convey("Then ties go to the most recently loaded row", func() {
			So(tr.EventType("SALIDA"), ShouldEqual, "KICK OFF")
		})

		Convey("Then mapping types are scoped", func() {
			So(tr.Descriptor("Positivo"), ShouldEqual, "POSITIVE")
			So(tr.EventType("positivo"), ShouldEqual, "positivo")
		})

		Convey("Then misses pass through unchanged", func() {
			So(tr.EventType("Maul"), ShouldEqual, "Maul")
			So(tr.Len(), ShouldEqual, 3)
		})

		Convey("Then translating a canonical term is idempotent", func() {
			once := tr.EventType("placaje")
			So(tr.EventType(once), ShouldEqual, once)
		})
	})

	Convey("Given a nil translator", t, func() {
		var tr *vocab.Translator
		So(tr.EventType("SCRUM"), ShouldEqual, "SCRUM")
		So(tr.Len(), ShouldEqual, 0)
	})
}
