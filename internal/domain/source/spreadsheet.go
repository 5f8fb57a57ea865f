package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/matchlog/internal/domain/model"
	"github.com/okian/matchlog/internal/domain/profile"
	"github.com/okian/matchlog/pkg/logger"
	"github.com/xuri/excelize/v2"
)

// metaKeys lists the accepted meta-sheet headers per match field.
var metaKeys = []struct {
	keys []string
	set  func(*model.MatchInfo, string)
}{
	{[]string{"TEAM", "EQUIPO"}, func(m *model.MatchInfo, v string) { m.Team = v }},
	{[]string{"OPPONENT", "RIVAL"}, func(m *model.MatchInfo, v string) { m.Opponent = v }},
	{[]string{"DATE", "FECHA_PARTIDO"}, func(m *model.MatchInfo, v string) { m.Date = v }},
	{[]string{"LOCATION", "LUGAR"}, func(m *model.MatchInfo, v string) { m.Location = v }},
	{[]string{"COMPETITION", "COMPETICION"}, func(m *model.MatchInfo, v string) { m.Competition = v }},
	{[]string{"ROUND", "FECHA"}, func(m *model.MatchInfo, v string) { m.Round = v }},
	{[]string{"REFEREE", "ARBITRO"}, func(m *model.MatchInfo, v string) { m.Referee = v }},
	{[]string{"VIDEO_URL", "VIDEO"}, func(m *model.MatchInfo, v string) { m.VideoURL = v }},
	{[]string{"RESULT", "RESULTADO"}, func(m *model.MatchInfo, v string) { m.Result = v }},
	{[]string{"FIELD", "CANCHA"}, func(m *model.MatchInfo, v string) { m.Field = v }},
	{[]string{"RAIN", "LLUVIA"}, func(m *model.MatchInfo, v string) { m.Rain = v }},
	{[]string{"MUDDY", "BARRO"}, func(m *model.MatchInfo, v string) { m.Muddy = v }},
	{[]string{"WIND_1P", "VIENTO_1T"}, func(m *model.MatchInfo, v string) { m.Wind1P = v }},
	{[]string{"WIND_2P", "VIENTO_2T"}, func(m *model.MatchInfo, v string) { m.Wind2P = v }},
}

// ParseSpreadsheet reads the events and meta sheets of a workbook.
func ParseSpreadsheet(ctx context.Context, path string, prof *profile.Profile, log logger.Logger) (*model.Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %w", ErrSourceFormat, err)
	}
	defer func() { _ = f.Close() }()

	doc := &model.Document{Path: path, Format: model.FormatSpreadsheet}

	sheet, ok := findSheet(f, prof.EventsSheet)
	if !ok {
		return nil, fmt.Errorf("%w: events sheet %q not found", ErrSourceFormat, prof.EventsSheet)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %w", ErrSourceFormat, sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: events sheet %q is empty", ErrSourceFormat, sheet)
	}
	header := trimAll(rows[0])
	if indexOf(header, prof.ColEventType) < 0 {
		return nil, fmt.Errorf("%w: column %q not found in sheet %q", ErrSourceFormat, prof.ColEventType, sheet)
	}

	for _, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if r, ok := rowInstance(header, row, prof, len(doc.Instances)); ok {
			doc.Instances = append(doc.Instances, r)
		}
	}

	if meta, ok := findSheet(f, prof.MetaSheet); ok {
		doc.Match, err = readMeta(f, meta)
		if err != nil {
			return nil, err
		}
	} else {
		log.Warn(ctx, "meta sheet not found, match info left empty",
			logger.String("sheet", prof.MetaSheet),
			logger.String("path", path),
		)
	}
	return doc, nil
}

func rowInstance(header, row []string, prof *profile.Profile, index int) (model.RawInstance, bool) {
	r := model.RawInstance{Index: index}
	cells := make(map[string]string, len(header))
	for i, v := range row {
		v = strings.TrimSpace(v)
		if i >= len(header) || v == "" || header[i] == "" {
			continue
		}
		cells[strings.ToUpper(header[i])] = v
		r.Descriptors = append(r.Descriptors, model.Descriptor{Group: header[i], Text: v})
	}
	if len(cells) == 0 {
		return r, false
	}
	get := func(col string) string { return cells[strings.ToUpper(strings.TrimSpace(col))] }

	r.Code = get(prof.ColEventType)
	r.Start = ParseClock(get(prof.ColTime))
	if d := ParseClock(get(prof.ColDuration)); d != nil && r.Start != nil {
		r.End = model.FloatPtr(*r.Start + *d)
	}

	x, y := get(prof.ColX), get(prof.ColY)
	if y == "" {
		if sep := strings.IndexByte(x, ';'); sep >= 0 {
			x, y = x[:sep], x[sep+1:]
		} else if indexOf(header, prof.ColY) < 0 {
			// "x,y" only without a y column; otherwise "12,5" is a decimal.
			if parts := strings.Split(x, ","); len(parts) == 2 {
				x, y = parts[0], parts[1]
			}
		}
	}
	r.X, r.Y = parseNumber(x), parseNumber(y)
	return r, true
}

func readMeta(f *excelize.File, sheet string) (model.MatchInfo, error) {
	var m model.MatchInfo
	rows, err := f.GetRows(sheet)
	if err != nil {
		return m, fmt.Errorf("%w: read sheet %q: %w", ErrSourceFormat, sheet, err)
	}
	if len(rows) < 2 {
		return m, nil
	}
	header := trimAll(rows[0])
	values := rows[1]
	for _, mk := range metaKeys {
		for _, k := range mk.keys {
			i := indexOf(header, k)
			if i < 0 || i >= len(values) {
				continue
			}
			if v := strings.TrimSpace(values[i]); v != "" {
				mk.set(&m, v)
				break
			}
		}
	}
	return m, nil
}

// ParseClock reads seconds, MM:SS or HH:MM:SS. It returns nil when the
// value cannot be read.
func ParseClock(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if !strings.Contains(s, ":") {
		return parseNumber(s)
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return nil
	}
	total := 0.0
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(p), ",", "."), 64)
		if err != nil || v < 0 {
			return nil
		}
		total = total*60 + v
	}
	return &total
}

func findSheet(f *excelize.File, name string) (string, bool) {
	for _, s := range f.GetSheetList() {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(name)) {
			return s, true
		}
	}
	return "", false
}

func trimAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.TrimSpace(s)
	}
	return out
}

func indexOf(header []string, col string) int {
	col = strings.TrimSpace(col)
	if col == "" {
		return -1
	}
	for i, h := range header {
		if strings.EqualFold(h, col) {
			return i
		}
	}
	return -1
}
