package source

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/okian/matchlog/internal/domain/model"
)

type xmlLabel struct {
	Group     string `xml:"group"`
	GroupAttr string `xml:"group,attr"`
	Text      string `xml:"text"`
}

type xmlInstance struct {
	ID     string     `xml:"ID"`
	Code   string     `xml:"code"`
	Start  string     `xml:"start"`
	End    string     `xml:"end"`
	Labels []xmlLabel `xml:"label"`
	PosX   []string   `xml:"pos_x"`
	PosY   []string   `xml:"pos_y"`
}

// ParseXML reads a timeline export. The bytes go through the encoding
// fallback chain and are reduced to printable ASCII before decoding.
func ParseXML(ctx context.Context, raw []byte) (*model.Document, string, error) {
	text, enc, err := Decode(raw)
	if err != nil {
		return nil, "", err
	}
	text = EscapeAmpersands(Sanitize(text))

	dec := xml.NewDecoder(strings.NewReader(text))
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }

	doc := &model.Document{Format: model.FormatXML}
	rooted := false
	for {
		if err := ctx.Err(); err != nil {
			return nil, enc, err
		}
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, enc, fmt.Errorf("%w: xml: %w", ErrSourceFormat, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		rooted = true
		if start.Name.Local != "instance" {
			continue
		}
		var in xmlInstance
		if err := dec.DecodeElement(&in, &start); err != nil {
			return nil, enc, fmt.Errorf("%w: instance %d: %w", ErrSourceFormat, len(doc.Instances), err)
		}
		doc.Instances = append(doc.Instances, in.raw(len(doc.Instances)))
	}
	if !rooted {
		return nil, enc, fmt.Errorf("%w: no root element", ErrSourceFormat)
	}
	return doc, enc, nil
}

func (in xmlInstance) raw(index int) model.RawInstance {
	r := model.RawInstance{
		Index: index,
		Code:  strings.TrimSpace(in.Code),
		Start: parseNumber(in.Start),
		End:   parseNumber(in.End),
	}
	for _, l := range in.Labels {
		group := strings.TrimSpace(l.Group)
		if group == "" {
			group = strings.TrimSpace(l.GroupAttr)
		}
		text := strings.TrimSpace(l.Text)
		if text == "" {
			continue
		}
		r.Descriptors = append(r.Descriptors, model.Descriptor{Group: group, Text: text})
	}
	if len(in.PosX) > 0 {
		r.X = parseNumber(in.PosX[0])
	}
	if len(in.PosY) > 0 {
		r.Y = parseNumber(in.PosY[0])
	}
	return r
}

// parseNumber reads a decimal with either '.' or ',' as separator.
func parseNumber(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return nil
	}
	return &f
}
