// Package source reads spreadsheet workbooks and XML timeline exports into
// raw instances.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/matchlog/internal/domain/model"
	"github.com/okian/matchlog/internal/domain/profile"
	"github.com/okian/matchlog/pkg/logger"
)

// DefaultDebugDir is where debug snapshots go unless configured.
func DefaultDebugDir() string {
	return filepath.Join(os.TempDir(), "matchlog-debug")
}

// Parser reads source files.
type Parser struct {
	debugDir string
	logger   logger.Logger
	now      func() time.Time
}

// Option configures a Parser.
type Option func(*Parser)

// WithDebugDir sets the snapshot directory. An empty dir disables
// snapshots.
func WithDebugDir(dir string) Option {
	return func(p *Parser) {
		p.debugDir = strings.TrimSpace(dir)
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock sets the time source used to name snapshots.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

// NewParser creates a parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		debugDir: DefaultDebugDir(),
		logger:   logger.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DetectFormat picks the format from the profile's file_type, falling back
// to the file extension.
func DetectFormat(path, fileType string) (model.Format, error) {
	if ft := strings.ToLower(strings.TrimSpace(fileType)); ft != "" {
		switch model.Format(ft) {
		case model.FormatXML, model.FormatSpreadsheet:
			return model.Format(ft), nil
		}
		return "", fmt.Errorf("%w: unsupported file type %q", ErrSourceFormat, fileType)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return model.FormatXML, nil
	case ".xlsx", ".xlsm":
		return model.FormatSpreadsheet, nil
	}
	return "", fmt.Errorf("%w: cannot infer format of %q", ErrSourceFormat, filepath.Base(path))
}

// Parse reads path with prof and writes a debug snapshot of the result.
func (p *Parser) Parse(ctx context.Context, path string, prof *profile.Profile) (*model.Document, error) {
	if prof == nil {
		prof = profile.Default()
	}
	format, err := DetectFormat(path, prof.FileType)
	if err != nil {
		return nil, err
	}

	var doc *model.Document
	switch format {
	case model.FormatXML:
		raw, rerr := os.ReadFile(path)
		if rerr != nil {
			return nil, fmt.Errorf("%w: %w", ErrSourceFormat, rerr)
		}
		var enc string
		doc, enc, err = ParseXML(ctx, raw)
		if err == nil {
			doc.Path = path
			p.logger.Debug(ctx, "xml decoded", logger.String("encoding", enc), logger.String("path", path))
		}
	default:
		doc, err = ParseSpreadsheet(ctx, path, prof, p.logger)
	}
	if err != nil {
		return nil, err
	}

	p.logger.Info(ctx, "source parsed",
		logger.String("path", path),
		logger.String("format", string(doc.Format)),
		logger.Int("instances", len(doc.Instances)),
	)
	p.writeSnapshot(ctx, doc)
	return doc, nil
}
