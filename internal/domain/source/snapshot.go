package source

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/matchlog/internal/domain/model"
	"github.com/okian/matchlog/pkg/logger"
)

// writeSnapshot dumps the parsed document as JSON for later inspection.
// Failures are logged only.
func (p *Parser) writeSnapshot(ctx context.Context, doc *model.Document) string {
	if p.debugDir == "" {
		return ""
	}
	base := strings.TrimSuffix(filepath.Base(doc.Path), filepath.Ext(doc.Path))
	if base == "" || base == "." {
		base = "import"
	}
	path := filepath.Join(p.debugDir, base+"-"+p.now().UTC().Format("20060102T150405.000000000")+".json")

	data, err := json.MarshalIndent(doc, "", "  ")
	if err == nil {
		err = os.MkdirAll(p.debugDir, 0o755)
	}
	if err == nil {
		err = os.WriteFile(path, data, 0o600)
	}
	if err != nil {
		p.logger.Warn(ctx, "debug snapshot not written",
			logger.String("path", path),
			logger.Error(err),
		)
		return ""
	}
	p.logger.Debug(ctx, "debug snapshot written", logger.String("path", path))
	return path
}
