package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/log"

	"github.com/mesh-intelligence/boardsync/internal/config"
)

// newLogger returns a slog logger backed by a charmbracelet/log handler
// writing to w.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("%w: log level %q", config.ErrInvalid, level)
	}
	formatter := log.TextFormatter
	switch format {
	case config.LogFormatJSON:
		formatter = log.JSONFormatter
	case config.LogFormatLogfmt:
		formatter = log.LogfmtFormatter
	}
	handler := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Formatter:       formatter,
		ReportTimestamp: true,
		Prefix:          "boardsync",
	})
	return slog.New(handler), nil
}
