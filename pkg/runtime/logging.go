package runtime

import (
	"context"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// NewLogger builds a slog logger from the log settings in cfg.
func NewLogger(cfg *Config) *slog.Logger {
	return newLogger(parseOutput(cfg.LogOutput), cfg.LogLevel, cfg.LogFormat)
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps debug/info/warn/error to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG", "QUERY":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func parseOutput(output string) io.Writer {
	switch strings.ToLower(output) {
	case "stdout":
		return os.Stdout
	case "", "stderr":
		return os.Stderr
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return os.Stderr
	}
	return f
}

type traceStartKey struct{}

type traceStart struct {
	sql  string
	args []any
	at   time.Time
}

// QueryTracer logs every statement at debug level and failures at warn.
type QueryTracer struct {
	logger *slog.Logger
}

// NewQueryTracer returns a pgx.QueryTracer writing to logger.
func NewQueryTracer(logger *slog.Logger) *QueryTracer {
	return &QueryTracer{logger: logger}
}

var _ pgx.QueryTracer = (*QueryTracer)(nil)

// TraceQueryStart implements pgx.QueryTracer.
func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, traceStartKey{}, traceStart{sql: data.SQL, args: data.Args, at: time.Now()})
}

// TraceQueryEnd implements pgx.QueryTracer.
func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, _ := ctx.Value(traceStartKey{}).(traceStart)
	attrs := []slog.Attr{
		slog.String("sql", compactSQL(start.sql)),
		slog.Int("args", len(start.args)),
		slog.Duration("duration", time.Since(start.at)),
	}
	if data.Err != nil {
		attrs = append(attrs, slog.String("error", data.Err.Error()))
		t.logger.LogAttrs(ctx, slog.LevelWarn, "query failed", attrs...)
		return
	}
	attrs = append(attrs, slog.String("command_tag", data.CommandTag.String()))
	t.logger.LogAttrs(ctx, slog.LevelDebug, "query", attrs...)
}

var sqlWhitespace = regexp.MustCompile(`\s+`)

func compactSQL(sql string) string {
	return strings.TrimSpace(sqlWhitespace.ReplaceAllString(sql, " "))
}
