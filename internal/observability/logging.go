// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
	"sort"

	"github.com/google/uuid"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// SetGlobalLogger replaces the logger used by repository and command logging.
func SetGlobalLogger(l *slog.Logger) {
	GlobalLogger = &Logger{Logger: l}
}

type correlationKey struct{}

// GenerateCorrelationID creates a new unique correlation ID.
func GenerateCorrelationID() string {
	return uuid.NewString()
}

// WithCorrelationID tags ctx so every repository and command record written
// under it can be grouped. HTTP requests use the request id instead.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// fieldAttrs renders fields in key order so records are stable across runs.
func fieldAttrs(ctx context.Context, base []any, fields map[string]interface{}) []any {
	if id := ExtractCorrelationID(ctx); id != "" {
		base = append(base, slog.String("correlation_id", id))
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		base = append(base, slog.Any(k, fields[k]))
	}
	return base
}

// RepoLogger records writes against one table. Reads are not logged.
type RepoLogger struct {
	table string
}

// NewRepoLogger creates a new RepoLogger for the given table.
func NewRepoLogger(table string) *RepoLogger {
	return &RepoLogger{table: table}
}

func (l *RepoLogger) write(ctx context.Context, operation string, fields map[string]interface{}) {
	attrs := fieldAttrs(ctx, []any{
		slog.String("table", l.table),
		slog.String("operation", operation),
	}, fields)
	GlobalLogger.InfoContext(ctx, "repository "+operation, attrs...)
}

// LogCreate logs an inserted row.
func (l *RepoLogger) LogCreate(ctx context.Context, fields map[string]interface{}) {
	l.write(ctx, "create", fields)
}

// LogUpdate logs a changed row or a bulk repair.
func (l *RepoLogger) LogUpdate(ctx context.Context, fields map[string]interface{}) {
	l.write(ctx, "update", fields)
}

// LogDelete logs a removed row. Only likes are ever deleted.
func (l *RepoLogger) LogDelete(ctx context.Context, fields map[string]interface{}) {
	l.write(ctx, "delete", fields)
}

// LogError logs a storage failure that is surfaced to the caller as an internal error.
func (l *RepoLogger) LogError(ctx context.Context, err error, operation string) {
	attrs := fieldAttrs(ctx, []any{
		slog.String("table", l.table),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	}, nil)
	GlobalLogger.ErrorContext(ctx, "repository error", attrs...)
}

// LogCommand logs the outcome of an administrative command.
func LogCommand(ctx context.Context, command string, fields map[string]interface{}) {
	attrs := fieldAttrs(ctx, []any{slog.String("command", command)}, fields)
	GlobalLogger.InfoContext(ctx, "command completed", attrs...)
}
