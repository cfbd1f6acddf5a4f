package logging

import (
	"encoding/json"
	"log/slog"
	"time"
)

// SSEWriter is an io.Writer that parses JSON log lines and forwards them to a
// LogBroadcaster.
type SSEWriter struct {
	broadcaster *LogBroadcaster
}

// NewSSEWriter creates a writer feeding the process-wide broadcaster.
func NewSSEWriter() *SSEWriter {
	return &SSEWriter{broadcaster: GetBroadcaster()}
}

// NewSSEWriterFor creates a writer feeding b.
func NewSSEWriterFor(b *LogBroadcaster) *SSEWriter {
	return &SSEWriter{broadcaster: b}
}

// Write never fails: unparseable input becomes a system error entry.
func (w *SSEWriter) Write(p []byte) (int, error) {
	var raw map[string]any
	if err := json.Unmarshal(p, &raw); err != nil {
		w.broadcaster.SubmitLog(LogEntry{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Level:     slog.LevelError.String(),
			Channel:   string(ChannelSystem),
			Message:   "sse_writer: failed to parse incoming log message",
		})
		return len(p), nil
	}

	w.broadcaster.SubmitLog(LogEntry{
		Timestamp: getString(raw, "time"),
		Level:     getString(raw, "level"),
		Channel:   getString(raw, "channel"),
		Message:   getString(raw, "msg"),
		RequestID: getString(raw, "requestId"),
	})
	return len(p), nil
}

func getString(data map[string]any, key string) string {
	if s, ok := data[key].(string); ok {
		return s
	}
	return ""
}
