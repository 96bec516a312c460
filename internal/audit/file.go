package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// FileLog writes entries as JSON lines to an append-only writer.
type FileLog struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	logger *slog.Logger
}

// NewFileLog creates a FileLog writing to w. Write failures are reported
// to logger and never returned to the caller.
func NewFileLog(w io.Writer, logger *slog.Logger) *FileLog {
	return &FileLog{
		w:      w,
		logger: logger.With("component", "audit_log"),
	}
}

// OpenFileLog opens (or creates) path in append mode.
func OpenFileLog(path string, logger *slog.Logger) (*FileLog, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	l := NewFileLog(f, logger)
	l.closer = f
	return l, nil
}

// RecordEntry implements Logger.
func (l *FileLog) RecordEntry(serverID, category string, typ EntryType, rec Record) {
	line, err := json.Marshal(newEntry(serverID, category, typ, rec))
	if err != nil {
		l.logger.Error("encode audit entry", "err", err)
		return
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.w.Write(line); err != nil {
		l.logger.Error("write audit entry", "err", err, "path", rec.Path)
	}
}

// Close closes the underlying file, if FileLog opened it.
func (l *FileLog) Close() error {
	if l.closer == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closer.Close()
}
