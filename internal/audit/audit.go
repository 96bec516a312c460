// Package audit records rejected and failed proxy exchanges in an
// append-only communication log.
package audit

import "time"

// CategoryProxy is the category used for entries written by the proxy.
const CategoryProxy = "PROXY"

// EntryType classifies an audit entry.
type EntryType string

// Entry types.
const (
	EntryError    EntryType = "Error"
	EntryRejected EntryType = "Rejected"
)

// Record is the caller-supplied part of an entry.
type Record struct {
	Message string
	Path    string
	Method  string
}

// Entry is one immutable line of the communication log.
type Entry struct {
	Time     time.Time `json:"time"`
	ServerID string    `json:"server_id"`
	Category string    `json:"category"`
	Type     EntryType `json:"type"`
	Message  string    `json:"message"`
	Path     string    `json:"path"`
	Method   string    `json:"method"`
}

// Logger is an append-only audit sink. Implementations must be safe for
// concurrent use, and each call must append exactly one entry.
type Logger interface {
	RecordEntry(serverID, category string, typ EntryType, rec Record)
}

func newEntry(serverID, category string, typ EntryType, rec Record) Entry {
	return Entry{
		Time:     time.Now().UTC(),
		ServerID: serverID,
		Category: category,
		Type:     typ,
		Message:  rec.Message,
		Path:     rec.Path,
		Method:   rec.Method,
	}
}

// Multi fans each entry out to every logger in order.
type Multi []Logger

// RecordEntry implements Logger.
func (m Multi) RecordEntry(serverID, category string, typ EntryType, rec Record) {
	for _, l := range m {
		l.RecordEntry(serverID, category, typ, rec)
	}
}
