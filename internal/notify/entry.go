package notify

import (
	"fmt"
	"strings"
	"time"
)

// Level classifies a notification entry.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// SourceMaster is the source tag for entries emitted by the master itself.
// Children use their registered name.
const SourceMaster = "master"

// Entry is a single notification. Entries are immutable once created.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Source    string    `json:"source"`
	Message   string    `json:"message"`
}

// Line renders the durable-log representation of the entry:
// <timestamp>\t[<level>]\t[<source>]\t<message>
func (e Entry) Line() string {
	return fmt.Sprintf("%s\t[%s]\t[%s]\t%s",
		e.Timestamp.Format(time.RFC3339), e.Level, e.Source, e.Message)
}

// ParseLine parses a durable-log line back into an Entry. It tolerates tabs
// inside the message.
func ParseLine(line string) (Entry, error) {
	parts := strings.SplitN(line, "\t", 4)
	if len(parts) != 4 {
		return Entry{}, fmt.Errorf("malformed notification line: %q", line)
	}
	ts, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return Entry{}, fmt.Errorf("malformed timestamp in %q: %w", line, err)
	}
	lvl := strings.Trim(parts[1], "[]")
	src := strings.Trim(parts[2], "[]")
	return Entry{Timestamp: ts, Level: Level(lvl), Source: src, Message: parts[3]}, nil
}

// Format renders entries newest-first, one line each. It is pure: the input
// slice is insertion order (oldest first) and is not modified. Every display
// view renders through this one function.
func Format(entries []Entry) string {
	var b strings.Builder
	for i := len(entries) - 1; i >= 0; i-- {
		b.WriteString(entries[i].Line())
		b.WriteByte('\n')
	}
	return b.String()
}
