package session

import (
	"fmt"
	"strings"
	"time"
)

const transcriptTitle = "FABLEFORGE"

// ExportTranscript renders the display log as a fixed-format text report.
func (e *Engine) ExportTranscript() string {
	e.mu.Lock()
	entries := make([]string, 0, len(e.display))
	for _, entry := range e.display {
		entries = append(entries, entry.Text)
	}
	e.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "=== %s TRANSCRIPT ===\n", transcriptTitle)
	fmt.Fprintf(&b, "Exported: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Model: %s\n", e.model.ModelName())
	fmt.Fprintf(&b, "Total Messages: %d\n", len(entries))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", 50))
	b.WriteString("\n\n")
	for _, text := range entries {
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String()
}
