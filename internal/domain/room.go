package domain

import "strings"

// Document is the shared per-room state: a flat key/value JSON object.
// Merges are field-level last-write-wins, no history is kept.
type Document map[string]any

// Merge applies partial on top of d, overwriting existing keys.
func (d Document) Merge(partial Document) {
	for k, v := range partial {
		d[k] = v
	}
}

// Clone returns a shallow copy safe to hand out to readers.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// SanitizeRoomID keeps only alphanumerics, '-' and '_'. An empty result
// falls back to the configured default room name, so sanitization never
// yields an unusable identifier.
func SanitizeRoomID(name, fallback string) string {
	var b strings.Builder
	for _, ch := range name {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '-', ch == '_':
			b.WriteRune(ch)
		}
	}
	if b.Len() == 0 {
		return fallback
	}
	return b.String()
}
