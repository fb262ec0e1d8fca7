// Package framing reassembles the raw serial byte stream into discrete
// barcode lines. Scanners deliver chunks at arbitrary split points and may
// terminate lines with \r, \n, or \r\n.
package framing

import "strings"

// Framer accumulates raw chunks and emits complete, trimmed, non-empty
// barcode lines. A chunk ending mid-barcode is retained and concatenated
// with the next chunk; a chunk ending on a terminator flushes fully.
// Framer is not safe for concurrent use; the serial read loop owns it.
type Framer struct {
	pending string
}

// New creates an empty Framer
func New() *Framer {
	return &Framer{}
}

// Push appends a chunk and returns every completed line it produced, in
// order. Lines are trimmed of surrounding whitespace; segments that are
// empty after trimming are dropped silently. If the stream never carries a
// terminator, no line is ever emitted and the partial text keeps growing.
func (f *Framer) Push(chunk string) []string {
	if chunk == "" {
		return nil
	}

	data := f.pending + chunk
	parts := strings.Split(strings.ReplaceAll(data, "\r", "\n"), "\n")

	// The final segment is complete only if the chunk ended on a
	// terminator, in which case it is the empty string.
	f.pending = parts[len(parts)-1]

	var lines []string
	for _, part := range parts[:len(parts)-1] {
		line := strings.TrimSpace(part)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Pending returns the retained partial text, if any
func (f *Framer) Pending() string {
	return f.pending
}

// Reset discards any retained partial text. Called on reconnect so a
// half-read barcode from the previous session cannot leak into the next.
func (f *Framer) Reset() {
	f.pending = ""
}
