package chat

import "strings"

// citationMarker opens citation markup, e.g. <inref id="ID"/>.
const citationMarker = "<inref"

// citationBuffer holds back streamed answer text from the first `<` until it
// is clear whether the text is citation markup, so a partial tag is never
// rendered.
type citationBuffer struct {
	pending string
}

// push adds chunk and returns the text that may be shown now.
func (b *citationBuffer) push(chunk string) string {
	if b.pending == "" && !strings.Contains(chunk, "<") {
		return chunk
	}
	b.pending += chunk
	if !couldBeCitation(b.pending) || isCompleteCitation(b.pending) {
		out := b.pending
		b.pending = ""
		return out
	}
	return ""
}

// couldBeCitation reports whether the text from the first `<` in buf is a
// prefix of the marker, or starts with the whole marker.
func couldBeCitation(buf string) bool {
	i := strings.Index(buf, "<")
	if i < 0 {
		return false
	}
	rest := buf[i:]
	if len(rest) > len(citationMarker) {
		rest = rest[:len(citationMarker)]
	}
	return strings.HasPrefix(citationMarker, rest)
}

func isCompleteCitation(buf string) bool {
	return couldBeCitation(buf) && strings.Contains(buf, ">")
}
