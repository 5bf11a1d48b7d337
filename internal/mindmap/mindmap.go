// Package mindmap turns study notes into Graphviz DOT mind maps.
package mindmap

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxNotesSize bounds how much note text is sent to the model.
const maxNotesSize = 15000

// truncate cuts s to at most limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

// Prompt builds the DOT generation prompt for the given notes.
func Prompt(notes string) string {
	notes = truncate(notes, maxNotesSize)
	return fmt.Sprintf(`Create Graphviz DOT code. Start: digraph G { graph [rankdir=LR, splines=ortho]; `+
		`node [shape=box, style="filled", fillcolor="#ffffff", fontname="Arial", fontcolor="#000000", penwidth=1, margin=0.2]; `+
		`edge [color="#666666"]; `+
		`2. COLORS: Root="#FFD700", L1="#D1C4E9", L2="#B3E5FC", L3="#E1F5FE". `+
		`3. Max 6 words/label. `+
		`4. OUTPUT ONLY RAW CODE inside dot tags. NOTES: %s`, notes)
}

// CleanDOT strips markdown code fences and language tags from model
// output, leaving raw DOT.
func CleanDOT(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```dot", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.ReplaceAll(cleaned, "graphviz", "")
	return strings.TrimSpace(cleaned)
}
