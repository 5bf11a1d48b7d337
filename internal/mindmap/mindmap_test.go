package mindmap

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestCleanDOT(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "dot fence",
			raw:  "```dot\ndigraph G { a -> b; }\n```",
			want: "digraph G { a -> b; }",
		},
		{
			name: "graphviz fence",
			raw:  "```graphviz\ndigraph G { a -> b; }\n```",
			want: "digraph G { a -> b; }",
		},
		{
			name: "bare fence",
			raw:  "```\ndigraph G {}\n```",
			want: "digraph G {}",
		},
		{
			name: "no fence",
			raw:  "  digraph G {}  ",
			want: "digraph G {}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanDOT(tt.raw); got != tt.want {
				t.Errorf("CleanDOT() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrompt(t *testing.T) {
	p := Prompt("notes about B-trees")

	for _, want := range []string{"digraph G", "rankdir=LR", "#FFD700", "notes about B-trees"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestPromptTruncatesNotes(t *testing.T) {
	p := Prompt(strings.Repeat("n", maxNotesSize+1000))
	if len(p) > maxNotesSize+600 {
		t.Errorf("prompt not truncated: %d bytes", len(p))
	}
}

func TestPromptTruncatesOnRuneBoundary(t *testing.T) {
	// Pad so the byte limit lands inside a multi-byte rune.
	notes := strings.Repeat("n", maxNotesSize-1) + strings.Repeat("日本語", 400)

	p := Prompt(notes)
	if !utf8.ValidString(p) {
		t.Error("truncated prompt contains invalid UTF-8")
	}
}
