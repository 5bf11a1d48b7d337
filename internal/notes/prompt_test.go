package notes

import (
	"strings"
	"testing"
)

func TestParseDetailLevel(t *testing.T) {
	tests := []struct {
		in   string
		want DetailLevel
	}{
		{"Concise Summary", DetailSummary},
		{"summary", DetailSummary},
		{"Exhaustive Notes", DetailExhaustive},
		{"EXHAUSTIVE", DetailExhaustive},
		{"Standard Notes", DetailStandard},
		{"", DetailStandard},
		{"something else", DetailStandard},
	}

	for _, tt := range tests {
		if got := ParseDetailLevel(tt.in); got != tt.want {
			t.Errorf("ParseDetailLevel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSystemPrompt(t *testing.T) {
	p := SystemPrompt(DetailStandard, "transcript", "", "")

	for _, want := range []string{"Academic Tutor", "TL;DR", "Exam Probability", "Difficulty", "STANDARD STUDY NOTES"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if !strings.Contains(p, "transcript") {
		t.Error("prompt must name the context type")
	}
}

func TestSystemPromptDetailVariants(t *testing.T) {
	if p := SystemPrompt(DetailSummary, "audio", "", ""); !strings.Contains(p, "CONCISE SUMMARY") {
		t.Error("summary prompt missing its instruction")
	}
	if p := SystemPrompt(DetailExhaustive, "audio", "", ""); !strings.Contains(p, "minute-by-minute") {
		t.Error("exhaustive prompt missing its instruction")
	}
}

func TestSystemPromptPartAndFocus(t *testing.T) {
	p := SystemPrompt(DetailStandard, "audio", "Part 2/5", "focus on proofs")

	if !strings.Contains(p, "Part 2/5") {
		t.Error("prompt missing the part framing")
	}
	if !strings.Contains(p, "focus on proofs") || !strings.Contains(p, "PRIORITIZE") {
		t.Error("prompt missing the custom focus instruction")
	}
}

func TestSynthesisPrompt(t *testing.T) {
	p := SynthesisPrompt("key theorems", []string{"part one notes", "part two notes"})

	for _, want := range []string{"SYNTHESIZE", "key theorems", "part one notes", "part two notes"} {
		if !strings.Contains(p, want) {
			t.Errorf("synthesis prompt missing %q", want)
		}
	}
}

func TestChatPrompt(t *testing.T) {
	p := ChatPrompt("the notes body", "what is a B-tree?")

	if !strings.Contains(p, "the notes body") || !strings.Contains(p, "what is a B-tree?") {
		t.Error("chat prompt must embed the notes and the question")
	}
	if !strings.Contains(p, "tutor") {
		t.Error("chat prompt must keep the tutor persona")
	}
}

func TestMimeTypeFor(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".m4a", "audio/mp4"},
		{".MP3", "audio/mpeg"},
		{".mp4", "video/mp4"},
		{".webm", "video/webm"},
		{".xyz", "application/octet-stream"},
	}

	for _, tt := range tests {
		if got := mimeTypeFor(tt.ext); got != tt.want {
			t.Errorf("mimeTypeFor(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}
