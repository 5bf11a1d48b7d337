// Package notes turns lecture transcripts and recordings into study
// notes through the LLM layer.
package notes

import (
	"fmt"
	"strings"
)

// DetailLevel controls how exhaustive the generated notes are.
type DetailLevel string

const (
	// DetailSummary produces a concise summary.
	DetailSummary DetailLevel = "summary"

	// DetailStandard produces standard study notes.
	DetailStandard DetailLevel = "standard"

	// DetailExhaustive produces minute-by-minute notes.
	DetailExhaustive DetailLevel = "exhaustive"
)

// ParseDetailLevel maps free-form detail selections from the client
// ("Concise Summary", "Exhaustive Notes", ...) onto a DetailLevel.
func ParseDetailLevel(s string) DetailLevel {
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "summary"):
		return DetailSummary
	case strings.Contains(lower, "exhaustive"):
		return DetailExhaustive
	default:
		return DetailStandard
	}
}

// SystemPrompt builds the tutor prompt for one generation pass.
// contextType names what the model is looking at ("transcript", "audio",
// "video"); partInfo frames multi-chunk passes ("Part 2/5").
func SystemPrompt(detail DetailLevel, contextType, partInfo, customFocus string) string {
	var b strings.Builder

	b.WriteString("You are an expert Academic Tutor. ")
	if partInfo != "" {
		b.WriteString(partInfo)
		b.WriteString(" ")
	}
	if customFocus != "" {
		fmt.Fprintf(&b, "\nIMPORTANT: The user specifically requested: '%s'. PRIORITIZE THIS IN THE NOTES.\n", customFocus)
	}

	b.WriteString(`
STRUCTURE REQUIREMENTS:
1. Start immediately with the content. Do NOT say "Here are your notes".
2. Start with a '## TL;DR' section. Inside it, provide:
   - **Core Topic**: (1 sentence)
   - **Exam Probability**: (High/Medium/Low)
   - **Difficulty**: (1-10 scale)
3. Then, provide the main notes below using clear Markdown headers (##) and bullet points.
`)

	switch detail {
	case DetailSummary:
		fmt.Fprintf(&b, "Create a CONCISE SUMMARY of this %s.", contextType)
	case DetailExhaustive:
		fmt.Fprintf(&b, "Create EXHAUSTIVE NOTES of this %s. Include minute-by-minute details.", contextType)
	default:
		fmt.Fprintf(&b, "Create STANDARD STUDY NOTES of this %s.", contextType)
	}

	return b.String()
}

// SynthesisPrompt asks the model to merge per-chunk notes into one guide.
func SynthesisPrompt(customFocus string, parts []string) string {
	combined := strings.Join(parts, "\n\n")
	return fmt.Sprintf("SYNTHESIZE these parts into ONE cohesive study guide. "+
		"Remove 'Part X' breaks. Combine TL;DRs. Rules: Maintain depth. "+
		"Prioritize custom focus: '%s'. RAW NOTES:\n%s", customFocus, combined)
}

// ChatPrompt frames a follow-up question against already generated notes.
func ChatPrompt(notesText, message string) string {
	return fmt.Sprintf("Context:\n%s\n\nUser Question: %s\n\nAnswer as a helpful tutor:", notesText, message)
}
