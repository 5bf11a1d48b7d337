// Package quiz generates multiple-choice quizzes from study notes and
// repairs the model's JSON output into a stable shape.
package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"unicode/utf8"
)

// maxNotesSize bounds how much note text is sent to the model.
const maxNotesSize = 15000

// ErrNoQuiz is returned when no JSON array can be found in the model
// output.
var ErrNoQuiz = errors.New("no quiz found in model output")

// Question is one multiple-choice question.
type Question struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answer_index"`
}

var optionPrefix = regexp.MustCompile(`^[A-D]\)\s*`)

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

// Prompt builds the quiz generation prompt for the given notes.
func Prompt(notes string) string {
	notes = truncate(notes, maxNotesSize)
	return fmt.Sprintf(`Create 5 multiple choice questions. RULES: `+
		`1. answer_index MUST be 0-3 integer. `+
		`2. options list MUST have 4 strings. `+
		`3. No A) prefixes. `+
		`OUTPUT RAW JSON: [ {"question": "?", "options": ["Opt1", "Opt2", "Opt3", "Opt4"], "answer_index": 0 } ]. `+
		`NOTES: %s`, notes)
}

// Parse extracts the question array from raw model output, strips letter
// prefixes from options and shuffles each question's options while
// keeping answer_index pointing at the correct one. rng may be nil for a
// non-deterministic shuffle.
func Parse(raw string, rng *rand.Rand) ([]Question, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end < start {
		return nil, ErrNoQuiz
	}

	var questions []Question
	if err := json.Unmarshal([]byte(raw[start:end+1]), &questions); err != nil {
		return nil, fmt.Errorf("unable to parse quiz JSON: %w", err)
	}

	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}

	for i := range questions {
		q := &questions[i]
		for j, opt := range q.Options {
			q.Options[j] = optionPrefix.ReplaceAllString(opt, "")
		}

		if q.AnswerIndex < 0 || q.AnswerIndex >= len(q.Options) {
			continue
		}

		correct := q.Options[q.AnswerIndex]
		shuffle(len(q.Options), func(a, b int) {
			q.Options[a], q.Options[b] = q.Options[b], q.Options[a]
		})
		for j, opt := range q.Options {
			if opt == correct {
				q.AnswerIndex = j
				break
			}
		}
	}

	return questions, nil
}
