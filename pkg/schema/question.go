// Package schema defines the generated-question contract and validates
// model output against it.
package schema

// Difficulty grades a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// OptionCount is the number of answer options every question carries.
const OptionCount = 4

// Question is a multiple-choice question with exactly one correct option.
type Question struct {
	Title         string         `json:"title"`
	Stem          string         `json:"stem"`
	Difficulty    Difficulty     `json:"difficulty"`
	TeachingPoint string         `json:"teachingPoint"`
	References    []string       `json:"references,omitempty"`
	SuggestedTags []string       `json:"suggestedTags,omitempty"`
	Options       []AnswerOption `json:"options"`
}

// AnswerOption is one answer to a Question.
type AnswerOption struct {
	ID          string `json:"id,omitempty"`
	Text        string `json:"text"`
	IsCorrect   bool   `json:"isCorrect"`
	Explanation string `json:"explanation"`
}

// CorrectOption returns the index of the correct option, or -1.
func (q Question) CorrectOption() int {
	for i, opt := range q.Options {
		if opt.IsCorrect {
			return i
		}
	}
	return -1
}
