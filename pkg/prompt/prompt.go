// Package prompt builds the prompts sent to models for question generation.
package prompt

import (
	"fmt"
	"strings"

	"github.com/zen-systems/questforge/pkg/schema"
)

// SystemPrompt frames the model as a question writer that answers in JSON.
const SystemPrompt = "You are an expert medical educator creating high-quality board-style " +
	"multiple-choice questions. Write clinically relevant questions that test reasoning, " +
	"not memorization, and explain every option. Always respond with properly formatted " +
	"JSON that follows the requested format exactly."

// Content is the educational material a question is written from.
type Content struct {
	Category string `json:"category,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Lesson   string `json:"lesson,omitempty"`
	Topic    string `json:"topic,omitempty"`
	Text     string `json:"text"`
}

const questionFormat = `{
  "title": "Brief descriptive title for the question",
  "stem": "The question text ending with a clear question mark",
  "difficulty": "easy | medium | hard",
  "options": [
    {"id": "A", "text": "First answer option", "isCorrect": false, "explanation": "Why this is incorrect"},
    {"id": "B", "text": "Second answer option", "isCorrect": true, "explanation": "Why this is correct"},
    {"id": "C", "text": "Third answer option", "isCorrect": false, "explanation": "Why this is incorrect"},
    {"id": "D", "text": "Fourth answer option", "isCorrect": false, "explanation": "Why this is incorrect"}
  ],
  "teachingPoint": "Key learning objective of this question",
  "references": ["Relevant references if applicable"],
  "suggestedTags": ["Tag1", "Tag2", "Tag3"]
}`

// Question builds the user prompt asking for one question about content.
func Question(content Content, instructions, additionalContext string) string {
	var sb strings.Builder

	sb.WriteString("Create a high-quality multiple-choice question based on the following educational content:\n\n")
	sb.WriteString("EDUCATIONAL CONTENT:\n")
	writeField(&sb, "Category", content.Category)
	writeField(&sb, "Subject", content.Subject)
	writeField(&sb, "Lesson", content.Lesson)
	writeField(&sb, "Topic", content.Topic)
	sb.WriteString(fmt.Sprintf("Content: %s\n\n", strings.TrimSpace(content.Text)))

	if instructions = strings.TrimSpace(instructions); instructions != "" {
		sb.WriteString("INSTRUCTIONS:\n")
		sb.WriteString(instructions)
		sb.WriteString("\n\n")
	}

	sb.WriteString("ADDITIONAL CONTEXT:\n")
	if additionalContext = strings.TrimSpace(additionalContext); additionalContext != "" {
		sb.WriteString(additionalContext)
	} else {
		sb.WriteString("None provided")
	}
	sb.WriteString("\n\n")

	sb.WriteString("REQUIREMENTS:\n")
	sb.WriteString(fmt.Sprintf("1. Include exactly %d answer options\n", schema.OptionCount))
	sb.WriteString("2. Exactly ONE option is correct\n")
	sb.WriteString("3. Explain why each option is correct or incorrect\n")
	sb.WriteString("4. Include a meaningful teaching point\n")
	sb.WriteString("5. Set difficulty to one of easy, medium or hard\n")
	sb.WriteString("6. Base the question on the provided content\n\n")

	sb.WriteString("Return your response in this EXACT JSON format (no markdown, just JSON):\n\n")
	sb.WriteString(questionFormat)
	sb.WriteString("\n\nFor suggestedTags, provide 3-5 concise tags (1-3 words each) naming the key concepts of the question.")

	return sb.String()
}

func writeField(sb *strings.Builder, name, value string) {
	if value = strings.TrimSpace(value); value != "" {
		sb.WriteString(fmt.Sprintf("%s: %s\n", name, value))
	}
}
