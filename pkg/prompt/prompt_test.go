package prompt

import (
	"strings"
	"testing"

	"github.com/zen-systems/questforge/pkg/extract"
	"github.com/zen-systems/questforge/pkg/schema"
)

func TestQuestionIncludesContentAndFormat(t *testing.T) {
	p := Question(Content{
		Subject: "Pathology",
		Topic:   "Cervical cytology",
		Text:    "  HSIL shows a high N:C ratio.  ",
	}, "Focus on differential diagnosis", "")

	for _, want := range []string{
		"Subject: Pathology",
		"Topic: Cervical cytology",
		"Content: HSIL shows a high N:C ratio.\n",
		"INSTRUCTIONS:\nFocus on differential diagnosis",
		"ADDITIONAL CONTEXT:\nNone provided",
		"exactly 4 answer options",
	} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q:\n%s", want, p)
		}
	}
	if strings.Contains(p, "Lesson:") {
		t.Fatalf("empty fields must be omitted")
	}
}

func TestQuestionFormatIsAValidQuestion(t *testing.T) {
	obj, err := extract.Object(Question(Content{Text: "x"}, "", ""))
	if err != nil {
		t.Fatalf("format example should be extractable: %v", err)
	}
	obj["difficulty"] = "easy"
	if _, err := schema.Validate(obj); err != nil {
		t.Fatalf("format example should satisfy the schema: %v", err)
	}
}
