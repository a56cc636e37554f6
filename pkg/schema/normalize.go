package schema

import "strings"

type alias struct {
	from, to string
}

// Aliases are applied in order; the first one present wins.
var questionAliases = []alias{
	{"question_options", "options"},
	{"answer_options", "options"},
	{"teaching_point", "teachingPoint"},
	{"suggested_tags", "suggestedTags"},
	{"question_references", "references"},
}

var optionAliases = []alias{
	{"is_correct", "isCorrect"},
	{"correct", "isCorrect"},
}

// Normalize maps the field spellings models commonly produce onto the
// canonical question fields. Canonical fields win over aliases. The input
// is not modified.
func Normalize(obj map[string]any) map[string]any {
	out := renameKeys(obj, questionAliases)

	if d, ok := out["difficulty"].(string); ok {
		out["difficulty"] = strings.ToLower(strings.TrimSpace(d))
	}

	if opts, ok := out["options"].([]any); ok {
		normalized := make([]any, len(opts))
		for i, opt := range opts {
			if m, ok := opt.(map[string]any); ok {
				normalized[i] = renameKeys(m, optionAliases)
			} else {
				normalized[i] = opt
			}
		}
		out["options"] = normalized
	}
	return out
}

func renameKeys(in map[string]any, aliases []alias) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	for _, a := range aliases {
		v, ok := out[a.from]
		if !ok {
			continue
		}
		delete(out, a.from)
		if _, taken := out[a.to]; !taken {
			out[a.to] = v
		}
	}
	return out
}
