// Package prompt holds the versioned prompt templates sent to the generator.
// Templates are rendered with langchaingo's Go-template formatter after the
// named slots have been checked, so a missing variable is an error instead of
// a silent "<no value>" in the prompt.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tmc/langchaingo/prompts"
)

// Template is an immutable prompt with named slots.
type Template struct {
	Name    string
	Version string
	Text    string
	Slots   []string
}

// New builds a template. Slots are referenced in text as {{.slot}}.
func New(name, version, text string, slots ...string) Template {
	return Template{
		Name:    name,
		Version: version,
		Text:    text,
		Slots:   slots,
	}
}

// ID returns name/version, used in logs and metrics.
func (t Template) ID() string {
	return t.Name + "/" + t.Version
}

// Render fills every slot from vars. Missing or unknown variables are rejected.
func (t Template) Render(vars map[string]any) (string, error) {
	var missing []string
	for _, slot := range t.Slots {
		if _, ok := vars[slot]; !ok {
			missing = append(missing, slot)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("template %s: missing slots: %s", t.ID(), strings.Join(missing, ", "))
	}

	var unknown []string
	for name := range vars {
		if !t.hasSlot(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return "", fmt.Errorf("template %s: unknown variables: %s", t.ID(), strings.Join(unknown, ", "))
	}

	out, err := prompts.NewPromptTemplate(t.Text, t.Slots).Format(vars)
	if err != nil {
		return "", fmt.Errorf("template %s: %w", t.ID(), err)
	}
	return strings.TrimSpace(out), nil
}

func (t Template) hasSlot(name string) bool {
	for _, slot := range t.Slots {
		if slot == name {
			return true
		}
	}
	return false
}

// QueryCorrection asks for a grammar-corrected version of the user's query.
// The model returns the full corrected query, not a keyword paraphrase.
var QueryCorrection = New("query-correct", "v1", `
Correct the grammar and spelling of the query so it works well in a search engine.
Return only the corrected query on a single line.
Query: {{.query}}
Corrected Query:
`, "query")

// Answer grounds the response in the retrieved documents.
var Answer = New("answer", "v1", `
You are an assistant. Answer the user query using only the context below.
If the context does not contain the answer, say that the information is not available.
Context:
{{.context}}
Query: {{.query}}
Answer:
`, "context", "query")
