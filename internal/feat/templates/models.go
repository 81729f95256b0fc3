package templates

import (
	"strings"

	"github.com/cliossg/formkit/internal/feat/forms"
)

// FormTemplate is a ready-made form that builders copy into a new form.
type FormTemplate struct {
	ID          string          `json:"id" yaml:"id"`
	Title       string          `json:"title" yaml:"title"`
	Description string          `json:"description" yaml:"description"`
	Category    string          `json:"category" yaml:"category"`
	Thumbnail   string          `json:"thumbnail" yaml:"thumbnail"`
	Form        forms.FormDraft `json:"form" yaml:"form"`
}

// Clone returns a deep copy of the template.
func (t FormTemplate) Clone() FormTemplate {
	out := t
	out.Form = t.Form.Clone()
	return out
}

// Matches reports whether the template is in category ("" or "all" match any)
// and its title or description contains query, ignoring case.
func (t FormTemplate) Matches(query, category string) bool {
	category = strings.ToLower(strings.TrimSpace(category))
	if category != "" && category != "all" && strings.ToLower(t.Category) != category {
		return false
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Description), q)
}
