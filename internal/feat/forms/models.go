package forms

import (
	"strings"
	"time"
	"unicode"
)

// QuestionType identifies how a question is answered.
type QuestionType string

const (
	TypeText           QuestionType = "text"
	TypeLongText       QuestionType = "longText"
	TypeNumber         QuestionType = "number"
	TypeEmail          QuestionType = "email"
	TypeURL            QuestionType = "url"
	TypeDate           QuestionType = "date"
	TypeSingleChoice   QuestionType = "singleChoice"
	TypeMultipleChoice QuestionType = "multipleChoice"
	TypeRating         QuestionType = "rating"
	TypeFileUpload     QuestionType = "fileUpload"
	TypePhone          QuestionType = "phone"
	TypeBoolean        QuestionType = "boolean"
)

// QuestionTypes lists every known question type.
var QuestionTypes = []QuestionType{
	TypeText, TypeLongText, TypeNumber, TypeEmail, TypeURL, TypeDate,
	TypeSingleChoice, TypeMultipleChoice, TypeRating, TypeFileUpload, TypePhone, TypeBoolean,
}

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	for _, known := range QuestionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsChoice reports whether answers are picked from the question's choices.
func (t QuestionType) IsChoice() bool {
	return t == TypeSingleChoice || t == TypeMultipleChoice
}

// Words splits the camel-cased type into capitalized words: "longText" is "Long Text".
func (t QuestionType) Words() string {
	var b strings.Builder
	for i, r := range string(t) {
		switch {
		case i == 0:
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsUpper(r):
			b.WriteRune(' ')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

type Choice struct {
	ID    string `json:"id" yaml:"id,omitempty" validate:"required"`
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value" validate:"required"`
}

type Validation struct {
	Min     *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Pattern string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

type Properties struct {
	Placeholder  string `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	DefaultValue any    `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	MaxLength    *int   `json:"maxLength,omitempty" yaml:"maxLength,omitempty" validate:"omitempty,gte=0"`
}

type Question struct {
	ID          string       `json:"id" yaml:"id,omitempty" validate:"required"`
	Type        QuestionType `json:"type" yaml:"type" validate:"required,questiontype"`
	Title       string       `json:"title" yaml:"title"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool         `json:"required" yaml:"required"`
	Choices     []Choice     `json:"choices,omitempty" yaml:"choices,omitempty" validate:"dive"`
	Validation  *Validation  `json:"validation,omitempty" yaml:"validation,omitempty"`
	Properties  *Properties  `json:"properties,omitempty" yaml:"properties,omitempty" validate:"omitempty"`
}

type Theme struct {
	PrimaryColor    string `json:"primaryColor,omitempty" yaml:"primaryColor,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty" yaml:"backgroundColor,omitempty"`
	TextColor       string `json:"textColor,omitempty" yaml:"textColor,omitempty"`
}

type Settings struct {
	ShowProgressBar          bool   `json:"showProgressBar" yaml:"showProgressBar"`
	SubmitButtonText         string `json:"submitButtonText" yaml:"submitButtonText"`
	SuccessMessage           string `json:"successMessage" yaml:"successMessage"`
	AllowMultipleSubmissions bool   `json:"allowMultipleSubmissions" yaml:"allowMultipleSubmissions"`
	RedirectURL              string `json:"redirectUrl,omitempty" yaml:"redirectUrl,omitempty" validate:"omitempty,url"`
	Theme                    *Theme `json:"theme,omitempty" yaml:"theme,omitempty"`
}

// Form is a titled, ordered list of questions with respondent-facing settings.
type Form struct {
	ID          string     `json:"id" yaml:"id" validate:"required"`
	Title       string     `json:"title" yaml:"title" validate:"required"`
	Description string     `json:"description" yaml:"description"`
	Questions   []Question `json:"questions" yaml:"questions" validate:"dive"`
	Settings    Settings   `json:"settings" yaml:"settings"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt" yaml:"updatedAt"`
}

// FormDraft is a form before it is stored: no id and no timestamps.
// Questions may carry ids; missing ones are assigned on create.
type FormDraft struct {
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Questions   []Question `json:"questions" yaml:"questions"`
	Settings    *Settings  `json:"settings,omitempty" yaml:"settings,omitempty"`
}

// QuestionDraft is a question before it is added to a form.
type QuestionDraft struct {
	Type        QuestionType `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Required    bool         `json:"required"`
	Choices     []Choice     `json:"choices,omitempty"`
	Validation  *Validation  `json:"validation,omitempty"`
	Properties  *Properties  `json:"properties,omitempty"`
}

// ChoiceDraft is a choice before it is added to a question. Empty fields get
// the next "Option n" label and "option_n" value.
type ChoiceDraft struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// FormPatch holds the fields to change on a form. Nil fields are left as they are.
type FormPatch struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Questions   *[]Question `json:"questions,omitempty"`
	Settings    *Settings   `json:"settings,omitempty"`
}

// QuestionPatch holds the fields to change on a question. The id cannot change.
type QuestionPatch struct {
	Type        *QuestionType `json:"type,omitempty"`
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	Required    *bool         `json:"required,omitempty"`
	Choices     *[]Choice     `json:"choices,omitempty"`
	Validation  *Validation   `json:"validation,omitempty"`
	Properties  *Properties   `json:"properties,omitempty"`
}

const DefaultTitle = "Untitled Form"

// DefaultSettings returns the settings of a newly built form.
func DefaultSettings() Settings {
	return Settings{
		ShowProgressBar:          true,
		SubmitButtonText:         "Submit",
		SuccessMessage:           "Thank you for your submission!",
		AllowMultipleSubmissions: true,
	}
}

// Slug turns a choice label into its value: lowercased, whitespace runs become "_".
func Slug(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), "_")
}

// QuestionByID returns the question with id, or nil.
func (f *Form) QuestionByID(id string) *Question {
	for i := range f.Questions {
		if f.Questions[i].ID == id {
			return &f.Questions[i]
		}
	}
	return nil
}

func (f *Form) questionIndex(id string) int {
	for i := range f.Questions {
		if f.Questions[i].ID == id {
			return i
		}
	}
	return -1
}

func (q *Question) choiceIndex(id string) int {
	for i := range q.Choices {
		if q.Choices[i].ID == id {
			return i
		}
	}
	return -1
}

// ChoiceLabel returns the label of the choice with value, or value itself.
func (q *Question) ChoiceLabel(value string) string {
	for _, c := range q.Choices {
		if c.Value == value {
			return c.Label
		}
	}
	return value
}

// Clone returns a deep copy of the form.
func (f Form) Clone() Form {
	out := f
	if f.Questions != nil {
		out.Questions = make([]Question, len(f.Questions))
		for i, q := range f.Questions {
			out.Questions[i] = q.Clone()
		}
	}
	out.Settings = f.Settings.Clone()
	return out
}

func (s Settings) Clone() Settings {
	out := s
	if s.Theme != nil {
		t := *s.Theme
		out.Theme = &t
	}
	return out
}

// Clone returns a deep copy of the question.
func (q Question) Clone() Question {
	out := q
	if q.Choices != nil {
		out.Choices = append([]Choice(nil), q.Choices...)
	}
	if q.Validation != nil {
		out.Validation = q.Validation.clone()
	}
	if q.Properties != nil {
		out.Properties = q.Properties.clone()
	}
	return out
}

func (v *Validation) clone() *Validation {
	out := &Validation{Pattern: v.Pattern}
	if v.Min != nil {
		m := *v.Min
		out.Min = &m
	}
	if v.Max != nil {
		m := *v.Max
		out.Max = &m
	}
	return out
}

func (p *Properties) clone() *Properties {
	out := &Properties{Placeholder: p.Placeholder, DefaultValue: cloneValue(p.DefaultValue)}
	if p.MaxLength != nil {
		n := *p.MaxLength
		out.MaxLength = &n
	}
	return out
}

// cloneValue copies the decoded JSON or YAML trees a default value can hold.
func cloneValue(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func cloneForms(forms []Form) []Form {
	out := make([]Form, len(forms))
	for i, f := range forms {
		out[i] = f.Clone()
	}
	return out
}

// Clone returns a deep copy of the draft.
func (d FormDraft) Clone() FormDraft {
	out := d
	if d.Questions != nil {
		out.Questions = make([]Question, len(d.Questions))
		for i, q := range d.Questions {
			out.Questions[i] = q.Clone()
		}
	}
	if d.Settings != nil {
		s := d.Settings.Clone()
		out.Settings = &s
	}
	return out
}
