package fake

import (
	"context"
	"fmt"
	"time"

	"github.com/cliossg/formkit/internal/feat/forms"
)

// Service is an in-memory forms.Service for handler and consumer tests.
// It stores what it is given without defaults or structural checks.
type Service struct {
	Forms []*forms.Form

	CreateFormCalls []forms.FormDraft
	CreateFormErr   error
	GetFormErr      error
	ListFormsErr    error

	next int
}

func NewService(fs ...*forms.Form) *Service {
	return &Service{Forms: fs}
}

func (s *Service) Start(_ context.Context) error { return nil }

func (s *Service) find(id string) (*forms.Form, int) {
	for i, f := range s.Forms {
		if f.ID == id {
			return f, i
		}
	}
	return nil, -1
}

func (s *Service) CreateForm(_ context.Context, draft forms.FormDraft) (*forms.Form, error) {
	s.CreateFormCalls = append(s.CreateFormCalls, draft)
	if s.CreateFormErr != nil {
		return nil, s.CreateFormErr
	}
	s.next++
	f := &forms.Form{
		ID:          fmt.Sprintf("fake-%d", s.next),
		Title:       draft.Title,
		Description: draft.Description,
		Questions:   draft.Clone().Questions,
		Settings:    forms.DefaultSettings(),
		CreatedAt:   time.Unix(0, 0).UTC(),
		UpdatedAt:   time.Unix(0, 0).UTC(),
	}
	if draft.Settings != nil {
		f.Settings = *draft.Settings
	}
	s.Forms = append(s.Forms, f)
	c := f.Clone()
	return &c, nil
}

func (s *Service) GetForm(_ context.Context, id string) (*forms.Form, error) {
	if s.GetFormErr != nil {
		return nil, s.GetFormErr
	}
	f, _ := s.find(id)
	if f == nil {
		return nil, forms.ErrFormNotFound
	}
	c := f.Clone()
	return &c, nil
}

func (s *Service) UpdateForm(_ context.Context, id string, patch forms.FormPatch) (*forms.Form, error) {
	f, _ := s.find(id)
	if f == nil {
		return nil, forms.ErrFormNotFound
	}
	if patch.Title != nil {
		f.Title = *patch.Title
	}
	if patch.Description != nil {
		f.Description = *patch.Description
	}
	if patch.Questions != nil {
		f.Questions = *patch.Questions
	}
	if patch.Settings != nil {
		f.Settings = *patch.Settings
	}
	c := f.Clone()
	return &c, nil
}

func (s *Service) DeleteForm(_ context.Context, id string) error {
	_, i := s.find(id)
	if i < 0 {
		return forms.ErrFormNotFound
	}
	s.Forms = append(s.Forms[:i], s.Forms[i+1:]...)
	return nil
}

func (s *Service) ListForms(ctx context.Context) ([]*forms.Form, error) {
	return s.SearchForms(ctx, "")
}

func (s *Service) SearchForms(_ context.Context, _ string) ([]*forms.Form, error) {
	if s.ListFormsErr != nil {
		return nil, s.ListFormsErr
	}
	out := make([]*forms.Form, 0, len(s.Forms))
	for _, f := range s.Forms {
		c := f.Clone()
		out = append(out, &c)
	}
	return out, nil
}

func (s *Service) AddQuestion(_ context.Context, formID string, draft forms.QuestionDraft) (*forms.Question, error) {
	f, _ := s.find(formID)
	if f == nil {
		return nil, forms.ErrFormNotFound
	}
	s.next++
	q := forms.Question{
		ID:       fmt.Sprintf("fq-%d", s.next),
		Type:     draft.Type,
		Title:    draft.Title,
		Required: draft.Required,
		Choices:  draft.Choices,
	}
	f.Questions = append(f.Questions, q)
	return &q, nil
}

func (s *Service) UpdateQuestion(_ context.Context, formID, questionID string, patch forms.QuestionPatch) (*forms.Question, error) {
	f, _ := s.find(formID)
	if f == nil {
		return nil, forms.ErrFormNotFound
	}
	q := f.QuestionByID(questionID)
	if q == nil {
		return nil, forms.ErrQuestionNotFound
	}
	if patch.Title != nil {
		q.Title = *patch.Title
	}
	if patch.Required != nil {
		q.Required = *patch.Required
	}
	c := q.Clone()
	return &c, nil
}

func (s *Service) ReorderQuestions(_ context.Context, formID string, _ []string) error {
	if f, _ := s.find(formID); f == nil {
		return forms.ErrFormNotFound
	}
	return nil
}

func (s *Service) DeleteQuestion(_ context.Context, formID, questionID string) error {
	f, _ := s.find(formID)
	if f == nil {
		return forms.ErrFormNotFound
	}
	for i := range f.Questions {
		if f.Questions[i].ID == questionID {
			f.Questions = append(f.Questions[:i], f.Questions[i+1:]...)
			return nil
		}
	}
	return forms.ErrQuestionNotFound
}

func (s *Service) AddChoice(_ context.Context, formID, questionID string, draft forms.ChoiceDraft) (*forms.Choice, error) {
	f, _ := s.find(formID)
	if f == nil {
		return nil, forms.ErrFormNotFound
	}
	q := f.QuestionByID(questionID)
	if q == nil {
		return nil, forms.ErrQuestionNotFound
	}
	s.next++
	c := forms.Choice{ID: fmt.Sprintf("fc-%d", s.next), Label: draft.Label, Value: draft.Value}
	q.Choices = append(q.Choices, c)
	return &c, nil
}

func (s *Service) RenameChoice(_ context.Context, formID, questionID, choiceID, label string) (*forms.Choice, error) {
	f, _ := s.find(formID)
	if f == nil {
		return nil, forms.ErrFormNotFound
	}
	q := f.QuestionByID(questionID)
	if q == nil {
		return nil, forms.ErrQuestionNotFound
	}
	for i := range q.Choices {
		if q.Choices[i].ID == choiceID {
			q.Choices[i].Label = label
			q.Choices[i].Value = forms.Slug(label)
			c := q.Choices[i]
			return &c, nil
		}
	}
	return nil, forms.ErrChoiceNotFound
}

func (s *Service) RemoveChoice(_ context.Context, formID, questionID, choiceID string) error {
	f, _ := s.find(formID)
	if f == nil {
		return forms.ErrFormNotFound
	}
	q := f.QuestionByID(questionID)
	if q == nil {
		return forms.ErrQuestionNotFound
	}
	for i := range q.Choices {
		if q.Choices[i].ID == choiceID {
			q.Choices = append(q.Choices[:i], q.Choices[i+1:]...)
			return nil
		}
	}
	return forms.ErrChoiceNotFound
}
