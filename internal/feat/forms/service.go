package forms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cliossg/formkit/pkg/cl/kv"
	"github.com/cliossg/formkit/pkg/cl/logger"
	"github.com/cliossg/formkit/pkg/cl/metrics"
	"github.com/cliossg/formkit/pkg/cl/model"
	"github.com/cliossg/formkit/pkg/cl/validation"
)

// StoreKey is the key holding the serialized form collection.
const StoreKey = "forms"

var (
	ErrFormNotFound     = errors.New("form not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrChoiceNotFound   = errors.New("choice not found")
	ErrInvalidOrder     = errors.New("order must list every question id exactly once")
)

// Service is the form repository. Returned forms and questions are copies.
type Service interface {
	Start(ctx context.Context) error

	CreateForm(ctx context.Context, draft FormDraft) (*Form, error)
	GetForm(ctx context.Context, id string) (*Form, error)
	UpdateForm(ctx context.Context, id string, patch FormPatch) (*Form, error)
	DeleteForm(ctx context.Context, id string) error
	ListForms(ctx context.Context) ([]*Form, error)
	SearchForms(ctx context.Context, query string) ([]*Form, error)

	AddQuestion(ctx context.Context, formID string, draft QuestionDraft) (*Question, error)
	UpdateQuestion(ctx context.Context, formID, questionID string, patch QuestionPatch) (*Question, error)
	ReorderQuestions(ctx context.Context, formID string, order []string) error
	DeleteQuestion(ctx context.Context, formID, questionID string) error

	AddChoice(ctx context.Context, formID, questionID string, draft ChoiceDraft) (*Choice, error)
	RenameChoice(ctx context.Context, formID, questionID, choiceID, label string) (*Choice, error)
	RemoveChoice(ctx context.Context, formID, questionID, choiceID string) error
}

// Option configures the service.
type Option func(*service)

// WithClock replaces the system clock.
func WithClock(c model.Clock) Option {
	return func(s *service) { s.clock = c }
}

type service struct {
	mu    sync.RWMutex
	forms []Form

	store kv.Store
	seed  []Form
	clock model.Clock
	rec   metrics.Recorder
	log   logger.Logger
}

// NewService creates the form repository over store. seed is the collection
// used when the store holds no readable snapshot.
func NewService(store kv.Store, seed []Form, rec metrics.Recorder, log logger.Logger, opts ...Option) Service {
	if rec == nil {
		rec = metrics.NewNoop()
	}
	s := &service{
		store: store,
		seed:  cloneForms(seed),
		clock: model.SystemClock(),
		rec:   rec,
		log:   log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start hydrates the collection from the store. A missing, unreadable or
// corrupt snapshot falls back to the seed. When nothing was saved yet the
// seed is written back, so its timestamps hold across restarts; an unreadable
// or corrupt snapshot is left in place.
func (s *service) Start(ctx context.Context) error {
	forms, missing := s.load(ctx)
	if missing {
		s.saveSeed(ctx, forms)
	}

	s.mu.Lock()
	s.forms = forms
	s.mu.Unlock()

	s.log.Infof("Forms service started with %d forms", len(forms))
	return nil
}

func (s *service) load(ctx context.Context) (forms []Form, missing bool) {
	raw, ok, err := s.store.Get(ctx, StoreKey)
	if err != nil {
		s.log.Errorf("cannot read saved forms, using seed: %v", err)
		return s.seedForms(), false
	}
	if !ok {
		return s.seedForms(), true
	}

	if err := json.Unmarshal([]byte(raw), &forms); err != nil {
		s.log.Errorf("Failed to parse saved forms, using seed: %v", err)
		return s.seedForms(), false
	}
	if forms == nil {
		forms = []Form{}
	}
	return forms, false
}

// saveSeed stores the seeded collection. A failure only costs the stable
// timestamps, so it is logged and startup continues.
func (s *service) saveSeed(ctx context.Context, forms []Form) {
	data, err := json.Marshal(forms)
	if err == nil {
		err = s.store.Set(ctx, StoreKey, string(data))
	}
	if err != nil {
		s.rec.PersistFailure(StoreKey)
		s.log.Warnf("cannot save seed forms: %v", err)
		return
	}
	s.rec.StoreMutation(StoreKey, "seed")
}

func (s *service) seedForms() []Form {
	forms := cloneForms(s.seed)
	now := s.clock.Now()
	for i := range forms {
		if forms[i].CreatedAt.IsZero() {
			forms[i].CreatedAt = now
		}
		if forms[i].UpdatedAt.IsZero() {
			forms[i].UpdatedAt = forms[i].CreatedAt
		}
	}
	return forms
}

// mutate applies fn to a copy of the collection, persists the result and
// only then makes it visible. On any error the collection is unchanged.
func (s *service) mutate(ctx context.Context, op string, fn func(forms []Form) ([]Form, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(cloneForms(s.forms))
	if err != nil {
		return err
	}

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("cannot encode forms: %w", err)
	}
	if err := s.store.Set(ctx, StoreKey, string(data)); err != nil {
		s.rec.PersistFailure(StoreKey)
		s.log.Errorf("cannot save forms after %s: %v", op, err)
		return fmt.Errorf("cannot save forms: %w", err)
	}

	s.forms = next
	s.rec.StoreMutation(StoreKey, op)
	return nil
}

func indexOf(forms []Form, id string) int {
	for i := range forms {
		if forms[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *service) CreateForm(ctx context.Context, draft FormDraft) (*Form, error) {
	now := s.clock.Now()
	form := Form{
		ID:          model.NewID(),
		Title:       draft.Title,
		Description: draft.Description,
		Questions:   draft.Clone().Questions,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if form.Title == "" {
		form.Title = DefaultTitle
	}
	if form.Questions == nil {
		form.Questions = []Question{}
	}
	if draft.Settings != nil {
		form.Settings = draft.Settings.Clone()
	} else {
		form.Settings = DefaultSettings()
	}
	for i := range form.Questions {
		assignIDs(&form.Questions[i])
	}

	if err := Validate(&form); err != nil {
		return nil, fmt.Errorf("cannot create form: %w", err)
	}

	err := s.mutate(ctx, "create", func(forms []Form) ([]Form, error) {
		return append(forms, form.Clone()), nil
	})
	if err != nil {
		return nil, err
	}
	return &form, nil
}

func (s *service) GetForm(ctx context.Context, id string) (*Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := indexOf(s.forms, id)
	if i < 0 {
		return nil, ErrFormNotFound
	}
	f := s.forms[i].Clone()
	return &f, nil
}

func (s *service) UpdateForm(ctx context.Context, id string, patch FormPatch) (*Form, error) {
	var updated Form
	err := s.mutate(ctx, "update", func(forms []Form) ([]Form, error) {
		i := indexOf(forms, id)
		if i < 0 {
			return nil, ErrFormNotFound
		}
		f := &forms[i]
		if patch.Title != nil {
			f.Title = *patch.Title
		}
		if patch.Description != nil {
			f.Description = *patch.Description
		}
		if patch.Questions != nil {
			f.Questions = make([]Question, len(*patch.Questions))
			for j, q := range *patch.Questions {
				f.Questions[j] = q.Clone()
				assignIDs(&f.Questions[j])
			}
		}
		if patch.Settings != nil {
			f.Settings = patch.Settings.Clone()
		}
		f.UpdatedAt = s.clock.Now()

		if err := Validate(f); err != nil {
			return nil, fmt.Errorf("cannot update form: %w", err)
		}
		updated = f.Clone()
		return forms, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *service) DeleteForm(ctx context.Context, id string) error {
	return s.mutate(ctx, "delete", func(forms []Form) ([]Form, error) {
		i := indexOf(forms, id)
		if i < 0 {
			return nil, ErrFormNotFound
		}
		return append(forms[:i], forms[i+1:]...), nil
	})
}

func (s *service) ListForms(ctx context.Context) ([]*Form, error) {
	return s.SearchForms(ctx, "")
}

// SearchForms lists forms whose title or description contains query,
// ignoring case. An empty query lists every form in creation order.
func (s *service) SearchForms(ctx context.Context, query string) ([]*Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]*Form, 0, len(s.forms))
	for _, f := range s.forms {
		if q != "" && !strings.Contains(strings.ToLower(f.Title), q) &&
			!strings.Contains(strings.ToLower(f.Description), q) {
			continue
		}
		c := f.Clone()
		out = append(out, &c)
	}
	return out, nil
}

// withQuestion runs fn on the question inside a copy of the form, bumps
// updatedAt and validates the result before it is persisted.
func (s *service) withQuestion(ctx context.Context, op, formID, questionID string, fn func(f *Form, q *Question) error) error {
	return s.mutate(ctx, op, func(forms []Form) ([]Form, error) {
		i := indexOf(forms, formID)
		if i < 0 {
			return nil, ErrFormNotFound
		}
		f := &forms[i]
		j := f.questionIndex(questionID)
		if j < 0 {
			return nil, ErrQuestionNotFound
		}
		if err := fn(f, &f.Questions[j]); err != nil {
			return nil, err
		}
		f.UpdatedAt = s.clock.Now()
		if err := Validate(f); err != nil {
			return nil, fmt.Errorf("cannot %s: %w", strings.ReplaceAll(op, "_", " "), err)
		}
		return forms, nil
	})
}

func (s *service) AddQuestion(ctx context.Context, formID string, draft QuestionDraft) (*Question, error) {
	q := newQuestion(draft)

	err := s.mutate(ctx, "add_question", func(forms []Form) ([]Form, error) {
		i := indexOf(forms, formID)
		if i < 0 {
			return nil, ErrFormNotFound
		}
		f := &forms[i]
		f.Questions = append(f.Questions, q.Clone())
		f.UpdatedAt = s.clock.Now()
		if err := Validate(f); err != nil {
			return nil, fmt.Errorf("cannot add question: %w", err)
		}
		return forms, nil
	})
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *service) UpdateQuestion(ctx context.Context, formID, questionID string, patch QuestionPatch) (*Question, error) {
	var updated Question
	err := s.withQuestion(ctx, "update_question", formID, questionID, func(_ *Form, q *Question) error {
		if patch.Type != nil {
			q.Type = *patch.Type
		}
		if patch.Title != nil {
			q.Title = *patch.Title
		}
		if patch.Description != nil {
			q.Description = *patch.Description
		}
		if patch.Required != nil {
			q.Required = *patch.Required
		}
		if patch.Choices != nil {
			q.Choices = append([]Choice(nil), *patch.Choices...)
		}
		if patch.Validation != nil {
			q.Validation = patch.Validation.clone()
		}
		if patch.Properties != nil {
			q.Properties = patch.Properties.clone()
		}
		assignIDs(q)
		updated = q.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ReorderQuestions rearranges the questions to follow order, which must be a
// permutation of the current question ids.
func (s *service) ReorderQuestions(ctx context.Context, formID string, order []string) error {
	return s.mutate(ctx, "reorder", func(forms []Form) ([]Form, error) {
		i := indexOf(forms, formID)
		if i < 0 {
			return nil, ErrFormNotFound
		}
		f := &forms[i]
		if len(order) != len(f.Questions) {
			return nil, ErrInvalidOrder
		}

		byID := make(map[string]Question, len(f.Questions))
		for _, q := range f.Questions {
			byID[q.ID] = q
		}
		reordered := make([]Question, 0, len(order))
		for _, id := range order {
			q, ok := byID[id]
			if !ok {
				return nil, ErrInvalidOrder
			}
			delete(byID, id)
			reordered = append(reordered, q)
		}

		f.Questions = reordered
		f.UpdatedAt = s.clock.Now()
		return forms, nil
	})
}

func (s *service) DeleteQuestion(ctx context.Context, formID, questionID string) error {
	return s.mutate(ctx, "delete_question", func(forms []Form) ([]Form, error) {
		i := indexOf(forms, formID)
		if i < 0 {
			return nil, ErrFormNotFound
		}
		f := &forms[i]
		j := f.questionIndex(questionID)
		if j < 0 {
			return nil, ErrQuestionNotFound
		}
		f.Questions = append(f.Questions[:j], f.Questions[j+1:]...)
		f.UpdatedAt = s.clock.Now()
		return forms, nil
	})
}

func (s *service) AddChoice(ctx context.Context, formID, questionID string, draft ChoiceDraft) (*Choice, error) {
	var added Choice
	err := s.withQuestion(ctx, "add_choice", formID, questionID, func(_ *Form, q *Question) error {
		if !q.Type.IsChoice() {
			var errs validation.ValidationErrors
			errs.Add("type", "choice", fmt.Sprintf("%s questions have no choices", q.Type))
			return errs
		}
		added = nextChoice(q.Choices, draft)
		q.Choices = append(q.Choices, added)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}

// RenameChoice sets the label of a choice and derives its value from it.
func (s *service) RenameChoice(ctx context.Context, formID, questionID, choiceID, label string) (*Choice, error) {
	var renamed Choice
	err := s.withQuestion(ctx, "rename_choice", formID, questionID, func(_ *Form, q *Question) error {
		k := q.choiceIndex(choiceID)
		if k < 0 {
			return ErrChoiceNotFound
		}
		q.Choices[k].Label = label
		q.Choices[k].Value = Slug(label)
		renamed = q.Choices[k]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &renamed, nil
}

func (s *service) RemoveChoice(ctx context.Context, formID, questionID, choiceID string) error {
	return s.withQuestion(ctx, "remove_choice", formID, questionID, func(_ *Form, q *Question) error {
		k := q.choiceIndex(choiceID)
		if k < 0 {
			return ErrChoiceNotFound
		}
		q.Choices = append(q.Choices[:k], q.Choices[k+1:]...)
		return nil
	})
}

// newQuestion builds a question from a draft with a fresh id, filling in the
// builder defaults for the title and the first choice.
func newQuestion(d QuestionDraft) Question {
	q := Question{
		ID:          model.NewID(),
		Type:        d.Type,
		Title:       d.Title,
		Description: d.Description,
		Required:    d.Required,
		Choices:     append([]Choice(nil), d.Choices...),
	}
	if d.Validation != nil {
		q.Validation = d.Validation.clone()
	}
	if d.Properties != nil {
		q.Properties = d.Properties.clone()
	}
	if q.Title == "" {
		q.Title = fmt.Sprintf("New %s Question", q.Type.Words())
	}
	if q.Type.IsChoice() && len(q.Choices) == 0 {
		q.Choices = []Choice{{Label: "Option 1", Value: "option_1"}}
	}
	assignIDs(&q)
	return q
}

func assignIDs(q *Question) {
	if q.ID == "" {
		q.ID = model.NewID()
	}
	for i := range q.Choices {
		if q.Choices[i].ID == "" {
			q.Choices[i].ID = model.NewID()
		}
	}
}

// nextChoice fills an empty label or value with the next free "Option n".
func nextChoice(existing []Choice, d ChoiceDraft) Choice {
	taken := make(map[string]bool, len(existing))
	for _, c := range existing {
		taken[c.Value] = true
	}

	n := len(existing) + 1
	if d.Value == "" && d.Label == "" {
		for taken[fmt.Sprintf("option_%d", n)] {
			n++
		}
	}

	c := Choice{ID: model.NewID(), Label: d.Label, Value: d.Value}
	if c.Label == "" {
		c.Label = fmt.Sprintf("Option %d", n)
	}
	if c.Value == "" {
		if d.Label != "" {
			c.Value = Slug(d.Label)
		} else {
			c.Value = fmt.Sprintf("option_%d", n)
		}
	}
	return c
}
