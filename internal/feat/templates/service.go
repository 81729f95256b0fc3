package templates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cliossg/formkit/internal/feat/forms"
	"github.com/cliossg/formkit/pkg/cl/logger"
	"github.com/cliossg/formkit/pkg/cl/model"
)

var ErrTemplateNotFound = errors.New("template not found")

// FormCreator stores the form built from a template.
type FormCreator interface {
	CreateForm(ctx context.Context, draft forms.FormDraft) (*forms.Form, error)
}

type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error

	List(ctx context.Context) []FormTemplate
	Get(ctx context.Context, id string) (*FormTemplate, error)
	Categories(ctx context.Context) []string
	Search(ctx context.Context, query, category string) []FormTemplate
	Instantiate(ctx context.Context, id string) (*forms.Form, error)
}

type service struct {
	lib     *library
	creator FormCreator
	log     logger.Logger
}

func NewService(src Source, creator FormCreator, log logger.Logger) Service {
	return &service{
		lib:     newLibrary(src, log),
		creator: creator,
		log:     log,
	}
}

func (s *service) Start(ctx context.Context) error {
	if err := s.lib.start(ctx); err != nil {
		return fmt.Errorf("cannot load template library: %w", err)
	}
	s.log.Infof("Loaded %d form templates", len(s.lib.all()))
	return nil
}

func (s *service) Stop(ctx context.Context) error {
	return s.lib.stop()
}

func (s *service) List(ctx context.Context) []FormTemplate {
	return s.lib.all()
}

func (s *service) Get(ctx context.Context, id string) (*FormTemplate, error) {
	for _, t := range s.lib.all() {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, ErrTemplateNotFound
}

func (s *service) Categories(ctx context.Context) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range s.lib.all() {
		c := strings.ToLower(t.Category)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func (s *service) Search(ctx context.Context, query, category string) []FormTemplate {
	out := []FormTemplate{}
	for _, t := range s.lib.all() {
		if t.Matches(query, category) {
			out = append(out, t)
		}
	}
	return out
}

// Instantiate creates a new form from the template. Questions get fresh ids
// so the new form never shares ids with the template or its other copies.
func (s *service) Instantiate(ctx context.Context, id string) (*forms.Form, error) {
	tmpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	draft := tmpl.Form.Clone()
	for i := range draft.Questions {
		draft.Questions[i].ID = model.NewID()
	}

	form, err := s.creator.CreateForm(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("cannot instantiate template %s: %w", id, err)
	}
	s.log.Infof("Instantiated template %s as form %s", id, form.ID)
	return form, nil
}
