package analytics

import (
	"context"

	"github.com/cliossg/formkit/internal/feat/forms"
	"github.com/cliossg/formkit/internal/feat/responses"
	"github.com/cliossg/formkit/pkg/cl/logger"
)

type FormReader interface {
	GetForm(ctx context.Context, id string) (*forms.Form, error)
	ListForms(ctx context.Context) ([]*forms.Form, error)
}

type ResponseReader interface {
	List(ctx context.Context, formID string) ([]*responses.FormResponse, error)
	Counts(ctx context.Context) map[string]int
}

// SessionCounter reports how many respondent sessions were begun per form.
type SessionCounter interface {
	Started(ctx context.Context) map[string]int
}

type Service interface {
	Stats(ctx context.Context, formID string) (*FormStats, error)
	Dashboard(ctx context.Context, q string) (*Overview, error)
}

type service struct {
	forms     FormReader
	responses ResponseReader
	sessions  SessionCounter
	log       logger.Logger
}

// NewService creates the analytics service. sessions may be nil when no
// session counts are tracked.
func NewService(forms FormReader, responses ResponseReader, sessions SessionCounter, log logger.Logger) Service {
	return &service{
		forms:     forms,
		responses: responses,
		sessions:  sessions,
		log:       log,
	}
}

func (s *service) Stats(ctx context.Context, formID string) (*FormStats, error) {
	form, err := s.forms.GetForm(ctx, formID)
	if err != nil {
		return nil, err
	}
	list, err := s.responses.List(ctx, form.ID)
	if err != nil {
		return nil, err
	}

	started := 0
	if s.sessions != nil {
		started = s.sessions.Started(ctx)[form.ID]
	}
	stats := Compute(form, list, started)
	return &stats, nil
}

func (s *service) Dashboard(ctx context.Context, q string) (*Overview, error) {
	list, err := s.forms.ListForms(ctx)
	if err != nil {
		return nil, err
	}
	o := Dashboard(list, s.responses.Counts(ctx), q)
	return &o, nil
}
