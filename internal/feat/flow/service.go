package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cliossg/formkit/internal/feat/forms"
	"github.com/cliossg/formkit/internal/feat/responses"
	"github.com/cliossg/formkit/pkg/cl/logger"
	"github.com/cliossg/formkit/pkg/cl/model"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session already submitted")
	ErrAnswerRequired  = errors.New("answer required")
)

// Submitter stores the response a finished session produces.
type Submitter interface {
	Submit(ctx context.Context, draft responses.Draft) (*responses.FormResponse, error)
}

// Service moves respondents through a form one question at a time.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error

	Begin(ctx context.Context, formID string) (*State, error)
	Get(ctx context.Context, id string) (*State, error)
	SetActive(ctx context.Context, id string, index int) (*State, error)
	Next(ctx context.Context, id string) (*State, error)
	Previous(ctx context.Context, id string) (*State, error)
	Answer(ctx context.Context, id, questionID string, value responses.Answer) (*State, error)
	Submit(ctx context.Context, id string, md responses.Metadata) (*responses.FormResponse, error)

	// Started returns how many sessions were begun per form since startup.
	Started(ctx context.Context) map[string]int
}

type Option func(*service)

func WithClock(c model.Clock) Option {
	return func(s *service) { s.clock = c }
}

type service struct {
	mu       sync.Mutex
	sessions map[string]*Session
	started  map[string]int

	forms     responses.FormLookup
	submitter Submitter
	ttl       time.Duration
	clock     model.Clock
	cancel    context.CancelFunc
	log       logger.Logger
}

// NewService creates the session store. Sessions idle for longer than ttl are dropped.
func NewService(forms responses.FormLookup, submitter Submitter, ttl time.Duration, log logger.Logger, opts ...Option) Service {
	s := &service{
		sessions:  make(map[string]*Session),
		started:   make(map[string]int),
		forms:     forms,
		submitter: submitter,
		ttl:       ttl,
		clock:     model.SystemClock(),
		log:       log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Start(ctx context.Context) error {
	sweepCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.expire(sweepCtx)
	s.log.Infof("Flow service started, sessions expire after %s", s.ttl)
	return nil
}

func (s *service) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

func (s *service) expire(ctx context.Context) {
	interval := s.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sweep(s.clock.Now()); n > 0 {
				s.log.Debugf("Expired %d respondent sessions", n)
			}
		}
	}
}

// sweep drops sessions idle for longer than the TTL and returns how many it removed.
func (s *service) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.LastSeen) > s.ttl {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

func (s *service) Begin(ctx context.Context, formID string) (*State, error) {
	form, err := s.forms.GetForm(ctx, formID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	sess := &Session{
		ID:        model.NewID(),
		FormID:    form.ID,
		Answers:   map[string]responses.Answer{},
		StartedAt: now,
		LastSeen:  now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.started[form.ID]++
	s.mu.Unlock()

	return newState(sess, form), nil
}

// open returns an open session and the current version of its form. The
// active index is re-clamped since questions may have been removed since the
// last step. Callers hold s.mu.
func (s *service) open(ctx context.Context, id string) (*Session, *forms.Form, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil, ErrSessionNotFound
	}
	if sess.Closed() {
		return nil, nil, ErrSessionClosed
	}
	form, err := s.forms.GetForm(ctx, sess.FormID)
	if err != nil {
		return nil, nil, err
	}
	sess.Active = clamp(sess.Active, len(form.Questions))
	return sess, form, nil
}

// update runs fn on an open session and returns its new state.
func (s *service) update(ctx context.Context, id string, fn func(sess *Session, f *forms.Form) error) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, form, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}
	if fn != nil {
		if err := fn(sess, form); err != nil {
			return nil, err
		}
	}
	sess.LastSeen = s.clock.Now()
	return newState(sess, form), nil
}

func (s *service) Get(ctx context.Context, id string) (*State, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	closed := ok && sess.Closed()
	var cp Session
	if ok {
		cp = sess.clone()
	}
	s.mu.Unlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if closed {
		return &State{Session: cp}, nil
	}
	return s.update(ctx, id, nil)
}

func (s *service) SetActive(ctx context.Context, id string, index int) (*State, error) {
	return s.update(ctx, id, func(sess *Session, f *forms.Form) error {
		sess.Active = clamp(index, len(f.Questions))
		return nil
	})
}

// Next advances unless the current question is required and unanswered.
// At the last question it does nothing.
func (s *service) Next(ctx context.Context, id string) (*State, error) {
	return s.update(ctx, id, func(sess *Session, f *forms.Form) error {
		if len(f.Questions) == 0 {
			return nil
		}
		q := f.Questions[sess.Active]
		if q.Required && sess.Answers[q.ID].IsEmpty() {
			return fmt.Errorf("%w: %s", ErrAnswerRequired, q.ID)
		}
		sess.Active = clamp(sess.Active+1, len(f.Questions))
		return nil
	})
}

func (s *service) Previous(ctx context.Context, id string) (*State, error) {
	return s.update(ctx, id, func(sess *Session, f *forms.Form) error {
		sess.Active = clamp(sess.Active-1, len(f.Questions))
		return nil
	})
}

// Answer records or replaces the answer to a question of the session's form.
// An empty value clears the answer.
func (s *service) Answer(ctx context.Context, id, questionID string, value responses.Answer) (*State, error) {
	return s.update(ctx, id, func(sess *Session, f *forms.Form) error {
		if f.QuestionByID(questionID) == nil {
			return forms.ErrQuestionNotFound
		}
		if value.IsEmpty() {
			delete(sess.Answers, questionID)
			return nil
		}
		sess.Answers[questionID] = value
		return nil
	})
}

// Submit turns the session into a stored response once every required
// question is answered. A refusal moves the session to the first unanswered
// required question. The response starts when the session began. A submitted
// session is closed; a failed submit leaves it open.
func (s *service) Submit(ctx context.Context, id string, md responses.Metadata) (*responses.FormResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, form, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}
	for i, q := range form.Questions {
		if q.Required && sess.Answers[q.ID].IsEmpty() {
			sess.Active = i
			return nil, fmt.Errorf("%w: %s", ErrAnswerRequired, q.ID)
		}
	}

	md.StartedAt = sess.StartedAt
	resp, err := s.submitter.Submit(ctx, responses.Draft{
		FormID:   sess.FormID,
		Answers:  sess.clone().Answers,
		Metadata: md,
	})
	if err != nil {
		return nil, err
	}

	sess.ResponseID = resp.ID
	sess.LastSeen = s.clock.Now()
	return resp, nil
}

func (s *service) Started(ctx context.Context) map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int, len(s.started))
	for k, v := range s.started {
		out[k] = v
	}
	return out
}
