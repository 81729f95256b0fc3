package responses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cliossg/formkit/internal/feat/forms"
	"github.com/cliossg/formkit/pkg/cl/kv"
	"github.com/cliossg/formkit/pkg/cl/logger"
	"github.com/cliossg/formkit/pkg/cl/metrics"
	"github.com/cliossg/formkit/pkg/cl/model"
)

// StoreKey is the key holding the serialized response collection.
const StoreKey = "responses"

var (
	ErrResponseNotFound = errors.New("response not found")
	ErrAlreadySubmitted = errors.New("a response from this address was already recorded")
)

// FormLookup resolves the form a response is submitted to.
type FormLookup interface {
	GetForm(ctx context.Context, id string) (*forms.Form, error)
}

// Service captures and lists form responses.
type Service interface {
	Start(ctx context.Context) error
	Submit(ctx context.Context, draft Draft) (*FormResponse, error)
	List(ctx context.Context, formID string) ([]*FormResponse, error)
	ListAll(ctx context.Context) ([]*FormResponse, error)
	Get(ctx context.Context, id string) (*FormResponse, error)
	Count(ctx context.Context, formID string) int
	Counts(ctx context.Context) map[string]int
}

// Option configures the service.
type Option func(*service)

// WithClock replaces the system clock.
func WithClock(c model.Clock) Option {
	return func(s *service) { s.clock = c }
}

type service struct {
	mu        sync.RWMutex
	responses []FormResponse

	forms FormLookup
	store kv.Store
	clock model.Clock
	rec   metrics.Recorder
	log   logger.Logger
}

// NewService creates the response store.
func NewService(store kv.Store, forms FormLookup, rec metrics.Recorder, log logger.Logger, opts ...Option) Service {
	if rec == nil {
		rec = metrics.NewNoop()
	}
	s := &service{
		forms: forms,
		store: store,
		clock: model.SystemClock(),
		rec:   rec,
		log:   log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start hydrates the collection. A missing, unreadable or corrupt snapshot
// starts empty.
func (s *service) Start(ctx context.Context) error {
	loaded := s.load(ctx)

	s.mu.Lock()
	s.responses = loaded
	s.mu.Unlock()

	s.log.Infof("Responses service started with %d responses", len(loaded))
	return nil
}

func (s *service) load(ctx context.Context) []FormResponse {
	raw, ok, err := s.store.Get(ctx, StoreKey)
	if err != nil {
		s.log.Errorf("cannot read saved responses, starting empty: %v", err)
		return []FormResponse{}
	}
	if !ok {
		return []FormResponse{}
	}

	var loaded []FormResponse
	if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
		s.log.Errorf("Failed to parse saved responses, starting empty: %v", err)
		return []FormResponse{}
	}
	for i := range loaded {
		if loaded[i].Answers == nil {
			loaded[i].Answers = map[string]Answer{}
		}
	}
	return loaded
}

// Submit stores a new response for an existing form. CompletedAt defaults to
// now and StartedAt to CompletedAt. Forms that disallow multiple submissions
// reject a second response carrying the same address.
func (s *service) Submit(ctx context.Context, draft Draft) (*FormResponse, error) {
	form, err := s.forms.GetForm(ctx, draft.FormID)
	if err != nil {
		return nil, err
	}

	resp := FormResponse{
		ID:       model.NewID(),
		FormID:   form.ID,
		Answers:  cloneAnswers(draft.Answers),
		Metadata: draft.Metadata,
	}
	md := &resp.Metadata
	if md.CompletedAt.IsZero() {
		md.CompletedAt = s.clock.Now()
	}
	if md.StartedAt.IsZero() || md.StartedAt.After(md.CompletedAt) {
		md.StartedAt = md.CompletedAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !form.Settings.AllowMultipleSubmissions && md.IPAddress != "" {
		for _, existing := range s.responses {
			if existing.FormID == form.ID && existing.Metadata.IPAddress == md.IPAddress {
				return nil, ErrAlreadySubmitted
			}
		}
	}

	next := make([]FormResponse, len(s.responses), len(s.responses)+1)
	copy(next, s.responses)
	next = append(next, resp.Clone())

	data, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("cannot encode responses: %w", err)
	}
	if err := s.store.Set(ctx, StoreKey, string(data)); err != nil {
		s.rec.PersistFailure(StoreKey)
		s.log.Errorf("cannot save responses: %v", err)
		return nil, fmt.Errorf("cannot save responses: %w", err)
	}

	s.responses = next
	s.rec.StoreMutation(StoreKey, "submit")
	s.rec.ResponseSubmitted(form.ID)
	return &resp, nil
}

// List returns the responses for formID in submission order.
func (s *service) List(ctx context.Context, formID string) ([]*FormResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*FormResponse, 0)
	for _, r := range s.responses {
		if r.FormID == formID {
			c := r.Clone()
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *service) ListAll(ctx context.Context) ([]*FormResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*FormResponse, 0, len(s.responses))
	for _, r := range s.responses {
		c := r.Clone()
		out = append(out, &c)
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id string) (*FormResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.responses {
		if r.ID == id {
			c := r.Clone()
			return &c, nil
		}
	}
	return nil, ErrResponseNotFound
}

func (s *service) Count(ctx context.Context, formID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, r := range s.responses {
		if r.FormID == formID {
			n++
		}
	}
	return n
}

// Counts returns the number of responses per form id.
func (s *service) Counts(ctx context.Context) map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, r := range s.responses {
		counts[r.FormID]++
	}
	return counts
}
