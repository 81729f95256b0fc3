package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cliossg/formkit/internal/feat/forms"
	"github.com/cliossg/formkit/internal/feat/forms/fake"
	"github.com/cliossg/formkit/internal/feat/responses"
	"github.com/cliossg/formkit/pkg/cl/logger"
	"github.com/cliossg/formkit/pkg/cl/model"
)

var epoch = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type recordingSubmitter struct {
	drafts []responses.Draft
	err    error
}

func (r *recordingSubmitter) Submit(_ context.Context, d responses.Draft) (*responses.FormResponse, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.drafts = append(r.drafts, d)
	return &responses.FormResponse{ID: "r1", FormID: d.FormID, Answers: d.Answers, Metadata: d.Metadata}, nil
}

func testForms() *fake.Service {
	return fake.NewService(
		&forms.Form{ID: "f1", Title: "Signup", Settings: forms.DefaultSettings(), Questions: []forms.Question{
			{ID: "q1", Type: forms.TypeText, Title: "Name", Required: true},
			{ID: "q2", Type: forms.TypeEmail, Title: "Email"},
			{ID: "q3", Type: forms.TypeMultipleChoice, Title: "Topics", Required: true},
		}},
		&forms.Form{ID: "empty", Title: "Empty", Settings: forms.DefaultSettings()},
	)
}

func newTestService(t *testing.T) (Service, *fake.Service, *recordingSubmitter) {
	t.Helper()
	fs := testForms()
	sub := &recordingSubmitter{}
	s := NewService(fs, sub, time.Hour, logger.NewNoopLogger(), WithClock(model.NewStepClock(epoch, time.Second)))
	return s, fs, sub
}

func TestBegin(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	st, err := s.Begin(ctx, "f1")
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if st.Active != 0 || st.Total != 3 || st.Question == nil || st.Question.ID != "q1" {
		t.Errorf("state = %+v", st)
	}
	if !st.IsFirst || st.IsLast || st.Progress != 33 {
		t.Errorf("IsFirst = %v, IsLast = %v, Progress = %d", st.IsFirst, st.IsLast, st.Progress)
	}
	if !st.StartedAt.Equal(epoch) {
		t.Errorf("StartedAt = %v, want %v", st.StartedAt, epoch)
	}

	if _, err := s.Begin(ctx, "missing"); !errors.Is(err, forms.ErrFormNotFound) {
		t.Errorf("Begin(missing) error = %v, want ErrFormNotFound", err)
	}

	s.Begin(ctx, "f1")
	s.Begin(ctx, "empty")
	started := s.Started(ctx)
	if started["f1"] != 2 || started["empty"] != 1 {
		t.Errorf("Started() = %v", started)
	}
}

func TestNavigationStaysInBounds(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	st, _ := s.Begin(ctx, "f1")
	id := st.ID

	tests := []struct {
		name string
		op   func() (*State, error)
		want int
	}{
		{"previous at start", func() (*State, error) { return s.Previous(ctx, id) }, 0},
		{"set beyond end clamps", func() (*State, error) { return s.SetActive(ctx, id, 10) }, 2},
		{"next at end", func() (*State, error) {
			s.Answer(ctx, id, "q3", responses.Choices("go"))
			return s.Next(ctx, id)
		}, 2},
		{"set negative clamps", func() (*State, error) { return s.SetActive(ctx, id, -4) }, 0},
		{"set inside range", func() (*State, error) { return s.SetActive(ctx, id, 1) }, 1},
		{"next past optional", func() (*State, error) { return s.Next(ctx, id) }, 2},
		{"previous", func() (*State, error) { return s.Previous(ctx, id) }, 1},
	}
	for _, tt := range tests {
		st, err := tt.op()
		if err != nil {
			t.Fatalf("%s: error = %v", tt.name, err)
		}
		if st.Active != tt.want {
			t.Errorf("%s: Active = %d, want %d", tt.name, st.Active, tt.want)
		}
	}
}

func TestEmptyFormKeepsIndexZero(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	st, _ := s.Begin(ctx, "empty")

	for _, op := range []func() (*State, error){
		func() (*State, error) { return s.Next(ctx, st.ID) },
		func() (*State, error) { return s.Previous(ctx, st.ID) },
		func() (*State, error) { return s.SetActive(ctx, st.ID, 3) },
	} {
		got, err := op()
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		if got.Active != 0 || got.Question != nil || got.Progress != 0 {
			t.Errorf("state = %+v", got)
		}
	}
}

func TestNextRequiresAnswer(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	st, _ := s.Begin(ctx, "f1")

	if _, err := s.Next(ctx, st.ID); !errors.Is(err, ErrAnswerRequired) {
		t.Fatalf("Next() error = %v, want ErrAnswerRequired", err)
	}

	if _, err := s.Answer(ctx, st.ID, "q1", responses.Text("Ada")); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	got, err := s.Next(ctx, st.ID)
	if err != nil || got.Active != 1 {
		t.Fatalf("Next() = %+v, %v", got, err)
	}

	// Clearing the answer makes the question unanswered again
	s.Answer(ctx, st.ID, "q1", responses.Text(""))
	s.Previous(ctx, st.ID)
	if _, err := s.Next(ctx, st.ID); !errors.Is(err, ErrAnswerRequired) {
		t.Errorf("Next() after clearing error = %v, want ErrAnswerRequired", err)
	}

	if _, err := s.Answer(ctx, st.ID, "nope", responses.Text("x")); !errors.Is(err, forms.ErrQuestionNotFound) {
		t.Errorf("Answer(unknown) error = %v, want ErrQuestionNotFound", err)
	}
}

func TestSubmit(t *testing.T) {
	s, _, sub := newTestService(t)
	ctx := context.Background()
	st, _ := s.Begin(ctx, "f1")

	s.Answer(ctx, st.ID, "q1", responses.Text("Ada"))
	_, err := s.Submit(ctx, st.ID, responses.Metadata{})
	if !errors.Is(err, ErrAnswerRequired) {
		t.Fatalf("Submit() error = %v, want ErrAnswerRequired", err)
	}
	if len(sub.drafts) != 0 {
		t.Fatal("incomplete session reached the response store")
	}
	got, _ := s.Get(ctx, st.ID)
	if got.Active != 2 {
		t.Errorf("Active after refused submit = %d, want 2", got.Active)
	}

	s.Answer(ctx, st.ID, "q3", responses.Choices("go", "rust"))
	resp, err := s.Submit(ctx, st.ID, responses.Metadata{UserAgent: "test", StartedAt: epoch.Add(time.Hour)})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if resp.ID != "r1" || len(sub.drafts) != 1 {
		t.Fatalf("resp = %+v, drafts = %d", resp, len(sub.drafts))
	}
	d := sub.drafts[0]
	if d.FormID != "f1" || d.Metadata.UserAgent != "test" {
		t.Errorf("draft = %+v", d)
	}
	if !d.Metadata.StartedAt.Equal(epoch) {
		t.Errorf("StartedAt = %v, want session start %v", d.Metadata.StartedAt, epoch)
	}
	if d.Answers["q1"].String() != "Ada" || d.Answers["q3"].String() != "go; rust" {
		t.Errorf("answers = %v", d.Answers)
	}

	if _, err := s.Next(ctx, st.ID); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Next() after submit error = %v, want ErrSessionClosed", err)
	}
	if _, err := s.Submit(ctx, st.ID, responses.Metadata{}); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("second Submit() error = %v, want ErrSessionClosed", err)
	}
	closed, err := s.Get(ctx, st.ID)
	if err != nil || closed.ResponseID != "r1" {
		t.Errorf("Get() after submit = %+v, %v", closed, err)
	}
}

func TestSubmitFailureKeepsSessionOpen(t *testing.T) {
	s, _, sub := newTestService(t)
	ctx := context.Background()
	st, _ := s.Begin(ctx, "empty")

	sub.err = responses.ErrAlreadySubmitted
	if _, err := s.Submit(ctx, st.ID, responses.Metadata{}); !errors.Is(err, responses.ErrAlreadySubmitted) {
		t.Fatalf("Submit() error = %v", err)
	}

	sub.err = nil
	if _, err := s.Submit(ctx, st.ID, responses.Metadata{}); err != nil {
		t.Errorf("retry Submit() error = %v", err)
	}
}

func TestSessionFollowsFormChanges(t *testing.T) {
	s, fs, _ := newTestService(t)
	ctx := context.Background()
	st, _ := s.Begin(ctx, "f1")
	s.SetActive(ctx, st.ID, 2)

	fs.Forms[0].Questions = fs.Forms[0].Questions[:1]
	got, err := s.Get(ctx, st.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Active != 0 || got.Total != 1 {
		t.Errorf("Active = %d, Total = %d", got.Active, got.Total)
	}
}

func TestSweepExpiresIdleSessions(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	st, _ := s.Begin(ctx, "f1")

	svc := s.(*service)
	if n := svc.sweep(epoch.Add(30 * time.Minute)); n != 0 {
		t.Errorf("sweep() removed %d sessions before the TTL", n)
	}
	if n := svc.sweep(epoch.Add(2 * time.Hour)); n != 1 {
		t.Errorf("sweep() removed %d sessions, want 1", n)
	}
	if _, err := s.Get(ctx, st.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() error = %v, want ErrSessionNotFound", err)
	}
	// Started counts outlive the sessions
	if s.Started(ctx)["f1"] != 1 {
		t.Error("Started() lost the expired session")
	}
}

func TestStartStop(t *testing.T) {
	s, _, _ := newTestService(t)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}
