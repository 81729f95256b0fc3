package fake

import (
	"context"
	"errors"
	"testing"

	"github.com/cliossg/formkit/internal/feat/forms"
)

func TestServiceImplementsInterface(t *testing.T) {
	var _ forms.Service = (*Service)(nil)
}

func TestServiceCreateAndGet(t *testing.T) {
	s := NewService()
	ctx := context.Background()

	f, err := s.CreateForm(ctx, forms.FormDraft{Title: "Poll"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.GetForm(ctx, f.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != "Poll" {
		t.Errorf("got title %q, want %q", got.Title, "Poll")
	}
	if len(s.CreateFormCalls) != 1 {
		t.Errorf("got %d create calls, want 1", len(s.CreateFormCalls))
	}
}

func TestServiceGetMissing(t *testing.T) {
	s := NewService()
	if _, err := s.GetForm(context.Background(), "nope"); !errors.Is(err, forms.ErrFormNotFound) {
		t.Errorf("got %v, want ErrFormNotFound", err)
	}
}
