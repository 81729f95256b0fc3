package validation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestValidationErrorsAccumulate(t *testing.T) {
	var errs ValidationErrors
	if errs.HasErrors() {
		t.Fatal("empty collection should have no errors")
	}
	if errs.OrNil() != nil {
		t.Fatal("OrNil() on empty collection should be nil")
	}

	errs.Add("title", "required", "is required")
	errs.Merge(ValidationErrors{{Field: "title", Message: "is too long"}, {Message: "general"}})

	if !errs.HasErrors() {
		t.Fatal("HasErrors() = false, want true")
	}
	if got := errs.ForField("title"); len(got) != 2 {
		t.Errorf("ForField(title) = %v, want 2 messages", got)
	}
	if got := errs.Error(); got != "title: is required; title: is too long; general" {
		t.Errorf("Error() = %q", got)
	}
	if got := errs.AsMap()[""]; len(got) != 1 || got[0] != "general" {
		t.Errorf("AsMap()[\"\"] = %v", got)
	}
}

func TestAs(t *testing.T) {
	wrapped := fmt.Errorf("cannot create form: %w", ValidationErrors{{Field: "x", Message: "bad"}})

	verrs, ok := As(wrapped)
	if !ok {
		t.Fatal("As() did not find ValidationErrors")
	}
	if len(verrs) != 1 || verrs[0].Field != "x" {
		t.Errorf("As() = %v", verrs)
	}

	if _, ok := As(errors.New("plain")); ok {
		t.Error("As() matched a plain error")
	}
}

type sample struct {
	Name  string   `validate:"required"`
	Kind  string   `validate:"oneof=a b"`
	Items []string `validate:"max=1"`
}

func TestFromValidator(t *testing.T) {
	v := validator.New()
	err := v.Struct(sample{Kind: "c", Items: []string{"1", "2"}})

	errs := FromValidator(err)
	if len(errs) != 3 {
		t.Fatalf("FromValidator() returned %d errors, want 3: %v", len(errs), errs)
	}

	byField := errs.AsMap()
	if got := byField["Name"]; len(got) != 1 || got[0] != "is required" {
		t.Errorf("Name errors = %v", got)
	}
	if got := byField["Kind"]; len(got) != 1 || got[0] != "must be one of [a b]" {
		t.Errorf("Kind errors = %v", got)
	}
	if got := byField["Items"]; len(got) != 1 || got[0] != "must be at most 1" {
		t.Errorf("Items errors = %v", got)
	}
}

func TestFromValidatorNonFieldError(t *testing.T) {
	if FromValidator(nil) != nil {
		t.Error("FromValidator(nil) should be nil")
	}

	errs := FromValidator(errors.New("boom"))
	if len(errs) != 1 || errs[0].Message != "boom" {
		t.Errorf("FromValidator(plain) = %v", errs)
	}
}
