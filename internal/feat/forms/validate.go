package forms

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/cliossg/formkit/pkg/cl/validation"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("questiontype", func(fl validator.FieldLevel) bool {
			return QuestionType(fl.Field().String()).Valid()
		})
		validate = v
	})
	return validate
}

// Validate runs the structural checks on a form: required fields, known
// question types, unique question ids, unique choice ids and values within
// each question, min not above max and compilable patterns.
// Answers are never checked here.
func Validate(f *Form) error {
	var errs validation.ValidationErrors
	if err := structValidator().Struct(f); err != nil {
		errs = validation.FromValidator(err)
	}

	seen := make(map[string]bool, len(f.Questions))
	for i := range f.Questions {
		q := &f.Questions[i]
		path := fmt.Sprintf("questions[%d]", i)
		if q.ID != "" {
			if seen[q.ID] {
				errs.Add(path+".id", "unique", fmt.Sprintf("duplicate question id %q", q.ID))
			}
			seen[q.ID] = true
		}
		errs.Merge(validateQuestion(q, path))
	}

	return errs.OrNil()
}

func validateQuestion(q *Question, path string) validation.ValidationErrors {
	var errs validation.ValidationErrors

	ids := make(map[string]bool, len(q.Choices))
	values := make(map[string]bool, len(q.Choices))
	for j, c := range q.Choices {
		cpath := fmt.Sprintf("%s.choices[%d]", path, j)
		if c.ID != "" {
			if ids[c.ID] {
				errs.Add(cpath+".id", "unique", fmt.Sprintf("duplicate choice id %q", c.ID))
			}
			ids[c.ID] = true
		}
		if c.Value != "" {
			if values[c.Value] {
				errs.Add(cpath+".value", "unique", fmt.Sprintf("duplicate choice value %q", c.Value))
			}
			values[c.Value] = true
		}
	}

	if v := q.Validation; v != nil {
		if v.Min != nil && v.Max != nil && *v.Min > *v.Max {
			errs.Add(path+".validation.min", "lte", "must not be greater than max")
		}
		if v.Pattern != "" {
			if _, err := regexp.Compile(v.Pattern); err != nil {
				errs.Add(path+".validation.pattern", "regexp", "is not a valid regular expression")
			}
		}
	}

	return errs
}
