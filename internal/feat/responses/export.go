package responses

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cliossg/formkit/internal/feat/forms"
)

// WriteCSV writes one row per response: id, startedAt, completedAt, then one
// column per question in form order, headed by the question title.
// Choice answers are written as their choice labels; multiple values are
// joined with "; ".
func WriteCSV(w io.Writer, form *forms.Form, responses []*FormResponse) error {
	cw := csv.NewWriter(w)

	header := []string{"id", "startedAt", "completedAt"}
	for _, q := range form.Questions {
		header = append(header, q.Title)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("cannot write csv header: %w", err)
	}

	for _, r := range responses {
		row := []string{
			r.ID,
			r.Metadata.StartedAt.UTC().Format(time.RFC3339),
			r.Metadata.CompletedAt.UTC().Format(time.RFC3339),
		}
		for i := range form.Questions {
			row = append(row, cell(&form.Questions[i], r.Answers[form.Questions[i].ID]))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("cannot write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func cell(q *forms.Question, a Answer) string {
	if len(q.Choices) == 0 {
		return a.String()
	}
	values := a.Values()
	labels := make([]string, len(values))
	for i, v := range values {
		labels[i] = q.ChoiceLabel(v)
	}
	return strings.Join(labels, "; ")
}
