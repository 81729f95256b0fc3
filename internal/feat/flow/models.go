package flow

import (
	"time"

	"github.com/cliossg/formkit/internal/feat/forms"
	"github.com/cliossg/formkit/internal/feat/responses"
)

// Session tracks one respondent moving through a form a question at a time.
type Session struct {
	ID         string                      `json:"id"`
	FormID     string                      `json:"formId"`
	Active     int                         `json:"activeQuestionIndex"`
	Answers    map[string]responses.Answer `json:"answers"`
	StartedAt  time.Time                   `json:"startedAt"`
	LastSeen   time.Time                   `json:"lastSeen"`
	ResponseID string                      `json:"responseId,omitempty"`
}

// Closed reports whether the session was already submitted.
func (s *Session) Closed() bool {
	return s.ResponseID != ""
}

func (s *Session) clone() Session {
	out := *s
	out.Answers = make(map[string]responses.Answer, len(s.Answers))
	for k, v := range s.Answers {
		out.Answers[k] = v
	}
	return out
}

// State is a session together with what the respondent sees at its active index.
type State struct {
	Session
	Total    int             `json:"totalQuestions"`
	Progress int             `json:"progress"`
	Question *forms.Question `json:"question,omitempty"`
	IsFirst  bool            `json:"isFirst"`
	IsLast   bool            `json:"isLast"`
}

func newState(s *Session, f *forms.Form) *State {
	st := &State{
		Session: s.clone(),
		Total:   len(f.Questions),
		IsFirst: s.Active == 0,
		IsLast:  s.Active >= len(f.Questions)-1,
	}
	if st.Total > 0 {
		q := f.Questions[s.Active].Clone()
		st.Question = &q
		st.Progress = (s.Active + 1) * 100 / st.Total
	}
	return st
}

// clamp bounds i to the question indexes of a form with n questions.
// An empty form keeps index 0.
func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}
