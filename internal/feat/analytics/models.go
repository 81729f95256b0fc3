package analytics

import "time"

// FormStats summarizes the responses collected for one form.
type FormStats struct {
	FormID          string          `json:"formId"`
	TotalResponses  int             `json:"totalResponses"`
	StartedSessions int             `json:"startedSessions"`
	CompletionRate  float64         `json:"completionRate"`
	AverageSeconds  float64         `json:"averageSeconds"`
	LastResponseAt  *time.Time      `json:"lastResponseAt,omitempty"`
	ResponsesByDate []DateCount     `json:"responsesByDate"`
	Questions       []QuestionStats `json:"questions"`
	ResponseTimes   []ResponseTime  `json:"responseTimes"`
}

type DateCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// QuestionStats counts the answers given to one question.
type QuestionStats struct {
	QuestionID string        `json:"questionId"`
	Title      string        `json:"title"`
	Type       string        `json:"type"`
	Answered   int           `json:"answered"`
	Answers    []AnswerCount `json:"answers"`
}

type AnswerCount struct {
	Answer string `json:"answer"`
	Count  int    `json:"count"`
}

type ResponseTime struct {
	ResponseID  string    `json:"responseId"`
	CompletedAt time.Time `json:"completedAt"`
	Seconds     int64     `json:"seconds"`
}

// FormSummary is one dashboard row.
type FormSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	QuestionCount int       `json:"questionCount"`
	ResponseCount int       `json:"responseCount"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Overview lists forms with their totals.
type Overview struct {
	TotalForms     int           `json:"totalForms"`
	TotalResponses int           `json:"totalResponses"`
	Forms          []FormSummary `json:"forms"`
}
