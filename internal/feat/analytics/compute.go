package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/cliossg/formkit/internal/feat/forms"
	"github.com/cliossg/formkit/internal/feat/responses"
)

const dateLayout = "2006-01-02"

// Compute builds the statistics of a form from its responses. started is the
// number of respondent sessions begun for the form; zero means unknown.
func Compute(form *forms.Form, list []*responses.FormResponse, started int) FormStats {
	stats := FormStats{
		FormID:          form.ID,
		TotalResponses:  len(list),
		StartedSessions: started,
		CompletionRate:  completionRate(len(list), started),
		ResponsesByDate: []DateCount{},
		Questions:       make([]QuestionStats, 0, len(form.Questions)),
		ResponseTimes:   make([]ResponseTime, 0, len(list)),
	}

	var total int64
	byDate := make(map[string]int)
	for _, r := range list {
		secs := int64(r.Duration() / time.Second)
		total += secs
		stats.ResponseTimes = append(stats.ResponseTimes, ResponseTime{
			ResponseID:  r.ID,
			CompletedAt: r.Metadata.CompletedAt,
			Seconds:     secs,
		})

		byDate[r.Metadata.CompletedAt.UTC().Format(dateLayout)]++

		if last := stats.LastResponseAt; last == nil || r.Metadata.CompletedAt.After(*last) {
			at := r.Metadata.CompletedAt
			stats.LastResponseAt = &at
		}
	}
	if len(list) > 0 {
		stats.AverageSeconds = float64(total) / float64(len(list))
	}

	for date, n := range byDate {
		stats.ResponsesByDate = append(stats.ResponsesByDate, DateCount{Date: date, Count: n})
	}
	sort.Slice(stats.ResponsesByDate, func(i, j int) bool {
		return stats.ResponsesByDate[i].Date < stats.ResponsesByDate[j].Date
	})

	for i := range form.Questions {
		stats.Questions = append(stats.Questions, questionStats(&form.Questions[i], list))
	}
	return stats
}

// completionRate is completed/started as a percentage, capped at 100. Without
// a known start count every stored response counts as a completion.
func completionRate(completed, started int) float64 {
	if completed == 0 {
		return 0
	}
	if started <= 0 {
		return 100
	}
	rate := float64(completed) / float64(started) * 100
	if rate > 100 {
		return 100
	}
	return rate
}

// questionStats counts answers to q. Each element of a multi-valued answer
// counts once. Choice questions report every choice in order by label, even
// unanswered ones; other questions report observed answers by count.
func questionStats(q *forms.Question, list []*responses.FormResponse) QuestionStats {
	qs := QuestionStats{
		QuestionID: q.ID,
		Title:      q.Title,
		Type:       string(q.Type),
		Answers:    []AnswerCount{},
	}

	counts := make(map[string]int)
	for _, r := range list {
		a, ok := r.Answers[q.ID]
		if !ok || a.IsEmpty() {
			continue
		}
		qs.Answered++
		for _, v := range a.Values() {
			counts[v]++
		}
	}

	if q.Type.IsChoice() && len(q.Choices) > 0 {
		for _, c := range q.Choices {
			qs.Answers = append(qs.Answers, AnswerCount{Answer: c.Label, Count: counts[c.Value]})
		}
		return qs
	}

	for answer, n := range counts {
		qs.Answers = append(qs.Answers, AnswerCount{Answer: answer, Count: n})
	}
	sort.Slice(qs.Answers, func(i, j int) bool {
		a, b := qs.Answers[i], qs.Answers[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Answer < b.Answer
	})
	return qs
}

// Dashboard builds the rows for forms whose title or description contains q,
// ignoring case. counts maps form ids to response totals. The totals cover
// every form, matched or not.
func Dashboard(list []*forms.Form, counts map[string]int, q string) Overview {
	d := Overview{Forms: []FormSummary{}}
	q = strings.ToLower(strings.TrimSpace(q))

	for _, f := range list {
		d.TotalForms++
		d.TotalResponses += counts[f.ID]

		if q != "" && !strings.Contains(strings.ToLower(f.Title), q) &&
			!strings.Contains(strings.ToLower(f.Description), q) {
			continue
		}
		d.Forms = append(d.Forms, FormSummary{
			ID:            f.ID,
			Title:         f.Title,
			Description:   f.Description,
			QuestionCount: len(f.Questions),
			ResponseCount: counts[f.ID],
			UpdatedAt:     f.UpdatedAt,
		})
	}
	return d
}
