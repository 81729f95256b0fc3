package responses

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Answer is a response to one question: a single text value or, for
// multiple-choice questions, a list of values.
type Answer struct {
	text  string
	list  []string
	multi bool
}

// Text returns a single-valued answer.
func Text(s string) Answer {
	return Answer{text: s}
}

// Choices returns a multi-valued answer.
func Choices(values ...string) Answer {
	return Answer{list: append([]string{}, values...), multi: true}
}

func (a Answer) IsMulti() bool { return a.multi }

// IsEmpty reports whether the answer holds no value: "" or an empty list.
func (a Answer) IsEmpty() bool {
	if a.multi {
		return len(a.list) == 0
	}
	return a.text == ""
}

// Values returns the answer as a list. An empty text answer has no values.
func (a Answer) Values() []string {
	if a.multi {
		return append([]string(nil), a.list...)
	}
	if a.text == "" {
		return nil
	}
	return []string{a.text}
}

// String joins multiple values with "; ".
func (a Answer) String() string {
	if a.multi {
		return strings.Join(a.list, "; ")
	}
	return a.text
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if a.multi {
		if a.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.list)
	}
	return json.Marshal(a.text)
}

// UnmarshalJSON accepts a string, a number, a boolean, null or an array of
// those. Numbers and booleans keep their JSON text; null is empty.
func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		list := make([]string, 0, len(raw))
		for _, r := range raw {
			s, err := scalar(r)
			if err != nil {
				return err
			}
			list = append(list, s)
		}
		*a = Answer{list: list, multi: true}
		return nil
	}

	s, err := scalar(data)
	if err != nil {
		return err
	}
	*a = Answer{text: s}
	return nil
}

func scalar(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", fmt.Errorf("empty answer value")
	}
	switch data[0] {
	case '"':
		var s string
		err := json.Unmarshal(data, &s)
		return s, err
	case 'n':
		if string(data) == "null" {
			return "", nil
		}
	case 't', 'f':
		b, err := strconv.ParseBool(string(data))
		if err == nil {
			return strconv.FormatBool(b), nil
		}
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err == nil {
			return n.String(), nil
		}
	}
	return "", fmt.Errorf("unsupported answer value %s", data)
}

type Metadata struct {
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`
	UserAgent   string    `json:"userAgent,omitempty"`
	IPAddress   string    `json:"ipAddress,omitempty"`
	Referrer    string    `json:"referrer,omitempty"`
}

// FormResponse is one completed submission. It never changes once stored.
type FormResponse struct {
	ID       string            `json:"id"`
	FormID   string            `json:"formId"`
	Answers  map[string]Answer `json:"answers"`
	Metadata Metadata          `json:"metadata"`
}

// Draft is a response before it is stored. Zero timestamps are filled in on submit.
type Draft struct {
	FormID   string            `json:"formId"`
	Answers  map[string]Answer `json:"answers"`
	Metadata Metadata          `json:"metadata"`
}

// Clone returns a deep copy of the response.
func (r FormResponse) Clone() FormResponse {
	out := r
	out.Answers = cloneAnswers(r.Answers)
	return out
}

func cloneAnswers(in map[string]Answer) map[string]Answer {
	out := make(map[string]Answer, len(in))
	for k, v := range in {
		if v.multi {
			v.list = append([]string{}, v.list...)
		}
		out[k] = v
	}
	return out
}

// Duration is the time from start to completion.
func (r FormResponse) Duration() time.Duration {
	return r.Metadata.CompletedAt.Sub(r.Metadata.StartedAt)
}
