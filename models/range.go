package models

import "time"

// Range - полуоткрытый интервал [From, To). Нулевой To означает отсутствие верхней границы.
type Range struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (r Range) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

func (r Range) UTC() Range {
	return Range{From: r.From.UTC(), To: r.To.UTC()}
}
