package core

import (
	"sort"
	"time"
)

// SourceStatus is the outcome of one connector in a run.
type SourceStatus struct {
	Name     string             `json:"name"`
	Items    int                `json:"items"`
	OK       bool               `json:"ok"`
	Kind     ConnectorErrorKind `json:"kind,omitempty"`
	Error    string             `json:"error,omitempty"`
	Duration time.Duration      `json:"duration"`
}

// RunReport accumulates run-level counters. It is owned by the orchestrating
// goroutine and handed explicitly to each stage; it is not safe for concurrent use.
type RunReport struct {
	Sources          []SourceStatus           `json:"sources"`
	RawItems         int                      `json:"raw_items"`
	Skipped          map[SkipReason]int       `json:"skipped"`
	ExactDuplicates  int                      `json:"exact_duplicates"`
	Undated          int                      `json:"undated"`
	Articles         int                      `json:"articles"`
	Clusters         int                      `json:"clusters"`
	TopicExcluded    int                      `json:"topic_excluded"`
	Selected         int                      `json:"selected"`
	TextsExtracted   int                      `json:"texts_extracted"`
	TextsFallback    int                      `json:"texts_fallback"`
	SummariesOK      int                      `json:"summaries_ok"`
	SummariesFailed  int                      `json:"summaries_failed"`
	SummariesSkipped int                      `json:"summaries_skipped"`
	SummariesCached  int                      `json:"summaries_cached"`
	Errors           []error                  `json:"-"`
	Timings          map[string]time.Duration `json:"timings"`
}

// NewRunReport returns an empty report.
func NewRunReport() *RunReport {
	return &RunReport{
		Skipped: make(map[SkipReason]int),
		Timings: make(map[string]time.Duration),
	}
}

// AddSkip counts one skipped raw item.
func (r *RunReport) AddSkip(reason SkipReason) {
	r.Skipped[reason]++
}

// TotalSkipped sums skips over every reason.
func (r *RunReport) TotalSkipped() int {
	total := 0
	for _, n := range r.Skipped {
		total += n
	}
	return total
}

// AddError records a non-fatal error.
func (r *RunReport) AddError(err error) {
	if err != nil {
		r.Errors = append(r.Errors, err)
	}
}

// ErrorMessages returns the recorded errors as strings, in recording order.
func (r *RunReport) ErrorMessages() []string {
	out := make([]string, 0, len(r.Errors))
	for _, err := range r.Errors {
		out = append(out, err.Error())
	}
	return out
}

// Time records the duration of a stage that started at start.
func (r *RunReport) Time(stage string, start time.Time) {
	r.Timings[stage] += time.Since(start)
}

// FailedSources returns the names of sources that failed, sorted.
func (r *RunReport) FailedSources() []string {
	var names []string
	for _, s := range r.Sources {
		if !s.OK {
			names = append(names, s.Name)
		}
	}
	sort.Strings(names)
	return names
}
