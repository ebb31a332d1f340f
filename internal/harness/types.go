package harness

import "github.com/roach88/docsql/internal/codec"

// TraceEvent records the outcome of one flow step.
type TraceEvent struct {
	Step    int            `json:"step"`
	Op      string         `json:"op"`
	Store   string         `json:"store,omitempty"`
	Scope   string         `json:"scope,omitempty"`
	Key     any            `json:"key,omitempty"`
	Keys    []any          `json:"keys,omitempty"`
	Found   *bool          `json:"found,omitempty"`
	Count   *int           `json:"count,omitempty"`
	Records []codec.Record `json:"records,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per executed step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
