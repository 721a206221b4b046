package harness

// TraceEvent records one batch call and the outcome of each element.
type TraceEvent struct {
	Seq      int64            `json:"seq"`
	Op       string           `json:"op"`
	Access   string           `json:"access"`
	BatchID  string           `json:"batch_id,omitempty"`
	Elements []ElementOutcome `json:"elements,omitempty"`

	// Error is set when the whole call failed.
	Error string `json:"error,omitempty"`
}

// ElementOutcome is the success value or failure of one element.
type ElementOutcome struct {
	Index int           `json:"index"`
	OK    any           `json:"ok,omitempty"`
	Error *ErrorOutcome `json:"error,omitempty"`
}

// ErrorOutcome is a recorded per-element failure.
type ErrorOutcome struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every batch call in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
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

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addEvent appends ev to the trace.
func (r *Result) addEvent(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
