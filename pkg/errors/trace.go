package errors

import (
	stdErrors "errors"
	"fmt"
)

// Trace summarises an error for the request log: the outer message, the typed code and
// every wrapped layer.
type Trace struct {
	Message string
	Code    Code
	Step    string
	Chain   []string
}

// TraceOf walks err's chain. Step is taken from a "step" entry in the details of the
// outermost typed error, when present.
func TraceOf(err error) Trace {
	if err == nil {
		return Trace{}
	}
	t := Trace{Message: err.Error(), Code: CodeInternal}
	if typed := As(err); typed != nil {
		t.Code = typed.Code()
		switch d := typed.Details().(type) {
		case map[string]any:
			if step, ok := d["step"].(string); ok {
				t.Step = step
			}
		case map[string]string:
			t.Step = d["step"]
		}
	}
	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		t.Chain = append(t.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	return t
}

// Fields returns the trace as log fields.
func (t Trace) Fields() map[string]any {
	fields := map[string]any{
		"error":       t.Message,
		"error_code":  string(t.Code),
		"error_chain": t.Chain,
	}
	if t.Step != "" {
		fields["step"] = t.Step
	}
	return fields
}
