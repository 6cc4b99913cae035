package responses

// Success wraps every 2xx JSON body.
type Success struct {
	Data any `json:"data"`
}

// APIError is the client-facing part of a failure.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// Failure wraps every error body.
type Failure struct {
	Error APIError `json:"error"`
}
