package responses

// Envelope wraps every successful storefront payload.
type Envelope struct {
	Data any `json:"data"`
}

// ErrorBody is the public shape of a failure. Retryable tells the Discord
// bot whether showing a "try again" button makes sense.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Details   any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}
