package types

// SuccessEnvelope is the body of every successful response.
type SuccessEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope carries the error under data so clients read one shape.
type ErrorEnvelope struct {
	Success bool     `json:"success"`
	Data    APIError `json:"data"`
}
