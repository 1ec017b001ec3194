package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// PagedEnvelope carries one page of results next to its pagination metadata.
type PagedEnvelope struct {
	Data       any `json:"data"`
	Pagination any `json:"pagination"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
