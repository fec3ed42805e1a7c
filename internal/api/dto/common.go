package dto

// ErrorResponse is the single-error shape every failed action returns.
// Success and error are mutually exclusive: a response carries one or the
// other, never both.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

type SuccessResponse struct {
	Success string `json:"success"`
}
