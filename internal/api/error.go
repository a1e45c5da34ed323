package api

// HTTPError carries the status and client-facing message of a failed handler.
// ErrorLog is logged and never sent to the client.
type HTTPError struct {
	StatusCode int
	Message    string
	ErrorLog   error
}

func (e *HTTPError) Error() string {
	return e.Message
}

type ApiError struct {
	Error string `json:"message"`
}
