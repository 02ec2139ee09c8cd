package inference

import "fmt"

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("inference %s error (status %d): %s", e.Endpoint, e.Code, e.Body)
}

// InvalidResponseError is returned when a response body is not valid JSON or
// does not match the endpoint's schema.
type InvalidResponseError struct {
	Endpoint string
	Body     []byte
	Err      error
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid inference %s response: %v", e.Endpoint, e.Err)
}

func (e *InvalidResponseError) Unwrap() error { return e.Err }
