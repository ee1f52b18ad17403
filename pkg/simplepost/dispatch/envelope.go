package dispatch

import (
	"errors"
	"time"

	"github.com/simplepost/simplepost/pkg/simplepost"
)

// Envelope is the uniform reply shape for every request/reply command.
type Envelope struct {
	Success    bool      `json:"success"`
	Data       any       `json:"data"`
	Message    string    `json:"message"`
	Path       string    `json:"path"`
	StatusCode int       `json:"statusCode"`
	Timestamp  time.Time `json:"timestamp"`
	Error      string    `json:"error,omitempty"`
}

// Error category tags carried on failure envelopes.
const (
	ErrorTagInvalidInput = "InvalidInput"
	ErrorTagNotFound     = "NotFound"
	ErrorTagUnauthorized = "Unauthorized"
	ErrorTagInternal     = "InternalServerError"
)

func successEnvelope(data any, message, path string, statusCode int) *Envelope {
	return &Envelope{
		Success:    true,
		Data:       data,
		Message:    message,
		Path:       path,
		StatusCode: statusCode,
		Timestamp:  time.Now().UTC(),
	}
}

func errorEnvelope(err error, path string) *Envelope {
	status, tag := classify(err)

	message := err.Error()
	if tag == ErrorTagInternal {
		// Internal details never cross the wire.
		message = "internal server error"
	}

	return &Envelope{
		Success:    false,
		Message:    message,
		Path:       path,
		StatusCode: status,
		Timestamp:  time.Now().UTC(),
		Error:      tag,
	}
}

// classify maps the service error taxonomy to an HTTP-style status and a
// category tag.
func classify(err error) (int, string) {
	var invalid *simplepost.InvalidInputError
	if errors.As(err, &invalid) {
		return 400, ErrorTagInvalidInput
	}
	var unauthorized *simplepost.UnauthorizedError
	if errors.As(err, &unauthorized) {
		return 401, ErrorTagUnauthorized
	}
	var notFound *simplepost.ResourceNotFoundError
	if errors.As(err, &notFound) {
		return 404, ErrorTagNotFound
	}
	return 500, ErrorTagInternal
}
