package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Envelope statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	// ErrTransport marks envelopes produced by a network failure (no HTTP response).
	ErrTransport = errors.New("transport failure")
	// ErrMalformed marks envelopes whose body did not have the expected shape.
	ErrMalformed = errors.New("malformed response")
)

// Envelope is the uniform response shape of the school API:
// {status: "success"|"error", data?, message?}. HTTP failures are folded into
// the same shape with StatusCode set, so callers never see a transport error
// as anything other than an error envelope.
type Envelope struct {
	Status     string          `json:"status"`
	Data       json.RawMessage `json:"data,omitempty"`
	Message    string          `json:"message,omitempty"`
	StatusCode int             `json:"statusCode,omitempty"`

	// Blob and ContentType are set for requests made with ExpectBlob.
	Blob        []byte `json:"-"`
	ContentType string `json:"-"`

	cause error
}

// Error is the Go error view of an error envelope.
type Error struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode > 0:
		return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
	default:
		return "api error: " + e.Message
	}
}

func (e *Error) Unwrap() error { return e.Err }

// OK reports whether the envelope carries a success status.
func (e *Envelope) OK() bool {
	return e != nil && e.Status == StatusSuccess
}

// Err returns nil for success envelopes and an *Error otherwise.
func (e *Envelope) Err() error {
	if e == nil {
		return &Error{Message: "no response", Err: ErrMalformed}
	}
	if e.OK() {
		return nil
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if msg == "" {
		msg = "request failed"
	}
	return &Error{StatusCode: e.StatusCode, Message: msg, Err: e.cause}
}

// Decode unmarshals Data into v. A success envelope without data, or data
// that does not fit v, is reported as ErrMalformed.
func (e *Envelope) Decode(v any) error {
	if err := e.Err(); err != nil {
		return err
	}
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return &Error{StatusCode: e.StatusCode, Message: "response has no data", Err: ErrMalformed}
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return &Error{StatusCode: e.StatusCode, Message: "decode data: " + err.Error(), Err: ErrMalformed}
	}
	return nil
}

func errorEnvelope(statusCode int, message string, cause error) *Envelope {
	return &Envelope{
		Status:     StatusError,
		Message:    message,
		StatusCode: statusCode,
		cause:      cause,
	}
}
