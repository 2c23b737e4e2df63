package legacy

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNotFound is matched (via errors.Is) by any error reporting that the
// requested legacy document does not exist.
var ErrNotFound = errors.New("legacy: document not found")

// StatusError is a raw non-2xx response from the legacy service. It is what
// the per-type and per-definition fetches return.
type StatusError struct {
	Endpoint   string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("legacy %s: unexpected status %d from %s", e.Endpoint, e.StatusCode, e.URL)
}

// Is reports 404 responses as ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// APIError is the normalised shape of a legacy API v1 failure. Only the
// catalog fetch reshapes its failures into an APIError; the original error is
// kept and reachable through Unwrap.
type APIError struct {
	StatusCode       int    `json:"status,omitempty"`
	Code             int    `json:"code,omitempty"`
	Message          string `json:"message"`
	RemedialAction   string `json:"remedialAction,omitempty"`
	DocumentationURL string `json:"documentationUrl,omitempty"`
	Err              error  `json:"-"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString("legacy api: ")
	if e.Code != 0 {
		fmt.Fprintf(&b, "code %d: ", e.Code)
	}
	b.WriteString(e.Message)
	if e.RemedialAction != "" {
		b.WriteString(" (")
		b.WriteString(e.RemedialAction)
		b.WriteString(")")
	}
	return b.String()
}

func (e *APIError) Unwrap() error { return e.Err }

// apiV1Body is the error body written by API v1 endpoints. Some endpoints nest
// it under "response", others write it flat.
type apiV1Body struct {
	Code             int    `json:"code"`
	Message          string `json:"message"`
	RemedialAction   string `json:"remedialAction"`
	DocumentationURL string `json:"documentationUrl"`
}

// normalizeAPIError reshapes a catalog fetch failure into an *APIError.
// Errors that are already normalised are returned unchanged.
func normalizeAPIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return &APIError{Message: err.Error(), Err: err}
	}

	normalized := &APIError{
		StatusCode: statusErr.StatusCode,
		Message:    http.StatusText(statusErr.StatusCode),
		Err:        err,
	}

	var envelope struct {
		Response *apiV1Body `json:"response"`
		apiV1Body
	}
	if json.Unmarshal(statusErr.Body, &envelope) == nil {
		body := envelope.apiV1Body
		if envelope.Response != nil {
			body = *envelope.Response
		}
		if body.Message != "" {
			normalized.Message = body.Message
		}
		normalized.Code = body.Code
		normalized.RemedialAction = body.RemedialAction
		normalized.DocumentationURL = body.DocumentationURL
	}

	return normalized
}
