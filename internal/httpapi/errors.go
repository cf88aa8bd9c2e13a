package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"blockcanvas/internal/domain"
)

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Error string           `json:"error"`
	Kind  domain.ErrorKind `json:"kind"`
}

func statusOf(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindValidationRejected:
		return http.StatusUnprocessableEntity
	case domain.KindFileIO:
		return http.StatusBadGateway
	default:
		return http.StatusServiceUnavailable
	}
}

// kindOfStatus recovers the error kind from a response that carried no
// usable body.
func kindOfStatus(status int) domain.ErrorKind {
	switch status {
	case http.StatusNotFound:
		return domain.KindNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge:
		return domain.KindValidationRejected
	case http.StatusBadGateway:
		return domain.KindFileIO
	default:
		return domain.KindStorageUnavailable
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	writeJSON(w, statusOf(kind), errorBody{Error: err.Error(), Kind: kind})
}

// decodeError turns an error response back into an error wrapping the
// matching domain sentinel.
func decodeError(resp *http.Response) error {
	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Kind == domain.KindNone {
		kind := kindOfStatus(resp.StatusCode)
		return fmt.Errorf("%w: http %d", kind.Sentinel(), resp.StatusCode)
	}
	sentinel := body.Kind.Sentinel()
	if sentinel == nil {
		sentinel = domain.ErrStorageUnavailable
	}
	return &remoteError{msg: body.Error, sentinel: sentinel}
}

// remoteError keeps the server's message verbatim while matching the
// sentinel with errors.Is.
type remoteError struct {
	msg      string
	sentinel error
}

func (e *remoteError) Error() string { return e.msg }
func (e *remoteError) Unwrap() error { return e.sentinel }

func badRequest(format string, args ...any) error {
	return domain.Rejectf(format, args...)
}
