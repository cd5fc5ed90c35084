// Package httputil holds the JSON helpers shared by the HTTP APIs.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	v1 "github.com/routepeer-io/routepeer/pkg/apis/delivery/v1"
	"github.com/routepeer-io/routepeer/pkg/status"
)

// WriteJSON writes v with the given status code.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError writes an ErrorResponse. A *status.TransitionError anywhere in
// err's chain fills in the current, proposed and allowed states.
func WriteError(w http.ResponseWriter, code int, err error) {
	resp := v1.ErrorResponse{Error: err.Error()}
	var te *status.TransitionError
	if errors.As(err, &te) {
		resp.Current = te.Current
		resp.Proposed = te.Proposed
		resp.Allowed = te.Allowed
	}
	WriteJSON(w, code, resp)
}

// DecodeJSON reads a single JSON object into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty")
		}
		return fmt.Errorf("malformed request body: %w", err)
	}
	return nil
}
