package http

import (
	"errors"
	"net/http"

	"github.com/routepeer-io/routepeer/internal/hub/core"
	"github.com/routepeer-io/routepeer/internal/pkg/auth"
	"github.com/routepeer-io/routepeer/internal/pkg/httputil"
	"github.com/routepeer-io/routepeer/pkg/log"
	"github.com/routepeer-io/routepeer/pkg/status"
)

// statusCode maps a service error onto the HTTP status agents act on:
// 4xx other than 401, 403, 409 and 429 means the request will never succeed.
func statusCode(err error) int {
	switch {
	case errors.Is(err, status.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusCode(err)
	if code == http.StatusInternalServerError {
		log.FromContext(r.Context()).Error(err, "Request failed")
	}
	httputil.WriteError(w, code, err)
}
