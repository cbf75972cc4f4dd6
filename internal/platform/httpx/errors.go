package httpx

import (
	"errors"
	"net/http"

	"github.com/dentaflow/dentaflow-stock/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807. Anything
// outside the shared taxonomy is treated as an infrastructure failure.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
