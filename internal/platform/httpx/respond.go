package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/ledger/internal/shared"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Respond renders the outcome of an operation as a Result envelope. Unexpected
// errors are logged with the request and hidden from the caller.
func Respond[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, okStatus int, data T, err error) {
	if err != nil {
		if shared.KindOf(err) == shared.KindUnexpected && logger != nil {
			logger.Error("request failed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Any("error", err),
			)
		}
		JSON(w, StatusFor(err), shared.Fail[T](err))
		return
	}
	JSON(w, okStatus, shared.ResultFrom(data, nil))
}

// RespondError renders a failed Result.
func RespondError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	Respond[struct{}](w, r, logger, http.StatusOK, struct{}{}, err)
}

// DecodeJSON decodes the request body into target and validates its struct tags.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return shared.Validation("Invalid request body: %s", err.Error())
	}
	if err := validate.Struct(target); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return shared.Validation("Invalid request: %s", strings.Join(msgs, "; "))
		}
		return shared.Validation("Invalid request: %s", err.Error())
	}
	return nil
}

// IDParam parses a positive int64 URL parameter.
func IDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Validation("Invalid %s: %q", name, raw)
	}
	return id, nil
}
