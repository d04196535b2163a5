// Package httpx provides HTTP response utilities.
package httpx

import (
	"net/http"

	"github.com/odyssey-erp/ledger/internal/shared"
)

// StatusFor maps an error kind to its HTTP status code.
func StatusFor(err error) int {
	switch shared.KindOf(err) {
	case "":
		return http.StatusOK
	case shared.KindValidation:
		return http.StatusBadRequest
	case shared.KindNotFound:
		return http.StatusNotFound
	case shared.KindStateConflict:
		return http.StatusConflict
	case shared.KindIntegrity:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
