// Package errhttp maps domain sentinel errors to HTTP status codes.
// Add a case to mapErrorToStatus for each new domain sentinel error.
package errhttp

import (
	"errors"
	"net/http"

	"github.com/ghuser/inventory/pkg/auth"
	"github.com/ghuser/inventory/pkg/httpx"
	itemdomain "github.com/ghuser/inventory/services/item/domain"
)

const genericMessage = "something went wrong, please try again"

// WriteError maps err to an HTTP status code and writes a JSON error response.
// Validation failures list every problem; sign-in failures carry the sign-in
// redirect. Store and unknown errors never expose their text.
func WriteError(w http.ResponseWriter, err error) {
	status := mapErrorToStatus(err)

	var verr *itemdomain.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.JSON(w, status, map[string]any{
			"error":    itemdomain.ErrInvalidItem.Error(),
			"problems": verr.Problems,
		})
	case status == http.StatusUnauthorized:
		httpx.JSON(w, status, map[string]string{
			"error":    err.Error(),
			"redirect": auth.SignInPath,
		})
	case status >= http.StatusInternalServerError:
		httpx.JSONError(w, status, genericMessage)
	default:
		httpx.JSONError(w, status, err.Error())
	}
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, itemdomain.ErrInvalidItem):
		return http.StatusUnprocessableEntity // 422
	case errors.Is(err, itemdomain.ErrItemNotFound):
		return http.StatusNotFound // 404
	case errors.Is(err, itemdomain.ErrSignInRequired):
		return http.StatusUnauthorized // 401
	case errors.Is(err, itemdomain.ErrNotAuthorized):
		return http.StatusForbidden // 403
	case errors.Is(err, itemdomain.ErrSlugConflict), errors.Is(err, itemdomain.ErrSlugTaken):
		return http.StatusConflict // 409
	default:
		return http.StatusInternalServerError // 500
	}
}
