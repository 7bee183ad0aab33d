package handlers

import (
	"net/http"

	"github.com/ghuser/inventory/pkg/errhttp"
	"github.com/ghuser/inventory/pkg/httpx"
	appsvcs "github.com/ghuser/inventory/services/item/application/services"
	itemdomain "github.com/ghuser/inventory/services/item/domain"
)

// DeleteItemHandler handles DELETE /items/{id}.
type DeleteItemHandler struct {
	svc *appsvcs.Services
}

func NewDeleteItemHandler(svc *appsvcs.Services) *DeleteItemHandler {
	return &DeleteItemHandler{svc: svc}
}

// Execute hard-deletes an item owned by the caller. Repeating the request
// returns 404.
//
//	@Summary	Delete item
//	@Tags		items
//	@Param		ref	path	int	true	"Item id"
//	@Success	204
//	@Failure	401	{object}	ErrorResponse
//	@Failure	403	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/items/{ref} [delete]
func (h *DeleteItemHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(r)
	if !ok {
		errhttp.WriteError(w, itemdomain.ErrItemNotFound)
		return
	}

	if err := h.svc.Item.Delete(r.Context(), id, actingUserID(r)); err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.NoContent(w)
}
