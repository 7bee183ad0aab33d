package handlers

import (
	"net/http"

	"github.com/ghuser/inventory/pkg/errhttp"
	"github.com/ghuser/inventory/pkg/httpx"
	appsvcs "github.com/ghuser/inventory/services/item/application/services"
)

// ListItemsHandler handles GET /items.
type ListItemsHandler struct {
	svc *appsvcs.Services
}

func NewListItemsHandler(svc *appsvcs.Services) *ListItemsHandler {
	return &ListItemsHandler{svc: svc}
}

// Execute lists every item ordered by id. Anonymous callers get the same
// list with is_owner false throughout.
//
//	@Summary		List items
//	@Description	Lists all items, oldest first, with who added each and whether the caller owns it
//	@Tags			items
//	@Produce		json
//	@Success		200	{object}	ItemListResponse
//	@Router			/items [get]
func (h *ListItemsHandler) Execute(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Item.List(r.Context(), actingUserID(r))
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	resp := ItemListResponse{Items: make([]ItemResponse, len(list))}
	for i, res := range list {
		resp.Items[i] = fromResolution(res)
	}
	httpx.JSON(w, http.StatusOK, resp)
}
