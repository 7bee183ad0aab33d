package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ghuser/inventory/pkg/errhttp"
	"github.com/ghuser/inventory/pkg/httpx"
	appsvcs "github.com/ghuser/inventory/services/item/application/services"
)

// GetItemHandler handles GET /items/{slug}.
type GetItemHandler struct {
	svc *appsvcs.Services
}

func NewGetItemHandler(svc *appsvcs.Services) *GetItemHandler {
	return &GetItemHandler{svc: svc}
}

// Execute returns the canonical view of an item. Non-owners get the same
// data with is_owner=false.
//
//	@Summary	Get item by slug
//	@Tags		items
//	@Produce	json
//	@Param		ref	path		string	true	"Item slug"
//	@Success	200	{object}	ItemResponse
//	@Failure	401	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/items/{ref} [get]
func (h *GetItemHandler) Execute(w http.ResponseWriter, r *http.Request) {
	ref := appsvcs.ItemRef{Slug: chi.URLParam(r, "ref")}
	res, err := h.svc.Item.Resolve(r.Context(), ref, actingUserID(r))
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, fromResolution(res))
}
