package handlers

import (
	"net/http"

	"github.com/ghuser/inventory/pkg/errhttp"
	"github.com/ghuser/inventory/pkg/httpx"
	pkgvalidator "github.com/ghuser/inventory/pkg/validator"
	appsvcs "github.com/ghuser/inventory/services/item/application/services"
	itemdomain "github.com/ghuser/inventory/services/item/domain"
)

// PutItemHandler handles PUT /items/{id}.
type PutItemHandler struct {
	svc *appsvcs.Services
}

func NewPutItemHandler(svc *appsvcs.Services) *PutItemHandler {
	return &PutItemHandler{svc: svc}
}

// Execute replaces the editable fields of an item owned by the caller.
//
//	@Summary		Update item
//	@Description	Renaming recomputes the slug; Location points at the (possibly new) canonical view
//	@Tags			items
//	@Accept			json
//	@Produce		json
//	@Param			ref		path		int			true	"Item id"
//	@Param			request	body		ItemRequest	true	"Item fields"
//	@Success		200		{object}	ItemResponse
//	@Header			200		{string}	Location	"Canonical view of the item"
//	@Failure		401		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		422		{object}	ValidationErrorResponse
//	@Router			/items/{ref} [put]
func (h *PutItemHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(r)
	if !ok {
		errhttp.WriteError(w, itemdomain.ErrItemNotFound)
		return
	}

	req, ok := pkgvalidator.ValidateRequest[ItemRequest](w, r)
	if !ok {
		return
	}

	item, err := h.svc.Item.Update(r.Context(), id, actingUserID(r), req.fields())
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	httpx.JSONAt(w, http.StatusOK, ItemPath(item.Slug), toResponse(item, true))
}
