package handlers

import (
	"net/http"

	"github.com/ghuser/inventory/pkg/auth"
	"github.com/ghuser/inventory/pkg/errhttp"
	"github.com/ghuser/inventory/pkg/httpx"
	pkgvalidator "github.com/ghuser/inventory/pkg/validator"
	appsvcs "github.com/ghuser/inventory/services/item/application/services"
	itemdomain "github.com/ghuser/inventory/services/item/domain"
	"github.com/ghuser/inventory/services/item/domain/models"
)

// PostItemHandler handles POST /items requests.
type PostItemHandler struct {
	svc *appsvcs.Services
}

// NewPostItemHandler returns a PostItemHandler backed by the given services.
func NewPostItemHandler(svc *appsvcs.Services) *PostItemHandler {
	return &PostItemHandler{svc: svc}
}

// Execute creates a new item owned by the signed-in user.
//
//	@Summary		Create item
//	@Description	Creates an item; its slug is derived from the name and suffixed on collision
//	@Tags			items
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ItemRequest	true	"Item fields"
//	@Success		201		{object}	ItemResponse
//	@Header			201		{string}	Location	"Canonical view of the new item"
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		422		{object}	ValidationErrorResponse
//	@Router			/items [post]
func (h *PostItemHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, err := auth.IdentityFromCtx(r.Context())
	if err != nil {
		errhttp.WriteError(w, itemdomain.ErrSignInRequired)
		return
	}

	req, ok := pkgvalidator.ValidateRequest[ItemRequest](w, r)
	if !ok {
		return
	}

	owner := models.User{ID: id.UserID, Name: id.Name, Email: id.Email}
	item, err := h.svc.Item.Create(r.Context(), owner, req.fields())
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	httpx.JSONAt(w, http.StatusCreated, ItemPath(item.Slug), toResponse(item, true))
}
