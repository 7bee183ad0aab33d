package handlers

import (
	"net/http"

	"github.com/ghuser/inventory/pkg/auth"
	"github.com/ghuser/inventory/pkg/errhttp"
	"github.com/ghuser/inventory/pkg/httpx"
	appsvcs "github.com/ghuser/inventory/services/item/application/services"
	domainsvcs "github.com/ghuser/inventory/services/item/domain/services"
)

// EditItemHandler handles GET /items/{id}/edit.
type EditItemHandler struct {
	svc *appsvcs.Services
}

func NewEditItemHandler(svc *appsvcs.Services) *EditItemHandler {
	return &EditItemHandler{svc: svc}
}

// Execute returns the item for its owner's edit form. Everyone else is
// redirected: to sign-in without a session, to the canonical view when
// they do not own the item, and to the listing when the id is unknown.
//
//	@Summary	Get item for editing
//	@Tags		items
//	@Produce	json
//	@Param		ref	path		int	true	"Item id"
//	@Success	200	{object}	ItemResponse
//	@Success	303	"Redirect to sign-in, the canonical view or the listing"
//	@Router		/items/{ref}/edit [get]
func (h *EditItemHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(r)
	if !ok {
		http.Redirect(w, r, ItemsPath, http.StatusSeeOther)
		return
	}

	res, err := h.svc.Item.Edit(r.Context(), id, actingUserID(r))
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	if res.Redirect != nil {
		http.Redirect(w, r, redirectLocation(res.Redirect), http.StatusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(res.Item, true))
}

func redirectLocation(rd *domainsvcs.Redirect) string {
	switch rd.Target {
	case domainsvcs.RedirectSignIn:
		return auth.SignInPath
	case domainsvcs.RedirectCanonicalView:
		return ItemPath(rd.Slug)
	default:
		return ItemsPath
	}
}
