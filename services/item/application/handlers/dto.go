package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ghuser/inventory/pkg/auth"
	"github.com/ghuser/inventory/services/item/domain/models"
	appsvcs "github.com/ghuser/inventory/services/item/application/services"
)

// ItemRequest is the request body for creating and updating items.
type ItemRequest struct {
	Name        string           `json:"name"        validate:"required,max=255"  example:"Red Widget"`
	Description string           `json:"description" validate:"max=2000"          example:"A bright red widget"`
	Quantity    *int             `json:"quantity"    validate:"required,gte=0"    example:"5"`
	Price       *decimal.Decimal `json:"price"       validate:"required"          example:"9.99" swaggertype:"string"`
	SKU         string           `json:"sku"         validate:"required,max=255"  example:"RW1"`
	Category    string           `json:"category"    validate:"required,max=255"  example:"Widgets"`
} // @name ItemRequest

func (r *ItemRequest) fields() models.ItemFields {
	return models.ItemFields{
		Name:        r.Name,
		Description: r.Description,
		Quantity:    *r.Quantity,
		Price:       *r.Price,
		SKU:         r.SKU,
		Category:    r.Category,
	}
}

// ItemResponse is the public representation of an item.
type ItemResponse struct {
	ID          int64           `json:"id"            example:"42"`
	Slug        string          `json:"slug"          example:"red-widget"`
	Name        string          `json:"name"          example:"Red Widget"`
	Description string          `json:"description"   example:"A bright red widget"`
	Quantity    int             `json:"quantity"      example:"5"`
	Price       decimal.Decimal `json:"price"         example:"9.99" swaggertype:"string"`
	SKU         string          `json:"sku"           example:"RW1"`
	Category    string          `json:"category"      example:"Widgets"`
	OwnerUserID string          `json:"owner_user_id" example:"user_123"`
	AddedBy     string          `json:"added_by"      example:"Alice"`
	CreatedAt   time.Time       `json:"created_at"    example:"2024-01-15T10:30:00Z"`
	IsOwner     bool            `json:"is_owner"      example:"true"`
} // @name ItemResponse

// ItemListResponse wraps the full listing.
type ItemListResponse struct {
	Items []ItemResponse `json:"items"`
} // @name ItemListResponse

// ErrorResponse is returned on error responses.
type ErrorResponse struct {
	Error    string `json:"error"              example:"item not found"`
	Redirect string `json:"redirect,omitempty" example:"/signin"`
} // @name ErrorResponse

// ValidationErrorResponse lists every rule the submitted item violates.
type ValidationErrorResponse struct {
	Error    string   `json:"error"    example:"invalid item"`
	Problems []string `json:"problems" example:"sku is required"`
} // @name ValidationErrorResponse

func toResponse(item *models.Item, isOwner bool) ItemResponse {
	return ItemResponse{
		ID:          item.ID,
		Slug:        item.Slug,
		Name:        item.Name.String(),
		Description: item.Description,
		Quantity:    item.Quantity,
		Price:       item.Price,
		SKU:         item.SKU,
		Category:    item.Category,
		OwnerUserID: item.OwnerUserID,
		AddedBy:     item.Owner.DisplayName(),
		CreatedAt:   item.CreatedAt,
		IsOwner:     isOwner,
	}
}

func fromResolution(res *appsvcs.Resolution) ItemResponse {
	return toResponse(res.Item, res.IsOwner)
}

// ItemsPath is the listing route; ItemPath is an item's canonical view.
const ItemsPath = "/api/items"

func ItemPath(slug string) string {
	return ItemsPath + "/" + slug
}

// itemID parses the {ref} URL parameter as a positive numeric id.
func itemID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "ref"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func actingUserID(r *http.Request) string {
	return auth.UserIDFromCtx(r.Context())
}
