package services

import (
	itemdomain "github.com/ghuser/inventory/services/item/domain"
	"github.com/ghuser/inventory/services/item/domain/models"
)

// Access is the outcome of evaluating a session against an item's owner.
type Access int

const (
	// AccessSignIn means no session: the caller must sign in, no data is returned.
	AccessSignIn Access = iota
	// AccessViewOnly means a valid session that does not own the item.
	AccessViewOnly
	// AccessFull means the session user owns the item.
	AccessFull
)

func (a Access) String() string {
	switch a {
	case AccessSignIn:
		return "sign_in"
	case AccessViewOnly:
		return "view_only"
	case AccessFull:
		return "full"
	default:
		return "unknown"
	}
}

// Authorize evaluates the acting user (empty when there is no session)
// against the owner of an item.
func Authorize(actingUserID, ownerUserID string) Access {
	switch {
	case actingUserID == "":
		return AccessSignIn
	case actingUserID == ownerUserID:
		return AccessFull
	default:
		return AccessViewOnly
	}
}

// AuthorizeMutation returns nil only for the owner. Mutations are rejected
// regardless of what the presentation layer chose to show.
func AuthorizeMutation(actingUserID string, item *models.Item) error {
	switch Authorize(actingUserID, item.OwnerUserID) {
	case AccessFull:
		return nil
	case AccessSignIn:
		return itemdomain.ErrSignInRequired
	default:
		return itemdomain.ErrNotAuthorized
	}
}

// RedirectTarget names where the presentation layer should send the caller.
type RedirectTarget int

const (
	RedirectSignIn RedirectTarget = iota + 1
	RedirectCanonicalView
	RedirectListing
)

// Redirect is the non-success outcome of an edit-surface request. Slug is set
// for RedirectCanonicalView.
type Redirect struct {
	Target RedirectTarget
	Slug   string
}

// EditRedirect decides whether the edit surface of item may be shown to the
// acting user. Nil means full access. A non-owner is sent to the canonical
// view: the item's existence is not hidden, only its edit surface.
func EditRedirect(actingUserID string, item *models.Item) *Redirect {
	switch Authorize(actingUserID, item.OwnerUserID) {
	case AccessFull:
		return nil
	case AccessSignIn:
		return &Redirect{Target: RedirectSignIn}
	default:
		return &Redirect{Target: RedirectCanonicalView, Slug: item.Slug}
	}
}
