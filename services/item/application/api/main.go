package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ghuser/inventory/pkg/app"
	"github.com/ghuser/inventory/pkg/auth"
	"github.com/ghuser/inventory/pkg/httpx"
	"github.com/ghuser/inventory/services/item/application/handlers"
	appsvcs "github.com/ghuser/inventory/services/item/application/services"
)

// ItemRoutes registers item endpoints on the provided chi router. Callers
// must install auth.LoadSession upstream. Slugs address the canonical view;
// numeric ids address mutations and the edit surface.
func ItemRoutes(r chi.Router, a *app.Application) {
	svcs := appsvcs.New(a)
	writeLimit := 0
	if a.Config != nil {
		writeLimit = a.Config.WriteLimitPerMinute
	}
	r.Route("/items", func(r chi.Router) {
		// The listing is public and the edit surface answers anonymous
		// callers with a redirect, not a 401.
		r.Get("/", handlers.NewListItemsHandler(svcs).Execute)
		r.Get("/{ref}/edit", handlers.NewEditItemHandler(svcs).Execute)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(a.Logger))
			r.Use(httpx.WriteLimit(writeLimit, time.Minute, sessionUser))
			r.Post("/", handlers.NewPostItemHandler(svcs).Execute)
			r.Get("/{ref}", handlers.NewGetItemHandler(svcs).Execute)
			r.Put("/{ref}", handlers.NewPutItemHandler(svcs).Execute)
			r.Delete("/{ref}", handlers.NewDeleteItemHandler(svcs).Execute)
		})
	})
}

func sessionUser(r *http.Request) string {
	return auth.UserIDFromCtx(r.Context())
}

// AuthRoutes registers session endpoints. The sign-in stand-in is only
// mounted in development.
func AuthRoutes(r chi.Router, a *app.Application) {
	r.Post("/signout", auth.SignOutHandler(a.SessionStore, a.Logger))
	if a.Config != nil && a.Config.IsDevelopment() {
		r.Post("/dev/signin", auth.DevSignInHandler(a.SessionStore, a.Logger))
	}
}
