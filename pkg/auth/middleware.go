package auth

import (
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/ghuser/inventory/pkg/httpx"
	"github.com/ghuser/inventory/pkg/logger"
	"github.com/ghuser/inventory/pkg/validator"
)

const (
	sessionName     = "inventory_session"
	sessionUserID   = "user_id"
	sessionUserName = "user_name"
	sessionEmail    = "user_email"

	// SignInPath is where clients without a session are sent.
	SignInPath = "/signin"
)

// ResolveSession maps the request's session cookie to an Identity.
// A missing, tampered or expired cookie yields ErrNoSession.
func ResolveSession(store sessions.Store, r *http.Request) (*Identity, error) {
	session, err := store.Get(r, sessionName)
	if err != nil {
		return nil, ErrNoSession
	}
	userID, _ := session.Values[sessionUserID].(string)
	if userID == "" {
		return nil, ErrNoSession
	}
	name, _ := session.Values[sessionUserName].(string)
	email, _ := session.Values[sessionEmail].(string)
	return &Identity{UserID: userID, Name: name, Email: email}, nil
}

// LoadSession attaches the session identity, if any, to the request context.
// It never rejects; pair it with RequireAuth on routes that need a user.
func LoadSession(store sessions.Store, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := ResolveSession(store, r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			log.DebugContext(r.Context(), "session resolved", "user_id", id.UserID)
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAuth rejects requests without an identity in context with 401 and a
// pointer to the sign-in page. It must run after LoadSession.
func RequireAuth(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := IdentityFromCtx(r.Context()); err != nil {
				log.WarnContext(r.Context(), "unauthenticated request", "path", r.URL.Path)
				httpx.JSON(w, http.StatusUnauthorized, map[string]string{
					"error":    "authentication required",
					"redirect": SignInPath,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// StartSession stores id in a fresh session and writes the cookie.
func StartSession(store sessions.Store, w http.ResponseWriter, r *http.Request, id Identity) error {
	// A stale cookie yields an error alongside a usable new session.
	session, err := store.Get(r, sessionName)
	if session == nil {
		return err
	}
	session.Values[sessionUserID] = id.UserID
	session.Values[sessionUserName] = id.Name
	session.Values[sessionEmail] = id.Email
	return session.Save(r, w)
}

// EndSession expires the session cookie and its server-side state.
func EndSession(store sessions.Store, w http.ResponseWriter, r *http.Request) error {
	session, err := store.Get(r, sessionName)
	if session == nil {
		return err
	}
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

type signInRequest struct {
	UserID string `json:"user_id" validate:"required,max=255"`
	Name   string `json:"name" validate:"max=255"`
	Email  string `json:"email" validate:"required,email"`
}

// DevSignInHandler starts a session for the posted user. The OAuth flow lives
// outside this service; this endpoint is only mounted in development.
//
//	@Summary	Start a development session
//	@Tags		auth
//	@Accept		json
//	@Param		body	body	signInRequest	true	"User to sign in as"
//	@Success	204
//	@Failure	422	{object}	map[string]any
//	@Router		/dev/signin [post]
func DevSignInHandler(store sessions.Store, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := validator.ValidateRequest[signInRequest](w, r)
		if !ok {
			return
		}
		if err := StartSession(store, w, r, Identity{UserID: req.UserID, Name: req.Name, Email: req.Email}); err != nil {
			log.ErrorContext(r.Context(), "start session failed", "error", err)
			httpx.JSONError(w, http.StatusInternalServerError, "could not start session")
			return
		}
		log.InfoContext(r.Context(), "development session started", "user_id", req.UserID)
		httpx.NoContent(w)
	}
}

// SignOutHandler ends the current session.
//
//	@Summary	Sign out
//	@Tags		auth
//	@Success	204
//	@Router		/signout [post]
func SignOutHandler(store sessions.Store, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := EndSession(store, w, r); err != nil {
			log.ErrorContext(r.Context(), "end session failed", "error", err)
			httpx.JSONError(w, http.StatusInternalServerError, "could not sign out")
			return
		}
		httpx.NoContent(w)
	}
}
