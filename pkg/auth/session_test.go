package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionStore(client,
		[]byte("test-auth-key-must-be-32-bytes!!"),
		[]byte("test-enc-key-must-be-32-bytes!!!"),
		false,
	), s
}

func withCookies(from *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	for _, c := range from.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store, s := setupRedisStore(t)
	want := Identity{UserID: "u1", Name: "Ann", Email: "ann@example.com"}

	w := httptest.NewRecorder()
	if err := StartSession(store, w, httptest.NewRequest(http.MethodPost, "/", nil), want); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if keys := s.Keys(); len(keys) != 1 {
		t.Fatalf("expected one session key in redis, got %v", keys)
	}

	got, err := ResolveSession(store, withCookies(w))
	if err != nil {
		t.Fatalf("ResolveSession: %v", err)
	}
	if *got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestRedisStore_Expiry(t *testing.T) {
	store, s := setupRedisStore(t)

	w := httptest.NewRecorder()
	if err := StartSession(store, w, httptest.NewRequest(http.MethodPost, "/", nil), Identity{UserID: "u1", Email: "a@b.c"}); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	s.FastForward(time.Duration(sessionMaxAge+1) * time.Second)

	if _, err := ResolveSession(store, withCookies(w)); err != ErrNoSession {
		t.Fatalf("expected ErrNoSession after expiry, got %v", err)
	}
}

func TestRedisStore_EndSessionDeletesKey(t *testing.T) {
	store, s := setupRedisStore(t)

	w := httptest.NewRecorder()
	if err := StartSession(store, w, httptest.NewRequest(http.MethodPost, "/", nil), Identity{UserID: "u1", Email: "a@b.c"}); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	r := withCookies(w)

	if err := EndSession(store, httptest.NewRecorder(), r); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if keys := s.Keys(); len(keys) != 0 {
		t.Fatalf("expected session key removed, got %v", keys)
	}
	if _, err := ResolveSession(store, withCookies(w)); err != ErrNoSession {
		t.Fatalf("expected ErrNoSession after sign-out, got %v", err)
	}
}

func TestRedisStore_UnknownCookieIsNewSession(t *testing.T) {
	store, _ := setupRedisStore(t)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: sessionName, Value: "garbage"})

	session, err := store.New(r, sessionName)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !session.IsNew {
		t.Fatal("expected a fresh session for an undecodable cookie")
	}
}
