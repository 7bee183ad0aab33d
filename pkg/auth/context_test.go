package auth

import (
	"context"
	"errors"
	"testing"
)

func TestWithIdentity_IdentityFromCtx(t *testing.T) {
	want := &Identity{UserID: "u1", Name: "Ann", Email: "ann@example.com"}
	ctx := WithIdentity(context.Background(), want)

	got, err := IdentityFromCtx(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *got != *want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if UserIDFromCtx(ctx) != "u1" {
		t.Fatalf("expected user id u1, got %q", UserIDFromCtx(ctx))
	}
}

func TestIdentityFromCtx_Missing(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
	}{
		{"empty context", context.Background()},
		{"nil identity", WithIdentity(context.Background(), nil)},
		{"blank user id", WithIdentity(context.Background(), &Identity{Email: "x@example.com"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := IdentityFromCtx(tt.ctx); !errors.Is(err, ErrNoSession) {
				t.Fatalf("expected ErrNoSession, got %v", err)
			}
			if got := UserIDFromCtx(tt.ctx); got != "" {
				t.Fatalf("expected empty user id, got %q", got)
			}
		})
	}
}
