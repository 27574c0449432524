package authctx

import (
	"context"
	"errors"
	"testing"
)

type userClaims struct {
	Sub   string
	Email string
}

type adminClaims struct {
	Sub   string
	Roles []string
}

func TestSetGet(t *testing.T) {
	ctx := Set(context.Background(), &userClaims{Sub: "u1", Email: "a@b.com"})

	got, ok := Get[*userClaims](ctx)
	if !ok || got.Sub != "u1" {
		t.Fatalf("Get() = %+v, %v", got, ok)
	}
	if !Has[*userClaims](ctx) {
		t.Error("Has() should be true")
	}
}

func TestEmptySlot(t *testing.T) {
	ctx := context.Background()
	if _, ok := Get[*userClaims](ctx); ok {
		t.Error("fresh context must have an empty slot")
	}
	if Has[userClaims](ctx) {
		t.Error("Has() should be false")
	}
}

func TestSlotsAreKeyedByType(t *testing.T) {
	ctx := Set(context.Background(), userClaims{Sub: "u1"})
	ctx = Set(ctx, adminClaims{Sub: "admin", Roles: []string{"root"}})

	u, ok := Get[userClaims](ctx)
	if !ok || u.Sub != "u1" {
		t.Errorf("user slot = %+v, %v", u, ok)
	}
	a, ok := Get[adminClaims](ctx)
	if !ok || a.Sub != "admin" {
		t.Errorf("admin slot = %+v, %v", a, ok)
	}

	if _, ok := Get[*userClaims](ctx); ok {
		t.Error("pointer and value types must use different slots")
	}
}

func TestSetDoesNotMutateParent(t *testing.T) {
	parent := context.Background()
	_ = Set(parent, userClaims{Sub: "u1"})
	if Has[userClaims](parent) {
		t.Error("Set must return a child context")
	}
}

func TestMustGet(t *testing.T) {
	ctx := Set(context.Background(), userClaims{Sub: "u1"})
	if MustGet[userClaims](ctx).Sub != "u1" {
		t.Error("MustGet returned wrong claims")
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic for missing claims")
		}
	}()
	MustGet[adminClaims](ctx)
}

func TestGetOrError(t *testing.T) {
	ctx := Set(context.Background(), userClaims{Sub: "u1"})

	if c, err := GetOrError[userClaims](ctx); err != nil || c.Sub != "u1" {
		t.Errorf("GetOrError() = %+v, %v", c, err)
	}
	if _, err := GetOrError[adminClaims](ctx); !errors.Is(err, ErrNoClaims) {
		t.Errorf("expected ErrNoClaims, got %v", err)
	}
}
