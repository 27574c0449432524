// Package authctx stores authenticated claims on a request context.
//
// Each claims type gets its own slot, so middleware attached with different
// claims types never overwrite each other:
//
//	ctx = authctx.Set(ctx, claims)             // T inferred from claims
//	claims, ok := authctx.Get[*MyClaims](ctx)
//	claims := authctx.MustGet[*MyClaims](ctx)  // panics if missing
package authctx

import (
	"context"
	"errors"
)

// slotKey is distinct for every T.
type slotKey[T any] struct{}

// Set returns a child context carrying claims in the slot for T.
func Set[T any](ctx context.Context, claims T) context.Context {
	return context.WithValue(ctx, slotKey[T]{}, claims)
}

// Get returns the claims stored in the slot for T.
func Get[T any](ctx context.Context) (T, bool) {
	claims, ok := ctx.Value(slotKey[T]{}).(T)
	return claims, ok
}

// Has reports whether the slot for T is populated.
func Has[T any](ctx context.Context) bool {
	_, ok := Get[T](ctx)
	return ok
}

// MustGet returns the claims for T and panics if they are missing. Use it
// only behind a guard that guarantees presence.
func MustGet[T any](ctx context.Context) T {
	claims, ok := Get[T](ctx)
	if !ok {
		panic("authctx: claims not found in context")
	}
	return claims
}

// ErrNoClaims is returned when the slot for the requested type is empty.
var ErrNoClaims = errors.New("authctx: no claims in context")

// GetOrError returns the claims for T or ErrNoClaims.
func GetOrError[T any](ctx context.Context) (T, error) {
	claims, ok := Get[T](ctx)
	if !ok {
		var zero T
		return zero, ErrNoClaims
	}
	return claims, nil
}
