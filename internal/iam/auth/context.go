// Copyright (c) 2026 Gatehouse. All rights reserved.
// Author: huy.lehoang.vn@gmail.com

package auth

import (
	"context"

	"github.com/lehoanghuy/gatehouse/internal/platform/ctxkey"
)

// ContextWithPrincipal returns a new context carrying the authenticated
// principal. Called by the authentication guard after a successful decision.
func ContextWithPrincipal(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, ctxkey.KeyPrincipal, user)
}

// PrincipalFrom retrieves the authenticated principal from the context.
// It returns nil for anonymous requests.
func PrincipalFrom(ctx context.Context) *User {
	user, ok := ctx.Value(ctxkey.KeyPrincipal).(*User)
	if !ok {
		return nil
	}
	return user
}
