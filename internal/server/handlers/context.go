package handlers

import "context"

// Principal аутентифицированный пользователь запроса
type Principal struct {
	UserID   string
	Username string
}

type principalKey struct{}

// WithPrincipal is called by the auth middleware once the token is verified.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns false on routes that are not behind the auth middleware.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID != ""
}
