package auth

import "context"

type accountContextKey struct{}

// ContextWithAccount attaches the resolved account to the request context.
func ContextWithAccount(ctx context.Context, account *Account) context.Context {
	return context.WithValue(ctx, accountContextKey{}, account)
}

// AccountFromContext extracts the account placed by the authorization
// gate.
func AccountFromContext(ctx context.Context) (*Account, bool) {
	if ctx == nil {
		return nil, false
	}
	account, ok := ctx.Value(accountContextKey{}).(*Account)
	if !ok || account == nil {
		return nil, false
	}
	return account, true
}
