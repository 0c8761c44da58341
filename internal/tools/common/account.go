package common

import (
	"context"
	"net/http"
	"strings"
)

// DefaultAccount is used when neither the transport nor the arguments name an account.
const DefaultAccount = "default"

// AccountHeader lets HTTP MCP clients pick the Google account for every call on a connection.
const AccountHeader = "X-Calassist-Account"

type accountKey struct{}

// ContextWithAccount returns a context that carries the Google account name.
func ContextWithAccount(ctx context.Context, account string) context.Context {
	return context.WithValue(ctx, accountKey{}, account)
}

// AccountFromContext returns the account set by ContextWithAccount.
func AccountFromContext(ctx context.Context) (string, bool) {
	account, ok := ctx.Value(accountKey{}).(string)
	return account, ok && account != ""
}

// AccountFromRequest copies AccountHeader into the request context.
// It matches the signature of mcp-go's HTTP context functions.
func AccountFromRequest(ctx context.Context, r *http.Request) context.Context {
	if account := strings.TrimSpace(r.Header.Get(AccountHeader)); account != "" {
		return ContextWithAccount(ctx, account)
	}
	return ctx
}

// GetAccountFromArgs extracts the account name from request arguments and context.
//
// Priority order:
//  1. Account bound to the connection (AccountHeader)
//  2. Explicit "account" argument in request
//  3. "default"
func GetAccountFromArgs(ctx context.Context, args map[string]interface{}) string {
	if account, ok := AccountFromContext(ctx); ok {
		return account
	}
	if accountVal, ok := args["account"].(string); ok && accountVal != "" {
		return accountVal
	}
	return DefaultAccount
}
