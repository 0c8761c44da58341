package common

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetAccountFromArgs(t *testing.T) {
	tests := []struct {
		name     string
		ctx      context.Context
		args     map[string]interface{}
		expected string
	}{
		{
			name:     "no account specified returns default",
			ctx:      context.Background(),
			args:     map[string]interface{}{},
			expected: "default",
		},
		{
			name:     "account argument",
			ctx:      context.Background(),
			args:     map[string]interface{}{"account": "work"},
			expected: "work",
		},
		{
			name:     "empty account returns default",
			ctx:      context.Background(),
			args:     map[string]interface{}{"account": ""},
			expected: "default",
		},
		{
			name:     "non-string account returns default",
			ctx:      context.Background(),
			args:     map[string]interface{}{"account": 123},
			expected: "default",
		},
		{
			name:     "context account wins over argument",
			ctx:      ContextWithAccount(context.Background(), "personal"),
			args:     map[string]interface{}{"account": "work"},
			expected: "personal",
		},
		{
			name:     "empty context account is ignored",
			ctx:      ContextWithAccount(context.Background(), ""),
			args:     map[string]interface{}{"account": "work"},
			expected: "work",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetAccountFromArgs(tt.ctx, tt.args))
		})
	}
}

func TestAccountFromRequest(t *testing.T) {
	r := httptest.NewRequest("POST", "/mcp", nil)
	ctx := AccountFromRequest(context.Background(), r)
	_, ok := AccountFromContext(ctx)
	assert.False(t, ok)

	r.Header.Set(AccountHeader, "  team ")
	ctx = AccountFromRequest(context.Background(), r)
	account, ok := AccountFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "team", account)
}
