package oracle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticSQL(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     string
	}{
		{
			name:     "raw SQL passes through",
			question: "SELECT name FROM products",
			want:     "SELECT name FROM products",
		},
		{
			name:     "raw SQL with surrounding whitespace",
			question: "  select * from orders  ",
			want:     "select * from orders",
		},
		{
			name:     "show all users",
			question: "Show all users",
			want:     "SELECT id, name, email, region, signup_date FROM users",
		},
		{
			name:     "count users",
			question: "count users by region",
			want:     "SELECT count(*) AS user_count FROM users",
		},
		{
			name:     "unknown question falls back to users",
			question: "what is going on",
			want:     "SELECT id, name, email, region, signup_date FROM users",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, err := Static{}.SQL(context.Background(), tt.question)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sql)
		})
	}
}

func TestFromEnv(t *testing.T) {
	assert.IsType(t, Static{}, FromEnv(""))
	assert.IsType(t, Static{}, FromEnv("static"))
	assert.IsType(t, Static{}, FromEnv("unknown"))
}
