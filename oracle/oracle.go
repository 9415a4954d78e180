// Package oracle holds the natural-language-to-SQL boundary. The server
// treats the oracle as opaque: one question string in, one SQL string out.
package oracle

import (
	"context"
	"strings"
)

type Oracle interface {
	SQL(ctx context.Context, question string) (string, error)
}

// Static is a deterministic oracle for development and tests. Questions
// that already look like SQL pass through unchanged; otherwise a fixed
// prefix table picks the statement.
type Static struct{}

var staticRules = []struct {
	prefix string
	sql    string
}{
	{"show all users", "SELECT id, name, email, region, signup_date FROM users"},
	{"show users", "SELECT id, name, email, region, signup_date FROM users"},
	{"show all products", "SELECT id, name, price FROM products"},
	{"show all orders", "SELECT id, user_id, product_id, quantity, order_date FROM orders"},
	{"count users", "SELECT count(*) AS user_count FROM users"},
}

func (Static) SQL(_ context.Context, question string) (string, error) {
	q := strings.ToLower(strings.TrimSpace(question))
	if strings.HasPrefix(q, "select") {
		return strings.TrimSpace(question), nil
	}
	for _, rule := range staticRules {
		if strings.HasPrefix(q, rule.prefix) {
			return rule.sql, nil
		}
	}
	return "SELECT id, name, email, region, signup_date FROM users", nil
}

// FromEnv selects an oracle by name. Only the static double ships with the
// server; a model-backed oracle is wired by the embedding application.
func FromEnv(name string) Oracle {
	switch strings.ToLower(name) {
	case "", "static":
		return Static{}
	default:
		return Static{}
	}
}
