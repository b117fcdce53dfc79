// Package graph talks to the Bolt-compatible database that holds the referral ledger.
package graph

import (
	"context"
	"errors"
	"fmt"
)

// Statement is one parameterised cypher query.
type Statement struct {
	Cypher string
	Params map[string]any
}

// Client is what the ledger repository needs from the database.
type Client interface {
	Write(ctx context.Context, stmt Statement) (Result, error)
	Read(ctx context.Context, stmt Statement) (Result, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Result holds the rows returned by a statement.
type Result struct {
	Rows []Row
}

// Row maps returned column names to values.
type Row map[string]any

// String returns the string in column key, or "" when absent or not a string.
func (r Row) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Int returns the integer in column key. Bolt integers arrive as int64.
func (r Row) Int(key string) (int64, error) {
	switch v := r[key].(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case nil:
		return 0, fmt.Errorf("column %q missing", key)
	default:
		return 0, fmt.Errorf("column %q: unexpected type %T", key, v)
	}
}

// Options configures the Bolt connection.
type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// ErrMissingURI indicates the graph URI is not provided.
var ErrMissingURI = errors.New("graph URI is required")
