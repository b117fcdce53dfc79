package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// NewNeo4jClient opens a driver and checks connectivity before returning.
func NewNeo4jClient(ctx context.Context, opts Options) (Client, error) {
	if opts.URI == "" {
		return nil, ErrMissingURI
	}

	auth := neo4j.NoAuth()
	if opts.Username != "" {
		auth = neo4j.BasicAuth(opts.Username, opts.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(opts.URI, auth, func(c *neo4j.Config) {
		if opts.MaxConnections > 0 {
			c.MaxConnectionPoolSize = opts.MaxConnections
		}
	})
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify graph connectivity: %w", err)
	}

	return &neo4jClient{driver: driver, database: opts.Database}, nil
}

type neo4jClient struct {
	driver   neo4j.DriverWithContext
	database string
}

// Write runs stmt in a managed write transaction, which the driver retries on
// transient cluster errors.
func (c *neo4jClient) Write(ctx context.Context, stmt Statement) (Result, error) {
	return c.execute(ctx, stmt, neo4j.ExecuteQueryWithWritersRouting())
}

func (c *neo4jClient) Read(ctx context.Context, stmt Statement) (Result, error) {
	return c.execute(ctx, stmt, neo4j.ExecuteQueryWithReadersRouting())
}

func (c *neo4jClient) execute(ctx context.Context, stmt Statement, routing neo4j.ExecuteQueryConfigurationOption) (Result, error) {
	opts := []neo4j.ExecuteQueryConfigurationOption{routing}
	if c.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(c.database))
	}

	eager, err := neo4j.ExecuteQuery(ctx, c.driver, stmt.Cypher, stmt.Params, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		return Result{}, err
	}

	rows := make([]Row, 0, len(eager.Records))
	for _, rec := range eager.Records {
		rows = append(rows, Row(rec.AsMap()))
	}
	return Result{Rows: rows}, nil
}

func (c *neo4jClient) VerifyConnectivity(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

func (c *neo4jClient) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}
