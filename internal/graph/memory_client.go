package graph

import (
	"context"
	"maps"
	"sync"
)

// MemoryClient records statements instead of executing them. Tests queue the
// rows each call should return.
type MemoryClient struct {
	mu           sync.Mutex
	writes       []Statement
	reads        []Statement
	readQueue    []Result
	writeQueue   []Result
	err          error
	connectivity error
}

var _ Client = (*MemoryClient)(nil)

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

// Fail makes every subsequent Write and Read return err.
func (m *MemoryClient) Fail(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Unreachable makes VerifyConnectivity return err.
func (m *MemoryClient) Unreachable(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectivity = err
	return m
}

// QueueRead sets the result of the next Read.
func (m *MemoryClient) QueueRead(res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readQueue = append(m.readQueue, res)
}

// QueueWrite sets the result of the next Write.
func (m *MemoryClient) QueueWrite(res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeQueue = append(m.writeQueue, res)
}

func (m *MemoryClient) Write(_ context.Context, stmt Statement) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Result{}, m.err
	}
	m.writes = append(m.writes, Statement{Cypher: stmt.Cypher, Params: maps.Clone(stmt.Params)})
	return pop(&m.writeQueue), nil
}

func (m *MemoryClient) Read(_ context.Context, stmt Statement) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Result{}, m.err
	}
	m.reads = append(m.reads, Statement{Cypher: stmt.Cypher, Params: maps.Clone(stmt.Params)})
	return pop(&m.readQueue), nil
}

func (m *MemoryClient) VerifyConnectivity(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectivity
}

func (m *MemoryClient) Close(context.Context) error { return nil }

// Writes returns the write statements executed so far.
func (m *MemoryClient) Writes() []Statement {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Statement(nil), m.writes...)
}

// Reads returns the read statements executed so far.
func (m *MemoryClient) Reads() []Statement {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Statement(nil), m.reads...)
}

func pop(queue *[]Result) Result {
	if len(*queue) == 0 {
		return Result{}
	}
	res := (*queue)[0]
	*queue = (*queue)[1:]
	return res
}
