package service

import "context"

// StoreTx provides the atomicity boundary for registration and verification
// mutations. Implementations may wrap a database transaction or, in-memory,
// nothing at all: the in-memory store is already atomic per call.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoopTx runs fn without any transaction scope. Used with the in-memory store.
type NoopTx struct{}

func (NoopTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
