// Package store holds pieces shared by the user store implementations.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"signup/pkg/platform/sentinel"
	txcontext "signup/pkg/platform/tx"
)

// Conflict is returned when a unique column collides on insert. It wraps
// sentinel.ErrAlreadyUsed so errors.Is keeps working across layers while the
// service can still name the colliding field.
type Conflict struct {
	Field string
	Value string
}

func (c *Conflict) Error() string {
	return fmt.Sprintf("%s %q %v", c.Field, c.Value, sentinel.ErrAlreadyUsed)
}

func (c *Conflict) Unwrap() error { return sentinel.ErrAlreadyUsed }

// SQLTx runs a function inside a database transaction, carrying the *sql.Tx
// through context so stores pick it up transparently.
type SQLTx struct {
	db *sql.DB
}

func NewSQLTx(db *sql.DB) *SQLTx {
	return &SQLTx{db: db}
}

func (t *SQLTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	sqlTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(txcontext.WithTx(ctx, sqlTx)); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
