package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions.
// Sharing mutations run lock, resolve and write inside one ExecTx call.
type TransactionManager interface {
	ExecTx(ctx context.Context, fn TxFn) error
}
