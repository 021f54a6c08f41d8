package repositories

import "context"

// TxFn runs within a transaction. The transaction is carried in the
// context; repositories pick it up automatically.
type TxFn func(ctx context.Context) error

// TransactionManager executes a function inside a single database
// transaction. Every multi-step mutation in this system (document
// creation with its ADMIN grant and first version, version creation
// with the document-row update, bulk permission replace, ownership
// transfer) goes through ExecTx.
type TransactionManager interface {
	ExecTx(ctx context.Context, fn TxFn) error
}
